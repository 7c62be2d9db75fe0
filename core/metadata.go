package core

// Metadata is the side-channel data associated with one decoded image.  It is
// structurally independent of the PixelBuffer: only decoders produce it and
// only encoders consume it; operations never touch it.
type Metadata struct {
	// EXIF holds parsed tag name → value pairs; best-effort, may be nil even
	// when EXIFRaw is present.
	EXIF map[string]string
	// EXIFRaw is the raw TIFF-structured EXIF payload (without the JPEG
	// "Exif\x00\x00" marker prefix), kept so re-embedding is byte-faithful.
	EXIFRaw []byte
	// ICC is the color profile blob, opaque to the core.
	ICC []byte
	// Orientation is the EXIF orientation tag (1-8); 0 means absent.
	Orientation int
}

// Empty reports whether there is nothing worth embedding.
func (m *Metadata) Empty() bool {
	return m == nil || (len(m.EXIF) == 0 && len(m.EXIFRaw) == 0 && len(m.ICC) == 0 && m.Orientation == 0)
}

// Clone returns a deep copy; nil-safe.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	out := &Metadata{Orientation: m.Orientation}
	if m.EXIF != nil {
		out.EXIF = make(map[string]string, len(m.EXIF))
		for k, v := range m.EXIF {
			out.EXIF[k] = v
		}
	}
	out.EXIFRaw = append([]byte(nil), m.EXIFRaw...)
	out.ICC = append([]byte(nil), m.ICC...)
	return out
}

// Warning is a non-fatal event reported on a side channel distinct from the
// error path: metadata parse failures, precision-reducing downgrades and the
// like.  Warnings never abort a pipeline run.
type Warning struct {
	Stage   string // "decode", "encode", pipeline operation name
	Backend string // originating backend, empty for core events
	Message string
}

// Frame is the unit that flows through a pipeline invocation: a PixelBuffer
// with its optional metadata companion and accumulated warnings.  Exactly one
// frame exists per invocation; there is no sharing across calls.
type Frame struct {
	Buffer   *PixelBuffer
	Meta     *Metadata // nil when the source carried none
	Format   Format    // source format as identified by decoder dispatch
	Warnings []Warning
}

// Warn appends a non-fatal event to the frame.
func (f *Frame) Warn(stage, backend, message string) {
	f.Warnings = append(f.Warnings, Warning{Stage: stage, Backend: backend, Message: message})
}
