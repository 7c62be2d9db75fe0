//go:build !avif

package rastermill

import "github.com/rastermill/rastermill/core"

// Without the avif build tag no AVIF backend exists; requests for the format
// fail as unsupported, same as a format that was never implemented.
func registerAVIF(_ *core.DefaultRegistry) {}
