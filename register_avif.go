//go:build avif

package rastermill

import (
	"github.com/rastermill/rastermill/adapters/decoder"
	"github.com/rastermill/rastermill/adapters/encoder"
	"github.com/rastermill/rastermill/core"
)

func registerAVIF(reg *core.DefaultRegistry) {
	reg.RegisterDecoder(core.FormatAVIF, decoder.NewAVIF())
	reg.RegisterEncoder(core.FormatAVIF, encoder.NewAVIF())
}
