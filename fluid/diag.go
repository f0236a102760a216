package fluid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/fluidfx/gpu"
)

// FieldValues reads back the first n channels of every texel, decoding
// the 8-bit baseline when packed.
func FieldValues(dev gpu.Device, f *Field, channels int, packed bool) ([]float64, error) {
	pix, err := dev.ReadPixels(f.target)
	if err != nil {
		return nil, fmt.Errorf("reading field: %w", err)
	}
	channels = min(max(channels, 1), 4)
	out := make([]float64, 0, len(pix)/4*channels)
	for i := 0; i+3 < len(pix); i += 4 {
		for c := 0; c < channels; c++ {
			v := pix[i+c]
			if packed {
				v = gpu.Unpack(v)
			}
			out = append(out, float64(v))
		}
	}
	return out, nil
}

// FieldNorm returns the L2 norm over the first n channels of a field.
func FieldNorm(dev gpu.Device, f *Field, channels int, packed bool) (float64, error) {
	vals, err := FieldValues(dev, f, channels, packed)
	if err != nil {
		return 0, err
	}
	return floats.Norm(vals, 2), nil
}
