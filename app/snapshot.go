package app

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/pthm-cable/fluidfx/gpu"
)

// SaveSnapshot writes the device surface to a PNG file.
func SaveSnapshot(dev gpu.Device, path string) error {
	img, err := SurfaceImage(dev)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return f.Close()
}

// SurfaceImage reads the surface back as an image with row 0 at the top.
func SurfaceImage(dev gpu.Device) (*image.NRGBA, error) {
	pix, err := dev.ReadPixels(nil)
	if err != nil {
		return nil, fmt.Errorf("reading surface: %w", err)
	}
	w, h := dev.SurfaceSize()
	if len(pix) < w*h*4 {
		return nil, fmt.Errorf("reading surface: got %d values for %dx%d", len(pix), w, h)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := (h - 1 - y) * w * 4
		for x := 0; x < w; x++ {
			i := row + x*4
			img.SetNRGBA(x, y, color.NRGBA{
				R: toByte(pix[i]),
				G: toByte(pix[i+1]),
				B: toByte(pix[i+2]),
				A: 255,
			})
		}
	}
	return img, nil
}

func toByte(v float32) uint8 {
	v = min(max(v, 0), 1)
	return uint8(v*255 + 0.5)
}
