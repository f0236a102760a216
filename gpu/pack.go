package gpu

import "math"

// Signed log companding for the RGBA8 baseline. Zero maps exactly onto the
// 8-bit code 128 so cleared targets decode to zero. The same curve is
// implemented in shaders/common.glsl.
const (
	PackCenter = float32(128.0 / 255.0)
	// PackGain scales magnitudes before the log so small values keep detail.
	PackGain = 64.0
	// PackRange is log2 of the largest representable scaled magnitude.
	PackRange = 20.0
)

// Pack maps v onto [0,1].
func Pack(v float32) float32 {
	if v == 0 {
		return PackCenter
	}
	m := float32(math.Log2(1+math.Abs(float64(v))*PackGain) / PackRange)
	if m > 1 {
		m = 1
	}
	if v > 0 {
		return PackCenter + m*(1-PackCenter)
	}
	return PackCenter - m*PackCenter
}

// Unpack is the inverse of Pack.
func Unpack(e float32) float32 {
	var m float64
	switch {
	case e > PackCenter:
		m = float64((e - PackCenter) / (1 - PackCenter))
	case e < PackCenter:
		m = float64((PackCenter - e) / PackCenter)
	default:
		return 0
	}
	mag := float32((math.Exp2(m*PackRange) - 1) / PackGain)
	if e < PackCenter {
		return -mag
	}
	return mag
}

// PackedZero is the RGBA clear color that decodes to zero.
func PackedZero() [4]float32 {
	return [4]float32{PackCenter, PackCenter, PackCenter, PackCenter}
}
