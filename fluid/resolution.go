package fluid

import "math"

// Resolution returns grid dimensions for a target short-side resolution,
// matching the surface aspect ratio. The short side is round(target), the
// long side round(target*aspect), oriented like the surface.
func Resolution(target, surfaceW, surfaceH int) (w, h int) {
	short := int(math.Round(float64(target)))
	if surfaceW <= 0 || surfaceH <= 0 {
		return short, short
	}
	aspect := float64(surfaceW) / float64(surfaceH)
	if aspect < 1 {
		aspect = 1 / aspect
	}
	long := int(math.Round(float64(target) * aspect))
	if surfaceW > surfaceH {
		return long, short
	}
	return short, long
}

// SurfacePixels converts client dimensions to drawing-buffer pixels.
func SurfacePixels(clientW, clientH int, pixelRatio float64) (w, h int) {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	return int(math.Floor(float64(clientW) * pixelRatio)), int(math.Floor(float64(clientH) * pixelRatio))
}

// gridSizes holds the computed dimensions of both grid families.
type gridSizes struct {
	simW, simH int
	dyeW, dyeH int
}

// computeGrids applies the resolution rule to both grids. Without linear
// filtering the dye grid is capped.
func computeGrids(simRes, dyeRes, dyeCap int, linear bool, surfaceW, surfaceH int) gridSizes {
	if !linear && dyeRes > dyeCap {
		dyeRes = dyeCap
	}
	var g gridSizes
	g.simW, g.simH = Resolution(simRes, surfaceW, surfaceH)
	g.dyeW, g.dyeH = Resolution(dyeRes, surfaceW, surfaceH)
	return g
}
