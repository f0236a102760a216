package soft

import "math"

type vec2 [2]float32

type vec3 [3]float32

type vec4 [4]float32

func (a vec2) add(b vec2) vec2      { return vec2{a[0] + b[0], a[1] + b[1]} }
func (a vec2) sub(b vec2) vec2      { return vec2{a[0] - b[0], a[1] - b[1]} }
func (a vec2) mul(b vec2) vec2      { return vec2{a[0] * b[0], a[1] * b[1]} }
func (a vec2) scale(s float32) vec2 { return vec2{a[0] * s, a[1] * s} }
func (a vec2) dot(b vec2) float32   { return a[0]*b[0] + a[1]*b[1] }
func (a vec2) length() float32      { return sqrt(a.dot(a)) }

func (a vec3) scale(s float32) vec3 { return vec3{a[0] * s, a[1] * s, a[2] * s} }
func (a vec3) add(b vec3) vec3      { return vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a vec3) dot(b vec3) float32   { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func (a vec3) length() float32      { return sqrt(a.dot(a)) }

func (a vec3) normalize() vec3 {
	l := a.length()
	if l == 0 {
		return a
	}
	return a.scale(1 / l)
}

func (a vec4) xy() vec2  { return vec2{a[0], a[1]} }
func (a vec4) rgb() vec3 { return vec3{a[0], a[1], a[2]} }

func (a vec4) scale(s float32) vec4 {
	return vec4{a[0] * s, a[1] * s, a[2] * s, a[3] * s}
}

func mix(a, b vec4, t float32) vec4 {
	return vec4{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
		a[3] + (b[3]-a[3])*t,
	}
}

func sqrt(v float32) float32 { return float32(math.Sqrt(float64(v))) }
func exp(v float32) float32  { return float32(math.Exp(float64(v))) }
func abs(v float32) float32  { return float32(math.Abs(float64(v))) }
func floor(v float32) float32 {
	return float32(math.Floor(float64(v)))
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
