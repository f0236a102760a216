package app

import (
	"math"
	"math/rand/v2"

	"github.com/pthm-cable/fluidfx/fluid"
)

// Stroke timing for scripted input, in frames.
const (
	strokePeriod = 90
	strokeLength = 45
)

// Script drives the primary pointer along seeded Lissajous strokes so
// headless runs exercise splats the way a user drag would.
type Script struct {
	w, h float64
	rng  *rand.Rand
	cur  stroke
}

type stroke struct {
	cx, cy float64
	ax, ay float64
	fx, fy float64
	phase  float64
}

// NewScript creates a script over a client area of w by h pixels.
func NewScript(w, h int, seed uint64) *Script {
	return &Script{
		w:   float64(w),
		h:   float64(h),
		rng: rand.New(rand.NewPCG(seed, seed+1)),
	}
}

// Feed issues the events for one frame.
func (s *Script) Feed(sink pointerSink, frame int) {
	k := frame % strokePeriod
	switch {
	case k == 0:
		s.cur = s.next()
		x, y := s.at(0)
		sink.PointerDown(fluid.PrimaryPointer, x, y)
	case k < strokeLength:
		x, y := s.at(k)
		sink.PointerMove(fluid.PrimaryPointer, x, y)
	case k == strokeLength:
		sink.PointerUp(fluid.PrimaryPointer)
	}
}

func (s *Script) next() stroke {
	r := s.rng.Float64
	return stroke{
		cx:    0.3 + 0.4*r(),
		cy:    0.3 + 0.4*r(),
		ax:    0.1 + 0.15*r(),
		ay:    0.1 + 0.15*r(),
		fx:    1 + 2*r(),
		fy:    1 + 2*r(),
		phase: 2 * math.Pi * r(),
	}
}

// at returns the client position k frames into the current stroke.
func (s *Script) at(k int) (float64, float64) {
	c := s.cur
	t := float64(k) / strokeLength * 2 * math.Pi
	x := c.cx + c.ax*math.Sin(c.fx*t+c.phase)
	y := c.cy + c.ay*math.Sin(c.fy*t)
	return x * s.w, y * s.h
}
