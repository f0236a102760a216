package app

import (
	"slices"

	"github.com/pthm-cable/fluidfx/fluid"
)

// pointerSink receives pointer events in client pixels. *fluid.Engine
// implements it.
type pointerSink interface {
	PointerDown(id int, x, y float64)
	PointerMove(id int, x, y float64)
	PointerUp(id int)
}

// mouseState turns polled mouse state into pointer events. Hover moves
// are forwarded too, so the fluid follows the cursor without a press. The
// engine treats the first move as placement, not motion.
type mouseState struct {
	x, y  float64
	valid bool
}

func (m *mouseState) update(sink pointerSink, x, y float64, pressed, released bool) {
	if pressed {
		sink.PointerDown(fluid.PrimaryPointer, x, y)
	} else if !m.valid || x != m.x || y != m.y {
		sink.PointerMove(fluid.PrimaryPointer, x, y)
	}
	if released {
		sink.PointerUp(fluid.PrimaryPointer)
	}
	m.x, m.y, m.valid = x, y, true
}

type touchPoint struct {
	id   int
	x, y float64
}

// touchTracker diffs the contacts polled each frame against the previous
// frame: new ids go down, known ids move, missing ids go up.
type touchTracker struct {
	last map[int]touchPoint
}

func newTouchTracker() touchTracker {
	return touchTracker{last: make(map[int]touchPoint)}
}

func (t *touchTracker) update(sink pointerSink, points []touchPoint) {
	seen := make(map[int]bool, len(points))
	for _, p := range points {
		seen[p.id] = true
		prev, ok := t.last[p.id]
		switch {
		case !ok:
			sink.PointerDown(p.id, p.x, p.y)
		case prev.x != p.x || prev.y != p.y:
			sink.PointerMove(p.id, p.x, p.y)
		}
		t.last[p.id] = p
	}
	var gone []int
	for id := range t.last {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	slices.Sort(gone)
	for _, id := range gone {
		sink.PointerUp(id)
		delete(t.last, id)
	}
}
