package app

import (
	"fmt"
	"slices"
	"testing"

	"github.com/pthm-cable/fluidfx/fluid"
)

type recorder struct {
	events []string
}

func (r *recorder) PointerDown(id int, x, y float64) {
	r.events = append(r.events, fmt.Sprintf("down %d %g %g", id, x, y))
}

func (r *recorder) PointerMove(id int, x, y float64) {
	r.events = append(r.events, fmt.Sprintf("move %d %g %g", id, x, y))
}

func (r *recorder) PointerUp(id int) {
	r.events = append(r.events, fmt.Sprintf("up %d", id))
}

func TestMouseState(t *testing.T) {
	var r recorder
	var m mouseState
	m.update(&r, 10, 10, false, false)
	m.update(&r, 10, 10, false, false)
	m.update(&r, 12, 10, true, false)
	m.update(&r, 14, 11, false, false)
	m.update(&r, 14, 11, false, true)

	p := fluid.PrimaryPointer
	want := []string{
		fmt.Sprintf("move %d 10 10", p),
		fmt.Sprintf("down %d 12 10", p),
		fmt.Sprintf("move %d 14 11", p),
		fmt.Sprintf("up %d", p),
	}
	if !slices.Equal(r.events, want) {
		t.Errorf("events = %q, want %q", r.events, want)
	}
}

func TestTouchTracker(t *testing.T) {
	var r recorder
	tt := newTouchTracker()
	tt.update(&r, []touchPoint{{id: 3, x: 1, y: 1}, {id: 5, x: 2, y: 2}})
	tt.update(&r, []touchPoint{{id: 3, x: 1, y: 1}, {id: 5, x: 4, y: 2}})
	tt.update(&r, []touchPoint{{id: 5, x: 4, y: 2}})
	tt.update(&r, nil)

	want := []string{
		"down 3 1 1",
		"down 5 2 2",
		"move 5 4 2",
		"up 3",
		"up 5",
	}
	if !slices.Equal(r.events, want) {
		t.Errorf("events = %q, want %q", r.events, want)
	}
	if len(tt.last) != 0 {
		t.Errorf("tracker still holds %d contacts", len(tt.last))
	}
}
