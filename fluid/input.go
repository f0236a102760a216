package fluid

import (
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// PrimaryPointer is the id of the mouse pointer, which always exists.
const PrimaryPointer = -1

// EventKind distinguishes pointer events.
type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	}
	return "unknown"
}

// Event is a pointer event in surface client pixels, origin top-left.
type Event struct {
	Kind EventKind
	ID   int
	X, Y float64
}

// Queue buffers events from input callbacks until the next tick drains
// them. Push never blocks the frame and never drops events.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// Push appends an event. Safe from any goroutine.
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

// Drain moves every queued event, in arrival order, into buf.
func (q *Queue) Drain(buf []Event) []Event {
	q.mu.Lock()
	buf = append(buf, q.events...)
	q.events = q.events[:0]
	q.mu.Unlock()
	return buf
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Pointer is the tracked state of one pointer or touch contact.
// Coordinates are texture space: x right, y up, both in [0,1].
type Pointer struct {
	ID     int
	TexX   float64
	TexY   float64
	PrevX  float64
	PrevY  float64
	DeltaX float64
	DeltaY float64
	Down   bool
	Moved  bool
	// Placed is false until a down or move has given the pointer a
	// position.
	Placed bool
	Color  colorful.Color
}

// Pointers is the pointer table. The primary pointer is created up front;
// touch ids are added on their first down and never removed.
type Pointers struct {
	list []*Pointer
	byID map[int]*Pointer
}

// NewPointers creates a table holding only the primary pointer.
func NewPointers() *Pointers {
	p := &Pointer{ID: PrimaryPointer}
	return &Pointers{
		list: []*Pointer{p},
		byID: map[int]*Pointer{PrimaryPointer: p},
	}
}

// Get returns the pointer for id, or nil if unknown.
func (ps *Pointers) Get(id int) *Pointer { return ps.byID[id] }

// Len returns the number of known pointers.
func (ps *Pointers) Len() int { return len(ps.list) }

// All returns pointers in creation order.
func (ps *Pointers) All() []*Pointer { return ps.list }

// Down records a press at texture coordinates, creating the pointer if the
// id is new. Previous equals current and the delta is zero.
func (ps *Pointers) Down(id int, x, y float64, color colorful.Color) *Pointer {
	p := ps.byID[id]
	if p == nil {
		p = &Pointer{ID: id}
		ps.byID[id] = p
		ps.list = append(ps.list, p)
	}
	p.Down = true
	p.Moved = false
	p.Placed = true
	p.TexX, p.TexY = x, y
	p.PrevX, p.PrevY = x, y
	p.DeltaX, p.DeltaY = 0, 0
	p.Color = color
	return p
}

// Move records motion for a known pointer. The delta is corrected so equal
// on-screen distances produce equal deltas on either axis. The first move of
// a pointer that was never placed only sets its position. Unknown ids are
// ignored and reported false.
func (ps *Pointers) Move(id int, x, y, aspect float64) bool {
	p := ps.byID[id]
	if p == nil {
		return false
	}
	if !p.Placed {
		p.Placed = true
		p.TexX, p.TexY = x, y
		p.PrevX, p.PrevY = x, y
		p.DeltaX, p.DeltaY = 0, 0
		p.Moved = false
		return true
	}
	p.PrevX, p.PrevY = p.TexX, p.TexY
	p.TexX, p.TexY = x, y
	p.DeltaX = correctDeltaX(x-p.PrevX, aspect)
	p.DeltaY = correctDeltaY(y-p.PrevY, aspect)
	p.Moved = true
	return true
}

// Up releases a known pointer. Unknown ids are ignored.
func (ps *Pointers) Up(id int) bool {
	p := ps.byID[id]
	if p == nil {
		return false
	}
	p.Down = false
	return true
}

func correctDeltaX(d, aspect float64) float64 {
	if aspect < 1 {
		d *= aspect
	}
	return d
}

func correctDeltaY(d, aspect float64) float64 {
	if aspect > 1 {
		d /= aspect
	}
	return d
}
