package desktop

// Point is a screen coordinate in pixels. Windows are never clamped, so
// either component may be negative or beyond the viewport.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// DragState is either Idle or Dragging.
type DragState interface {
	dragState()
}

// Idle is the resting drag state.
type Idle struct{}

// Dragging holds the pointer-to-origin offset captured at pointer-down.
type Dragging struct {
	Offset Point
}

func (Idle) dragState()     {}
func (Dragging) dragState() {}

// Window is the mutable per-application record. It is created on first open
// and kept for the lifetime of the desktop; closing only hides it.
type Window struct {
	App      AppID
	Open     bool
	Position Point
	Drag     DragState
	Z        int64

	seq int
}

// IsDragging reports whether the window is in the Dragging state
func (w *Window) IsDragging() bool {
	_, ok := w.Drag.(Dragging)
	return ok
}

// DragOffset returns the captured offset while dragging
func (w *Window) DragOffset() (Point, bool) {
	d, ok := w.Drag.(Dragging)
	if !ok {
		return Point{}, false
	}
	return d.Offset, true
}
