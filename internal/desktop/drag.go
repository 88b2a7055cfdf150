package desktop

// DragController turns pointer events into raise and move operations.
// Each window keeps its own drag state, so several logical drags can be in
// flight at once.
type DragController struct {
	registry *Registry
	z        *ZAllocator
}

// NewDragController binds a controller to a registry and its allocator
func NewDragController(registry *Registry, z *ZAllocator) *DragController {
	return &DragController{registry: registry, z: z}
}

// PointerDown starts dragging an open window and raises it.
func (d *DragController) PointerDown(id AppID, pointer Point) bool {
	w, ok := d.registry.lookup(id)
	if !ok || !w.Open {
		return false
	}

	w.Drag = Dragging{Offset: pointer.Sub(w.Position)}
	d.z.Raise(w)
	return true
}

// PointerMove repositions id if it is being dragged. Moves for idle windows
// are ignored, which also absorbs a stray move delivered after pointer-up.
func (d *DragController) PointerMove(id AppID, pointer Point) bool {
	w, ok := d.registry.lookup(id)
	if !ok {
		return false
	}
	return move(w, pointer)
}

// PointerMoveAll repositions every dragging window and returns how many moved
func (d *DragController) PointerMoveAll(pointer Point) int {
	moved := 0
	d.registry.each(func(w *Window) {
		if move(w, pointer) {
			moved++
		}
	})
	return moved
}

// PointerUp ends the drag of every window and returns how many were released
func (d *DragController) PointerUp() int {
	released := 0
	d.registry.each(func(w *Window) {
		if w.IsDragging() {
			w.Drag = Idle{}
			released++
		}
	})
	return released
}

// Release ends the drag of a single window
func (d *DragController) Release(id AppID) bool {
	w, ok := d.registry.lookup(id)
	if !ok || !w.IsDragging() {
		return false
	}
	w.Drag = Idle{}
	return true
}

func move(w *Window, pointer Point) bool {
	offset, dragging := w.DragOffset()
	if !dragging {
		return false
	}
	w.Position = pointer.Sub(offset)
	return true
}
