package desktop

import "sort"

// Registry tracks Window records for the catalog's applications. It is not
// safe for concurrent use; Desktop serialises access.
type Registry struct {
	catalog *Catalog
	z       *ZAllocator
	spawn   func() Point
	windows map[AppID]*Window
	nextSeq int
}

// NewRegistry creates an empty registry. spawn supplies the initial position
// of a window the first time it is opened.
func NewRegistry(catalog *Catalog, z *ZAllocator, spawn func() Point) *Registry {
	return &Registry{
		catalog: catalog,
		z:       z,
		spawn:   spawn,
		windows: make(map[AppID]*Window),
	}
}

// Open shows the window for id, creating it on first use, and raises it.
// shown reports a closed-to-open transition. Unknown ids are ignored.
func (r *Registry) Open(id AppID) (shown bool, ok bool) {
	if !r.catalog.Contains(id) {
		return false, false
	}

	w, exists := r.windows[id]
	if !exists {
		w = &Window{
			App:      id,
			Position: r.spawn(),
			Drag:     Idle{},
			seq:      r.nextSeq,
		}
		r.nextSeq++
		r.windows[id] = w
	}

	shown = !w.Open
	w.Open = true
	r.z.Raise(w)
	return shown, true
}

// Close hides the window for id. Its position and stacking value are kept.
// hidden reports an open-to-closed transition; known reports whether id is in
// the catalog at all.
func (r *Registry) Close(id AppID) (hidden bool, known bool) {
	if !r.catalog.Contains(id) {
		return false, false
	}

	w, exists := r.windows[id]
	if !exists || !w.Open {
		return false, true
	}

	w.Open = false
	w.Drag = Idle{}
	return true, true
}

// Raise moves an open window to the top of the stack
func (r *Registry) Raise(id AppID) bool {
	w, ok := r.windows[id]
	if !ok || !w.Open {
		return false
	}
	r.z.Raise(w)
	return true
}

// Window returns a copy of the record for id
func (r *Registry) Window(id AppID) (Window, bool) {
	w, ok := r.windows[id]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// ListOpen returns the open windows in first-opened order. Stacking does not
// affect this order.
func (r *Registry) ListOpen() []Window {
	open := make([]Window, 0, len(r.windows))
	for _, w := range r.windows {
		if w.Open {
			open = append(open, *w)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].seq < open[j].seq })
	return open
}

func (r *Registry) lookup(id AppID) (*Window, bool) {
	w, ok := r.windows[id]
	return w, ok
}

func (r *Registry) each(fn func(w *Window)) {
	for _, w := range r.windows {
		fn(w)
	}
}
