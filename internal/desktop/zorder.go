package desktop

// ZAllocator hands out strictly increasing stacking priorities. It is never
// reset or compacted; an int64 will not wrap within a session.
type ZAllocator struct {
	next int64
}

// NewZAllocator starts the counter at base
func NewZAllocator(base int64) *ZAllocator {
	return &ZAllocator{next: base}
}

// Next consumes and returns the current counter value
func (z *ZAllocator) Next() int64 {
	c := z.next
	z.next++
	return c
}

// Peek returns the value the next raise will receive
func (z *ZAllocator) Peek() int64 {
	return z.next
}

// Raise assigns w the next stacking priority
func (z *ZAllocator) Raise(w *Window) {
	w.Z = z.Next()
}
