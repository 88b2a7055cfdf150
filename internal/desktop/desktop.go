package desktop

import (
	"math/rand/v2"
	"sync"

	"github.com/bryanchriswhite/webdesk/internal/logger"
	"github.com/rs/zerolog"
)

const (
	DefaultZBase        = 1000
	DefaultSpawnRange   = 100
	DefaultWindowWidth  = 500
	DefaultWindowHeight = 550
	DefaultIconColumns  = 3
)

// Surface is the lifecycle contract of a hosted mini-app. Mount runs when its
// window becomes visible and Unmount when it is closed.
type Surface interface {
	Mount(id AppID)
	Unmount(id AppID)
}

// Recorder receives window-management activity, typically for metrics
type Recorder interface {
	WindowOpened(id AppID)
	WindowClosed(id AppID)
	WindowRaised(id AppID)
	DragStarted(id AppID)
}

type nopRecorder struct{}

func (nopRecorder) WindowOpened(AppID) {}
func (nopRecorder) WindowClosed(AppID) {}
func (nopRecorder) WindowRaised(AppID) {}
func (nopRecorder) DragStarted(AppID)  {}

// Layout holds the fixed geometry of the shell
type Layout struct {
	WindowWidth  float64
	WindowHeight float64
	IconColumns  int
}

// Option configures a Desktop
type Option func(*Desktop)

// WithRand sets the random source used for initial window positions
func WithRand(r *rand.Rand) Option {
	return func(d *Desktop) { d.rng = r }
}

// WithSpawnRange sets the upper bound (exclusive) of initial x and y
func WithSpawnRange(max float64) Option {
	return func(d *Desktop) { d.spawnRange = max }
}

// WithZBase sets the first stacking value handed out
func WithZBase(base int64) Option {
	return func(d *Desktop) { d.zBase = base }
}

// WithLayout overrides the window size and icon grid width
func WithLayout(l Layout) Option {
	return func(d *Desktop) { d.layout = l }
}

// WithLinks sets the taskbar pass-through links
func WithLinks(links []Link) Option {
	return func(d *Desktop) { d.links = append([]Link(nil), links...) }
}

// WithRecorder reports activity to r
func WithRecorder(r Recorder) Option {
	return func(d *Desktop) { d.recorder = r }
}

// WithSurface attaches a lifecycle-aware surface to id
func WithSurface(id AppID, s Surface) Option {
	return func(d *Desktop) { d.surfaces[id] = s }
}

// Desktop is the state owned by one mounted shell: window records, the
// stacking counter, drag state and shell chrome. All methods are safe for
// concurrent use and run to completion one at a time.
type Desktop struct {
	mu       sync.Mutex
	catalog  *Catalog
	layout   Layout
	links    []Link
	z        *ZAllocator
	registry *Registry
	drag     *DragController

	startMenuOpen bool
	nowPlaying    bool
	version       uint64

	zBase      int64
	spawnRange float64
	rng        *rand.Rand
	surfaces   map[AppID]Surface
	recorder   Recorder

	subsMu    sync.Mutex
	subs      map[chan Scene]struct{}
	published uint64
	closed    bool

	log *zerolog.Logger
}

// New mounts a desktop for the catalog
func New(catalog *Catalog, opts ...Option) *Desktop {
	d := &Desktop{
		catalog: catalog,
		layout: Layout{
			WindowWidth:  DefaultWindowWidth,
			WindowHeight: DefaultWindowHeight,
			IconColumns:  DefaultIconColumns,
		},
		zBase:      DefaultZBase,
		spawnRange: DefaultSpawnRange,
		surfaces:   make(map[AppID]Surface),
		recorder:   nopRecorder{},
		subs:       make(map[chan Scene]struct{}),
		log:        logger.WithComponent("desktop"),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.layout.IconColumns <= 0 {
		d.layout.IconColumns = DefaultIconColumns
	}

	d.z = NewZAllocator(d.zBase)
	d.registry = NewRegistry(catalog, d.z, d.spawn)
	d.drag = NewDragController(d.registry, d.z)
	return d
}

func (d *Desktop) spawn() Point {
	if d.rng != nil {
		return Point{X: d.rng.Float64() * d.spawnRange, Y: d.rng.Float64() * d.spawnRange}
	}
	return Point{X: rand.Float64() * d.spawnRange, Y: rand.Float64() * d.spawnRange}
}

// Catalog returns the descriptors this desktop was built from
func (d *Desktop) Catalog() *Catalog {
	return d.catalog
}

// AttachSurface sets or replaces the surface for id after construction.
// Production desktops use WithSurface; tests use this to swap surfaces in.
func (d *Desktop) AttachSurface(id AppID, s Surface) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.surfaces[id] = s
}

// update runs fn under the lock. When fn reports a change, the new scene is
// published and then any deferred effects run outside the lock, so effects may
// call back into the desktop.
func (d *Desktop) update(fn func() (changed bool, effects []func())) {
	d.mu.Lock()
	changed, effects := fn()
	var scene Scene
	if changed {
		d.version++
		scene = d.sceneLocked()
	}
	d.mu.Unlock()

	if changed {
		d.publish(scene)
	}
	for _, effect := range effects {
		effect()
	}
}

// Open shows id and raises it to the front. Re-opening an open window is how
// focus works: it only raises.
func (d *Desktop) Open(id AppID) {
	d.update(func() (bool, []func()) {
		shown, ok := d.registry.Open(id)
		if !ok {
			d.log.Debug().Int("app", int(id)).Msg("Ignoring open for unknown app")
			return false, nil
		}

		d.recorder.WindowRaised(id)
		if !shown {
			return true, nil
		}

		d.recorder.WindowOpened(id)
		d.log.Debug().Int("app", int(id)).Msg("Window opened")
		if s, ok := d.surfaces[id]; ok {
			return true, []func(){func() { s.Mount(id) }}
		}
		return true, nil
	})
}

// Focus re-raises id; it is Open under another name for taskbar clicks
func (d *Desktop) Focus(id AppID) {
	d.Open(id)
}

// Close hides id. A surface attached to id is unmounted whenever id is a
// known app, even if its window was never shown, so external resources such
// as audio playback are always released.
func (d *Desktop) Close(id AppID) {
	d.update(func() (bool, []func()) {
		hidden, known := d.registry.Close(id)
		if !known {
			d.log.Debug().Int("app", int(id)).Msg("Ignoring close for unknown app")
			return false, nil
		}

		var effects []func()
		if s, ok := d.surfaces[id]; ok {
			effects = append(effects, func() { s.Unmount(id) })
		}
		if hidden {
			d.recorder.WindowClosed(id)
			d.log.Debug().Int("app", int(id)).Msg("Window closed")
		}
		return hidden, effects
	})
}

// Raise moves an open window to the front without opening it
func (d *Desktop) Raise(id AppID) {
	d.update(func() (bool, []func()) {
		if !d.registry.Raise(id) {
			return false, nil
		}
		d.recorder.WindowRaised(id)
		return true, nil
	})
}

// PointerDown begins dragging id at pointer (x, y)
func (d *Desktop) PointerDown(id AppID, x, y float64) {
	d.update(func() (bool, []func()) {
		if !d.drag.PointerDown(id, Point{X: x, Y: y}) {
			return false, nil
		}
		d.recorder.DragStarted(id)
		d.recorder.WindowRaised(id)
		return true, nil
	})
}

// PointerMove drags id to follow the pointer
func (d *Desktop) PointerMove(id AppID, x, y float64) {
	d.update(func() (bool, []func()) {
		return d.drag.PointerMove(id, Point{X: x, Y: y}), nil
	})
}

// PointerMoveAll drags every window currently being dragged
func (d *Desktop) PointerMoveAll(x, y float64) {
	d.update(func() (bool, []func()) {
		return d.drag.PointerMoveAll(Point{X: x, Y: y}) > 0, nil
	})
}

// PointerUp ends every drag. The desktop background owns the release handler,
// so one release stops all windows.
func (d *Desktop) PointerUp() {
	d.update(func() (bool, []func()) {
		return d.drag.PointerUp() > 0, nil
	})
}

// Release ends the drag of one window only
func (d *Desktop) Release(id AppID) {
	d.update(func() (bool, []func()) {
		return d.drag.Release(id), nil
	})
}

// ToggleStartMenu flips the start menu
func (d *Desktop) ToggleStartMenu() {
	d.update(func() (bool, []func()) {
		d.startMenuOpen = !d.startMenuOpen
		return true, nil
	})
}

// LaunchFromStartMenu opens id and dismisses the start menu
func (d *Desktop) LaunchFromStartMenu(id AppID) {
	d.Open(id)
	d.update(func() (bool, []func()) {
		if !d.startMenuOpen {
			return false, nil
		}
		d.startMenuOpen = false
		return true, nil
	})
}

// SetNowPlaying is the playback report callback handed to the audio surface
func (d *Desktop) SetNowPlaying(playing bool) {
	d.update(func() (bool, []func()) {
		if d.nowPlaying == playing {
			return false, nil
		}
		d.nowPlaying = playing
		return true, nil
	})
}

// Window returns a copy of the record for id
func (d *Desktop) Window(id AppID) (Window, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.Window(id)
}

// ListOpen returns open windows in taskbar order
func (d *Desktop) ListOpen() []Window {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.ListOpen()
}

// StartMenuOpen reports whether the start menu is showing
func (d *Desktop) StartMenuOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startMenuOpen
}

// NowPlaying reports the last playback state reported by the audio surface
func (d *Desktop) NowPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nowPlaying
}

// NextZ returns the value the next raise will receive. It is a test hook.
func (d *Desktop) NextZ() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.z.Peek()
}

// Scene returns the current scene graph
func (d *Desktop) Scene() Scene {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sceneLocked()
}

// Subscribe returns a channel receiving a scene after every change. The
// channel holds at most one scene; a slow reader skips intermediate scenes but
// always sees the latest one.
func (d *Desktop) Subscribe() <-chan Scene {
	ch := make(chan Scene, 1)
	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	if d.closed {
		close(ch)
		return ch
	}
	d.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe
func (d *Desktop) Unsubscribe(ch <-chan Scene) {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	for sub := range d.subs {
		if sub == ch {
			delete(d.subs, sub)
			close(sub)
			return
		}
	}
}

// Unmount releases every subscriber. The desktop must not be used afterwards.
func (d *Desktop) Unmount() {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for sub := range d.subs {
		close(sub)
	}
	d.subs = nil
}

func (d *Desktop) publish(scene Scene) {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()

	// Concurrent updates may reach here out of order
	if d.closed || scene.Version <= d.published {
		return
	}
	d.published = scene.Version

	for sub := range d.subs {
		select {
		case sub <- scene:
		default:
			select {
			case <-sub:
			default:
			}
			sub <- scene
		}
	}
}
