package session

import (
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"github.com/bryanchriswhite/webdesk/internal/logger"
	"github.com/bryanchriswhite/webdesk/internal/media"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrSessionNotFound = errors.New("session not found")

// Recorder receives desktop activity plus the number of live sessions
type Recorder interface {
	desktop.Recorder
	SessionsActive(n int)
}

// Options describe how every new desktop is built. Layout, ZBase and
// SpawnRange are passed through as given, zero included.
type Options struct {
	Catalog    *desktop.Catalog
	Layout     desktop.Layout
	ZBase      int64
	SpawnRange float64
	Links      []desktop.Link
	Playlist   []media.Track
	Recorder   Recorder

	// Rand, when set, supplies each desktop's spawn position source
	Rand func() *rand.Rand
	Now  func() time.Time
}

// Shell is one mounted desktop and its audio player
type Shell struct {
	ID      string
	Desktop *desktop.Desktop
	// Player is nil when no app in the catalog hosts the audio surface
	Player  *media.Player
	Created time.Time

	lastSeen time.Time
	holds    int
}

// Info summarises a shell for listings
type Info struct {
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	LastSeen time.Time `json:"last_seen"`
	Open     int       `json:"open_windows"`
	Streams  int       `json:"streams"`
}

// Manager owns every mounted shell
type Manager struct {
	mu     sync.Mutex
	opts   Options
	shells map[string]*Shell
	log    *zerolog.Logger
}

// NewManager creates an empty session manager
func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		opts:   opts,
		shells: make(map[string]*Shell),
		log:    logger.WithComponent("session"),
	}
}

// Create mounts a new desktop
func (m *Manager) Create() *Shell {
	desktopOpts := []desktop.Option{
		desktop.WithLayout(m.opts.Layout),
		desktop.WithLinks(m.opts.Links),
		desktop.WithZBase(m.opts.ZBase),
		desktop.WithSpawnRange(m.opts.SpawnRange),
	}
	if m.opts.Recorder != nil {
		desktopOpts = append(desktopOpts, desktop.WithRecorder(m.opts.Recorder))
	}
	if m.opts.Rand != nil {
		desktopOpts = append(desktopOpts, desktop.WithRand(m.opts.Rand()))
	}

	var player *media.Player
	if app, ok := m.opts.Catalog.FindBySurface(media.SurfaceName); ok {
		player = media.NewPlayer(m.opts.Playlist)
		desktopOpts = append(desktopOpts, desktop.WithSurface(app.ID, player))
	}

	d := desktop.New(m.opts.Catalog, desktopOpts...)
	if player != nil {
		player.SetReporter(d.SetNowPlaying)
	}

	now := m.opts.Now()
	shell := &Shell{
		ID:       uuid.NewString(),
		Desktop:  d,
		Player:   player,
		Created:  now,
		lastSeen: now,
	}

	m.mu.Lock()
	m.shells[shell.ID] = shell
	n := len(m.shells)
	m.mu.Unlock()

	m.reportActive(n)
	m.log.Info().Str("session", shell.ID).Int("active", n).Msg("Session created")
	return shell
}

// Get returns a shell and marks it as recently used
func (m *Manager) Get(id string) (*Shell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	shell, ok := m.shells[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	shell.lastSeen = m.opts.Now()
	return shell, nil
}

// Hold keeps a shell from being reaped until release is called. Streaming
// connections hold their shell for their whole lifetime.
func (m *Manager) Hold(id string) (release func(), err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	shell, ok := m.shells[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	shell.holds++
	shell.lastSeen = m.opts.Now()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			shell.holds--
			shell.lastSeen = m.opts.Now()
		})
	}, nil
}

// Delete unmounts a shell: audio stops and subscribers are released
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	shell, ok := m.shells[id]
	if ok {
		delete(m.shells, id)
	}
	n := len(m.shells)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	unmount(shell)
	m.reportActive(n)
	m.log.Info().Str("session", id).Int("active", n).Msg("Session deleted")
	return nil
}

// List returns every shell ordered by creation time
func (m *Manager) List() []Info {
	m.mu.Lock()
	shells := make([]*Shell, 0, len(m.shells))
	infos := make([]Info, 0, len(m.shells))
	for _, shell := range m.shells {
		shells = append(shells, shell)
		infos = append(infos, Info{
			ID:       shell.ID,
			Created:  shell.Created,
			LastSeen: shell.lastSeen,
			Streams:  shell.holds,
		})
	}
	m.mu.Unlock()

	for i, shell := range shells {
		infos[i].Open = len(shell.Desktop.ListOpen())
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Created.Equal(infos[j].Created) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Created.Before(infos[j].Created)
	})
	return infos
}

// Catalog returns the applications every shell is built from
func (m *Manager) Catalog() *desktop.Catalog {
	return m.opts.Catalog
}

// Len returns the number of mounted shells
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shells)
}

// Reap unmounts shells idle for longer than ttl that nothing holds
func (m *Manager) Reap(ttl time.Duration) int {
	now := m.opts.Now()

	m.mu.Lock()
	var expired []*Shell
	for id, shell := range m.shells {
		if shell.holds > 0 || now.Sub(shell.lastSeen) <= ttl {
			continue
		}
		expired = append(expired, shell)
		delete(m.shells, id)
	}
	n := len(m.shells)
	m.mu.Unlock()

	for _, shell := range expired {
		unmount(shell)
		m.log.Info().Str("session", shell.ID).Msg("Reaped idle session")
	}
	if len(expired) > 0 {
		m.reportActive(n)
	}
	return len(expired)
}

// Close unmounts every shell
func (m *Manager) Close() {
	m.mu.Lock()
	shells := m.shells
	m.shells = make(map[string]*Shell)
	m.mu.Unlock()

	for _, shell := range shells {
		unmount(shell)
	}
	m.reportActive(0)
}

func (m *Manager) reportActive(n int) {
	if m.opts.Recorder != nil {
		m.opts.Recorder.SessionsActive(n)
	}
}

func unmount(shell *Shell) {
	if shell.Player != nil {
		shell.Player.Stop()
	}
	shell.Desktop.Unmount()
}
