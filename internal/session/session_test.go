package session

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"github.com/bryanchriswhite/webdesk/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const musicApp desktop.AppID = 8

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingRecorder struct {
	mu     sync.Mutex
	active []int
	opened int
}

func (r *countingRecorder) WindowOpened(desktop.AppID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
}
func (r *countingRecorder) WindowClosed(desktop.AppID) {}
func (r *countingRecorder) WindowRaised(desktop.AppID) {}
func (r *countingRecorder) DragStarted(desktop.AppID)  {}
func (r *countingRecorder) SessionsActive(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = append(r.active, n)
}

func newTestManager(t *testing.T, clock *fakeClock, rec Recorder) *Manager {
	t.Helper()
	catalog, err := desktop.NewCatalog([]desktop.Descriptor{
		{ID: 1, Name: "My Diary", Surface: "diary"},
		{ID: 2, Name: "Family", Surface: "family-photos"},
		{ID: musicApp, Name: "Music Player", Surface: media.SurfaceName},
	})
	require.NoError(t, err)

	return NewManager(Options{
		Catalog:  catalog,
		Layout:   desktop.Layout{WindowWidth: 500, WindowHeight: 550, IconColumns: 3},
		Playlist: []media.Track{{Title: "One", Src: "/music/1.m4a"}},
		Recorder: rec,
		Rand:     func() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) },
		Now:      clock.Now,
	})
}

func TestCreateGetDelete(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	rec := &countingRecorder{}
	m := newTestManager(t, clock, rec)

	shell := m.Create()
	require.NotEmpty(t, shell.ID)
	require.NotNil(t, shell.Player)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(shell.ID)
	require.NoError(t, err)
	assert.Same(t, shell, got)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, m.Delete(shell.ID))
	assert.ErrorIs(t, m.Delete(shell.ID), ErrSessionNotFound)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, []int{1, 0}, rec.active)
}

func TestShellsAreIndependent(t *testing.T) {
	m := newTestManager(t, &fakeClock{now: time.Unix(0, 0)}, nil)

	a := m.Create()
	b := m.Create()
	assert.NotEqual(t, a.ID, b.ID)

	a.Desktop.Open(1)
	_, ok := a.Desktop.Window(1)
	assert.True(t, ok)
	_, ok = b.Desktop.Window(1)
	assert.False(t, ok)
}

func TestCreateHonorsZeroZBaseAndSpawnRange(t *testing.T) {
	catalog, err := desktop.NewCatalog([]desktop.Descriptor{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}})
	require.NoError(t, err)
	m := NewManager(Options{Catalog: catalog, ZBase: 0, SpawnRange: 0})
	t.Cleanup(m.Close)

	d := m.Create().Desktop
	d.Open(1)
	d.Open(2)

	w1, ok := d.Window(1)
	require.True(t, ok)
	w2, _ := d.Window(2)
	assert.Equal(t, int64(0), w1.Z)
	assert.Equal(t, int64(1), w2.Z)
	assert.Equal(t, desktop.Point{}, w1.Position)
}

func TestCreatePassesZBase(t *testing.T) {
	catalog, err := desktop.NewCatalog([]desktop.Descriptor{{ID: 1, Name: "A"}})
	require.NoError(t, err)
	m := NewManager(Options{Catalog: catalog, ZBase: 42, SpawnRange: 10})
	t.Cleanup(m.Close)

	d := m.Create().Desktop
	d.Open(1)
	w, _ := d.Window(1)
	assert.Equal(t, int64(42), w.Z)
	assert.Less(t, w.Position.X, 10.0)
	assert.Less(t, w.Position.Y, 10.0)
}

func TestPlayerReportsToItsDesktop(t *testing.T) {
	m := newTestManager(t, &fakeClock{now: time.Unix(0, 0)}, nil)
	shell := m.Create()

	shell.Desktop.Open(musicApp)
	require.NoError(t, shell.Player.Play())
	assert.True(t, shell.Desktop.NowPlaying())

	shell.Desktop.Close(musicApp)
	assert.False(t, shell.Player.State().Playing)
	assert.False(t, shell.Desktop.NowPlaying())
}

func TestNoPlayerWithoutAudioApp(t *testing.T) {
	catalog, err := desktop.NewCatalog([]desktop.Descriptor{{ID: 1, Name: "Only"}})
	require.NoError(t, err)
	m := NewManager(Options{Catalog: catalog})

	shell := m.Create()
	assert.Nil(t, shell.Player)
	require.NoError(t, m.Delete(shell.ID))
}

func TestDeleteStopsPlaybackAndClosesStreams(t *testing.T) {
	m := newTestManager(t, &fakeClock{now: time.Unix(0, 0)}, nil)
	shell := m.Create()
	sub := shell.Desktop.Subscribe()

	shell.Desktop.Open(musicApp)
	require.NoError(t, shell.Player.Play())

	require.NoError(t, m.Delete(shell.ID))
	assert.False(t, shell.Player.State().Playing)

	// drain whatever was published, then the channel must be closed
	for range sub {
	}
}

func TestReap(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	m := newTestManager(t, clock, nil)

	idle := m.Create()
	busy := m.Create()
	held := m.Create()

	release, err := m.Hold(held.ID)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	_, err = m.Get(busy.ID)
	require.NoError(t, err)

	clock.Advance(25 * time.Minute)
	assert.Equal(t, 1, m.Reap(30*time.Minute))

	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(busy.ID)
	assert.NoError(t, err)
	_, err = m.Get(held.ID)
	assert.NoError(t, err)

	release()
	release()
	clock.Advance(31 * time.Minute)
	assert.Equal(t, 2, m.Reap(30*time.Minute))
	assert.Equal(t, 0, m.Len())
}

func TestHoldUnknown(t *testing.T) {
	m := newTestManager(t, &fakeClock{now: time.Unix(0, 0)}, nil)
	_, err := m.Hold("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestList(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	m := newTestManager(t, clock, nil)

	first := m.Create()
	clock.Advance(time.Second)
	second := m.Create()
	second.Desktop.Open(1)
	second.Desktop.Open(2)

	infos := m.List()
	require.Len(t, infos, 2)
	assert.Equal(t, first.ID, infos[0].ID)
	assert.Equal(t, second.ID, infos[1].ID)
	assert.Equal(t, 0, infos[0].Open)
	assert.Equal(t, 2, infos[1].Open)
}

func TestClose(t *testing.T) {
	rec := &countingRecorder{}
	m := newTestManager(t, &fakeClock{now: time.Unix(0, 0)}, rec)
	m.Create()
	m.Create()

	m.Close()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, rec.active[len(rec.active)-1])
}

func TestJanitor(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	m := newTestManager(t, clock, nil)
	m.Create()
	clock.Advance(time.Hour)

	j := NewJanitor(m, time.Minute, 5*time.Millisecond)
	assert.Equal(t, "session-janitor", j.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Serve(ctx) }()

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
