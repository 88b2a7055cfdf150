package media

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"github.com/bryanchriswhite/webdesk/internal/logger"
)

// SurfaceName is the descriptor surface handled by Player
const SurfaceName = "audio-player"

const (
	defaultVolume       = 1.0
	playbackFailedError = "Playback failed. Please check the audio file."
)

var (
	ErrEmptyPlaylist   = errors.New("playlist is empty")
	ErrTrackOutOfRange = errors.New("track index out of range")
)

// Track is one playlist entry. Src is an opaque resource path.
type Track struct {
	Title string `json:"title" yaml:"title"`
	Src   string `json:"src" yaml:"src"`
}

// State is a snapshot of the player
type State struct {
	Playing bool    `json:"playing"`
	Track   int     `json:"track"`
	Title   string  `json:"title"`
	Src     string  `json:"src"`
	Volume  float64 `json:"volume"`
	Error   string  `json:"error,omitempty"`
	Tracks  []Track `json:"tracks"`
}

// Player holds the playback state of the audio mini-app. The browser does the
// actual decoding; the player is the authority on what should be playing and
// reports every change of the playing flag to the shell.
type Player struct {
	mu      sync.Mutex
	tracks  []Track
	current int
	playing bool
	volume  float64
	errMsg  string
	report  func(playing bool)
}

var _ desktop.Surface = (*Player)(nil)

// NewPlayer creates a stopped player on the first track
func NewPlayer(tracks []Track) *Player {
	return &Player{
		tracks: append([]Track(nil), tracks...),
		volume: defaultVolume,
	}
}

// SetReporter registers the reportPlaybackState callback
func (p *Player) SetReporter(fn func(playing bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report = fn
}

// mutate applies fn under the lock and reports the playing flag if it changed
// or if force is set.
func (p *Player) mutate(force bool, fn func() error) error {
	p.mu.Lock()
	was := p.playing
	err := fn()
	now := p.playing
	report := p.report
	p.mu.Unlock()

	if report != nil && (force || was != now) {
		report(now)
	}
	return err
}

// Play starts the current track
func (p *Player) Play() error {
	return p.mutate(false, func() error {
		if len(p.tracks) == 0 {
			return ErrEmptyPlaylist
		}
		p.playing = true
		p.errMsg = ""
		return nil
	})
}

// Pause stops playback, keeping the position in the playlist
func (p *Player) Pause() {
	_ = p.mutate(false, func() error {
		p.playing = false
		return nil
	})
}

// Toggle flips between playing and paused
func (p *Player) Toggle() error {
	return p.mutate(false, func() error {
		if p.playing {
			p.playing = false
			return nil
		}
		if len(p.tracks) == 0 {
			return ErrEmptyPlaylist
		}
		p.playing = true
		p.errMsg = ""
		return nil
	})
}

// Next advances to the following track, wrapping at the end
func (p *Player) Next() {
	_ = p.mutate(false, func() error {
		if len(p.tracks) == 0 {
			return nil
		}
		p.current = (p.current + 1) % len(p.tracks)
		p.errMsg = ""
		return nil
	})
}

// Previous steps back one track, wrapping at the start
func (p *Player) Previous() {
	_ = p.mutate(false, func() error {
		if len(p.tracks) == 0 {
			return nil
		}
		p.current = (p.current - 1 + len(p.tracks)) % len(p.tracks)
		p.errMsg = ""
		return nil
	})
}

// Select jumps to track i and starts playing it
func (p *Player) Select(i int) error {
	return p.mutate(false, func() error {
		if i < 0 || i >= len(p.tracks) {
			return fmt.Errorf("%w: %d", ErrTrackOutOfRange, i)
		}
		p.current = i
		p.playing = true
		p.errMsg = ""
		return nil
	})
}

// SetVolume sets the volume, clamped to [0, 1]
func (p *Player) SetVolume(v float64) {
	_ = p.mutate(false, func() error {
		switch {
		case v < 0:
			v = 0
		case v > 1:
			v = 1
		}
		p.volume = v
		return nil
	})
}

// Fail records a playback error reported by the client and stops playing.
// The error stays local to the player; window state is unaffected.
func (p *Player) Fail(msg string) {
	if msg == "" {
		msg = playbackFailedError
	}
	_ = p.mutate(false, func() error {
		p.playing = false
		p.errMsg = msg
		return nil
	})
	logger.WithComponent("media").Warn().Str("error", msg).Msg("Playback failed")
}

// Stop halts playback unconditionally, including after a failure, and always
// reports the stopped state.
func (p *Player) Stop() {
	_ = p.mutate(true, func() error {
		p.playing = false
		return nil
	})
}

// State returns a snapshot of the player
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := State{
		Playing: p.playing,
		Track:   p.current,
		Volume:  p.volume,
		Error:   p.errMsg,
		Tracks:  append([]Track(nil), p.tracks...),
	}
	if p.current < len(p.tracks) {
		s.Title = p.tracks[p.current].Title
		s.Src = p.tracks[p.current].Src
	}
	return s
}

// Mount implements desktop.Surface
func (p *Player) Mount(id desktop.AppID) {
	logger.WithComponent("media").Debug().Int("app", int(id)).Msg("Player mounted")
}

// Unmount implements desktop.Surface; closing the window stops the audio
func (p *Player) Unmount(id desktop.AppID) {
	p.Stop()
	logger.WithComponent("media").Debug().Int("app", int(id)).Msg("Player stopped on close")
}
