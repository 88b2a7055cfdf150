package api

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"github.com/bryanchriswhite/webdesk/internal/media"
	"github.com/bryanchriswhite/webdesk/internal/session"
)

// Input event types
const (
	EventPointerDown = "pointerdown"
	EventPointerMove = "pointermove"
	EventPointerUp   = "pointerup"
	EventOpen        = "open"
	EventClose       = "close"
	EventFocus       = "focus"
	EventRaise       = "raise"
	EventStartMenu   = "startmenu"
	EventLaunch      = "launch"
	EventPlayer      = "player"
)

// Player actions carried by EventPlayer
const (
	ActionPlay     = "play"
	ActionPause    = "pause"
	ActionToggle   = "toggle"
	ActionNext     = "next"
	ActionPrevious = "previous"
	ActionSelect   = "select"
	ActionVolume   = "volume"
	ActionFail     = "fail"
	ActionStop     = "stop"
)

var (
	ErrInvalidEvent = errors.New("invalid input event")
	ErrNoPlayer     = errors.New("desktop has no audio player")
)

// Event is one user interaction sent by a client. App is a pointer so that a
// pointer move or release without a target can be told apart from app 0.
type Event struct {
	Type    string   `json:"type"`
	App     *int     `json:"app,omitempty"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Action  string   `json:"action,omitempty"`
	Track   *int     `json:"track,omitempty"`
	Volume  *float64 `json:"volume,omitempty"`
	Message string   `json:"message,omitempty"`
}

func (e Event) app() (desktop.AppID, error) {
	if e.App == nil {
		return 0, fmt.Errorf("%w: %s requires app", ErrInvalidEvent, e.Type)
	}
	return desktop.AppID(*e.App), nil
}

// Apply performs ev against shell. Unknown application ids are passed through
// and ignored by the desktop; only malformed events are errors.
func Apply(shell *session.Shell, ev Event) error {
	d := shell.Desktop

	switch ev.Type {
	case EventPointerDown:
		id, err := ev.app()
		if err != nil {
			return err
		}
		d.PointerDown(id, ev.X, ev.Y)
	case EventPointerMove:
		if ev.App == nil {
			d.PointerMoveAll(ev.X, ev.Y)
			return nil
		}
		d.PointerMove(desktop.AppID(*ev.App), ev.X, ev.Y)
	case EventPointerUp:
		if ev.App == nil {
			d.PointerUp()
			return nil
		}
		d.Release(desktop.AppID(*ev.App))
	case EventOpen, EventClose, EventFocus, EventRaise, EventLaunch:
		id, err := ev.app()
		if err != nil {
			return err
		}
		switch ev.Type {
		case EventOpen:
			d.Open(id)
		case EventClose:
			d.Close(id)
		case EventFocus:
			d.Focus(id)
		case EventRaise:
			d.Raise(id)
		case EventLaunch:
			d.LaunchFromStartMenu(id)
		}
	case EventStartMenu:
		d.ToggleStartMenu()
	case EventPlayer:
		return applyPlayer(shell.Player, ev)
	case "":
		return fmt.Errorf("%w: missing type", ErrInvalidEvent)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
	}
	return nil
}

func applyPlayer(p *media.Player, ev Event) error {
	if p == nil {
		return ErrNoPlayer
	}

	switch ev.Action {
	case ActionPlay:
		return p.Play()
	case ActionPause:
		p.Pause()
	case ActionToggle:
		return p.Toggle()
	case ActionNext:
		p.Next()
	case ActionPrevious:
		p.Previous()
	case ActionSelect:
		if ev.Track == nil {
			return fmt.Errorf("%w: select requires track", ErrInvalidEvent)
		}
		return p.Select(*ev.Track)
	case ActionVolume:
		if ev.Volume == nil {
			return fmt.Errorf("%w: volume requires volume", ErrInvalidEvent)
		}
		p.SetVolume(*ev.Volume)
	case ActionFail:
		p.Fail(ev.Message)
	case ActionStop:
		p.Stop()
	default:
		return fmt.Errorf("%w: unknown player action %q", ErrInvalidEvent, ev.Action)
	}
	return nil
}
