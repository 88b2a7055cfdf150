package api

import (
	"net/http"
	"time"

	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Message types pushed to stream clients
const (
	MessageScene = "scene"
	MessageError = "error"
)

// Message is the envelope written on the stream
type Message struct {
	Type  string         `json:"type"`
	Scene *desktop.Scene `json:"scene,omitempty"`
	Error string         `json:"error,omitempty"`
}

// handleStream pushes a scene after every change and applies input events
// read from the client. The session is held for as long as the stream is open.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	release, err := s.sessions.Hold(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer release()

	shell, err := s.sessions.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	s.metrics.StreamOpened()
	defer s.metrics.StreamClosed()

	log := s.log.With().Str("session", id).Logger()
	log.Debug().Msg("Stream opened")

	updates := shell.Desktop.Subscribe()
	defer shell.Desktop.Unsubscribe(updates)

	// The reader is the only goroutine calling Read*; all writes happen below.
	rejected := make(chan error, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("Stream read error")
				}
				return
			}
			if err := s.apply(shell, ev); err != nil {
				select {
				case rejected <- err:
				default:
				}
			}
		}
	}()

	write := func(msg Message) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	current := shell.Desktop.Scene()
	if err := write(Message{Type: MessageScene, Scene: &current}); err != nil {
		log.Debug().Err(err).Msg("Stream write error")
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case scene, ok := <-updates:
			if !ok {
				// desktop unmounted
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := write(Message{Type: MessageScene, Scene: &scene}); err != nil {
				log.Debug().Err(err).Msg("Stream write error")
				return
			}
		case err := <-rejected:
			if err := write(Message{Type: MessageError, Error: err.Error()}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			log.Debug().Msg("Stream closed")
			return
		}
	}
}
