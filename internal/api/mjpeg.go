package api

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"github.com/gorilla/mux"
)

const (
	mjpegBoundary  = "frame"
	mjpegQuality   = 85
	mjpegMinPeriod = 50 * time.Millisecond
)

// handlePreviewStream serves the session as Motion JPEG: one frame for the
// current scene, then one per published scene, at most every mjpegMinPeriod.
// Any <img> tag can display it, which makes it handy for spectators.
func (s *Server) handlePreviewStream(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "close")

	updates := shell.Desktop.Subscribe()
	defer shell.Desktop.Unsubscribe(updates)

	log := s.log.With().Str("session", id).Logger()
	log.Debug().Msg("MJPEG client connected")
	defer log.Debug().Msg("MJPEG client disconnected")

	var buf bytes.Buffer
	writeFrame := func(scene desktop.Scene) error {
		buf.Reset()
		if err := jpeg.Encode(&buf, s.renderer.Render(scene), &jpeg.Options{Quality: mjpegQuality}); err != nil {
			return fmt.Errorf("failed to encode JPEG: %w", err)
		}
		if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, buf.Len()); err != nil {
			return err
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
		if _, err := fmt.Fprint(w, "\r\n"); err != nil {
			return err
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		return nil
	}

	if err := writeFrame(shell.Desktop.Scene()); err != nil {
		return
	}

	last := time.Now()
	for {
		select {
		case <-r.Context().Done():
			return
		case scene, ok := <-updates:
			if !ok {
				return
			}
			// Updates coalesce, so waiting here only drops intermediate scenes
			if wait := mjpegMinPeriod - time.Since(last); wait > 0 {
				select {
				case <-time.After(wait):
				case <-r.Context().Done():
					return
				}
				select {
				case newer, ok := <-updates:
					if !ok {
						return
					}
					scene = newer
				default:
				}
			}
			if err := writeFrame(scene); err != nil {
				log.Debug().Err(err).Msg("MJPEG write error")
				return
			}
			last = time.Now()
		}
	}
}
