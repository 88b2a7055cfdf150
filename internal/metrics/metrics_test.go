package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsIsolated(t *testing.T) {
	// Two instances must not collide on registration
	a := New()
	b := New()

	a.Raises.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Raises))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Raises))
}

func TestRecorder(t *testing.T) {
	m := New()

	m.WindowOpened(3)
	m.WindowOpened(3)
	m.WindowClosed(3)
	m.WindowRaised(3)
	m.DragStarted(3)
	m.SessionsActive(4)
	m.RecordInput("pointermove")
	m.StreamOpened()
	m.StreamOpened()
	m.StreamClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.WindowsOpened.WithLabelValues("3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WindowsClosed.WithLabelValues("3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Raises))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Drags))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InputEvents.WithLabelValues("pointermove")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	m := New()

	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/api/sessions/{id}/scene", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/scene", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.RequestsTotal.WithLabelValues(http.MethodGet, "/api/sessions/{id}/scene", "404")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.SessionsActive(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "webdesk_sessions_active 2"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
