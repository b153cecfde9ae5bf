package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/viewport/internal/engine"
)

func TestObserveChange(t *testing.T) {
	m := New()

	m.ObserveChange(engine.ChangeEvent{Operation: engine.OpPan, ZoomX: 1})
	m.ObserveChange(engine.ChangeEvent{Operation: engine.OpPan, ZoomX: 1})
	m.ObserveChange(engine.ChangeEvent{Operation: engine.OpZoomWheel, ZoomX: 8, Clamped: true})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.changes.WithLabelValues("pan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.changes.WithLabelValues("zoom.wheel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.clamped.WithLabelValues("zoom.wheel")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.clamped.WithLabelValues("pan")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.zoom))
}

func TestRoomGaugeAndRejected(t *testing.T) {
	m := New()
	m.RoomOpened()
	m.RoomOpened()
	m.RoomClosed()
	m.ObserveRejected("viewport.fit")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rooms))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("viewport.fit")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()

	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/api/views/{viewId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views/view_1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1, testutil.CollectAndCount(m.reqDuration))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `route="/api/views/{viewId}"`), string(body))
	assert.Contains(t, string(body), `status="404"`)
}
