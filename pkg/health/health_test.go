package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type body struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func get(t *testing.T, h http.HandlerFunc) (int, body) {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var b body
	require.NoError(t, json.NewDecoder(w.Body).Decode(&b))
	return w.Code, b
}

func ok(context.Context) error { return nil }

func failing(msg string) Check {
	return func(context.Context) error { return errors.New(msg) }
}

func runN(h *Health, n int) {
	for range n {
		for _, p := range h.probes {
			p.run(context.Background())
		}
	}
}

func TestLivez_Healthy(t *testing.T) {
	h := New()
	h.Register(Liveness, "goroutines", time.Second, ok)

	code, b := get(t, h.Livez)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", b.Status)
	assert.Empty(t, b.Checks)
}

func TestLivez_FailureThreshold(t *testing.T) {
	h := New()
	h.Register(Liveness, "db", time.Second, failing("connection refused"))

	runN(h, 2)
	code, _ := get(t, h.Livez)
	assert.Equal(t, http.StatusOK, code, "two failures stay under the default threshold")

	runN(h, 1)
	code, b := get(t, h.Livez)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", b.Status)
	assert.Equal(t, "connection refused", b.Checks["db"])
}

func TestProbe_RecoversAfterSuccessThreshold(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	h := New()
	h.Register(Readiness, "products", time.Second, func(context.Context) error {
		if fail.Load() {
			return errors.New("down")
		}
		return nil
	}, WithThresholds(1, 2))
	h.SetReady(true)

	runN(h, 1)
	assert.False(t, h.Ready())

	fail.Store(false)
	runN(h, 1)
	assert.False(t, h.Ready(), "one success is below the success threshold")
	runN(h, 1)
	assert.True(t, h.Ready())
}

func TestReadyz(t *testing.T) {
	h := New()
	h.Register(Readiness, "products", time.Second, ok)
	h.Register(Liveness, "goroutines", time.Second, failing("leak"), WithThresholds(1, 1))
	runN(h, 1)

	code, b := get(t, h.Readyz)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "service is not ready", b.Checks["_readiness"])
	assert.NotContains(t, b.Checks, "goroutines", "liveness probes do not gate readiness")

	h.SetReady(true)
	code, b = get(t, h.Readyz)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", b.Status)
}

func TestMount(t *testing.T) {
	h := New()
	h.SetReady(true)
	r := chi.NewRouter()
	h.Mount(r)

	for _, path := range []string{"/livez", "/readyz"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestStartStop(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.Register(Readiness, "counter", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	h.Stop()
	h.Stop()
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestChecks(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, GoroutineLimit(1_000_000)(ctx))
	assert.Error(t, GoroutineLimit(0)(ctx))

	assert.NoError(t, Ping(stubPinger{})(ctx))
	assert.ErrorContains(t, Ping(stubPinger{err: errors.New("refused")})(ctx), "refused")
}
