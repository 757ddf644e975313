package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHTTPChecker_Statuses maps response statuses onto readiness: anything
// below 400 is ready, 4xx/5xx is not.
func TestHTTPChecker_Statuses(t *testing.T) {
	cases := []struct {
		status int
		ready  bool
	}{
		{http.StatusOK, true},
		{http.StatusNoContent, true},
		{http.StatusFound, true}, // redirects still prove the service is up
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))

		c := newHTTPChecker("healthz", srv.URL)
		err := c.Check(context.Background())
		if tc.ready {
			assert.NoError(t, err, "status %d should be ready", tc.status)
		} else {
			assert.Error(t, err, "status %d should not be ready", tc.status)
		}
		srv.Close()
	}
}

// TestHTTPChecker_ServerDown verifies the checker fails on a connection
// error, not just on error statuses.
func TestHTTPChecker_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newHTTPChecker("healthz", url)
	assert.Error(t, c.Check(context.Background()))
}

// TestHTTPChecker_WaiterIntegration verifies the wait loop rides out a
// service that starts returning 503 and flips to 200, the standard
// warming-up pattern of an application health endpoint.
func TestHTTPChecker_WaiterIntegration(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newHTTPChecker("app", srv.URL)

	w := NewWaiter(200, 5*time.Millisecond)
	w.Out = &discardWriter{}

	done := make(chan error, 1)
	go func() { done <- w.Wait(context.Background(), c) }()

	healthy.Store(true)
	require.NoError(t, <-done)
}
