package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/accounts-service/internal/storage/memory"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestOpsMux(t *testing.T) {
	var ready atomic.Bool
	h := opsMux(&ready, nil)

	require.Equal(t, http.StatusOK, serve(h, "/livez").Code)
	require.Equal(t, http.StatusServiceUnavailable, serve(h, "/healthz").Code)

	ready.Store(true)
	rr := serve(h, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	rr = serve(h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestOpsMux_HealthzPingsStorage(t *testing.T) {
	var ready atomic.Bool
	ready.Store(true)

	down := opsMux(&ready, stubPinger{err: errors.New("connection refused")})
	require.Equal(t, http.StatusServiceUnavailable, serve(down, "/healthz").Code)
	require.Equal(t, http.StatusOK, serve(down, "/livez").Code)

	up := opsMux(&ready, stubPinger{})
	require.Equal(t, http.StatusOK, serve(up, "/healthz").Code)
}

func TestStoragePinger(t *testing.T) {
	require.Nil(t, storagePinger(memory.New()))
}
