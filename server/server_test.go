package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/fxquotes/storage/memory"
)

func TestServer_Serve(t *testing.T) {
	t.Parallel()

	s, err := New(memory.NewStorage())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/v1/sources")
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"results": []}`, string(body))

	cancelFn()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_OpenAPI(t *testing.T) {
	t.Parallel()

	s, err := New(memory.NewStorage())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody)
	w := httptest.NewRecorder()

	s.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/v1/quotes/{source}")
	assert.Equal(t, "application/yaml; charset=utf-8", w.Header().Get("Content-Type"))
}
