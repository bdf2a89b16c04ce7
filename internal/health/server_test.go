package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Endpoints(t *testing.T) {
	h := New(":0", nil).Handler()

	w := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bot is running!", w.Body.String())

	w = do(t, h, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_AuthCodeDisabledByDefault(t *testing.T) {
	w := do(t, New(":0", nil).Handler(), http.MethodPost, "/auth/code", `{"code":"12345"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fakeCodes struct {
	got string
	err error
}

func (f *fakeCodes) Submit(_ context.Context, code string) error {
	f.got = code
	return f.err
}

func TestServer_AuthCode(t *testing.T) {
	codes := &fakeCodes{}
	h := New(":0", nil, WithCodeSubmitter(codes)).Handler()

	w := do(t, h, http.MethodPost, "/auth/code", `{"code":" 12345 "}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", codes.got)

	w = do(t, h, http.MethodPost, "/auth/code", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	codes.err = errors.New("no login in progress")
	w = do(t, h, http.MethodPost, "/auth/code", `{"code":"1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "no login in progress")
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := New(addr, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunReportsListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	err = New(l.Addr().String(), nil).Run(context.Background())
	assert.Error(t, err)
}
