package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysubinoy/keyvaluestore/internal/store"
)

func newTestHandler(t *testing.T, opts store.Options) http.Handler {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	st := store.NewInstrumentedStore(store.NewMemStore(opts))
	return NewServer(st, logger).Handler()
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestHTTPScenario(t *testing.T) {
	h := newTestHandler(t, store.Options{ReadToken: "r", WriteToken: "w", TrackModified: true})

	resp := do(h, http.MethodPost, "/foo", "w", "bar")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, resp.Body.String())

	resp = do(h, http.MethodGet, "/foo", "r", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "bar", resp.Body.String())

	resp = do(h, http.MethodGet, "/foo", "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Empty(t, resp.Body.String())
	assert.Equal(t, "Bearer", resp.Header().Get("WWW-Authenticate"))

	resp = do(h, http.MethodGet, "/missing", "r", "")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = do(h, http.MethodPost, "/foo", "r", "overwritten")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = do(h, http.MethodGet, "/foo", "r", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "bar", resp.Body.String())
}

func TestHTTPMissingAuthorization(t *testing.T) {
	h := newTestHandler(t, store.Options{ReadToken: "r", WriteToken: "w"})

	resp := do(h, http.MethodGet, "/foo", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/foo", nil)
	req.Header.Set("Authorization", "Basic cjpy")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/foo", nil)
	req.Header.Set("Authorization", "Bearer  r")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "token is compared exactly, leading space included")

	req = httptest.NewRequest(http.MethodGet, "/foo", nil)
	req.Header.Set("Authorization", "bearer r")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code, "scheme is case-insensitive")
}

func TestHTTPLastModified(t *testing.T) {
	stamp := time.Date(2023, 7, 14, 9, 30, 5, 0, time.UTC)
	h := newTestHandler(t, store.Options{
		ReadToken:     "r",
		WriteToken:    "w",
		TrackModified: true,
		Now:           func() time.Time { return stamp },
	})

	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/k", "w", "v").Code)
	resp := do(h, http.MethodGet, "/k", "r", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Fri, 14 Jul 2023 09:30:05 GMT", resp.Header().Get("Last-Modified"))
}

func TestHTTPNoLastModifiedWhenUntracked(t *testing.T) {
	h := newTestHandler(t, store.Options{ReadToken: "r", WriteToken: "w"})

	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/k", "w", "v").Code)
	resp := do(h, http.MethodGet, "/k", "r", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, resp.Header().Get("Last-Modified"))
}

func TestHTTPEmptyAndBinaryBodies(t *testing.T) {
	h := newTestHandler(t, store.Options{ReadToken: "r", WriteToken: "w"})

	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/empty", "w", "").Code)
	resp := do(h, http.MethodGet, "/empty", "r", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "", resp.Body.String())

	raw := "line1\nline2\x00\xff{\"json\":true}"
	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/raw", "w", raw).Code)
	resp = do(h, http.MethodGet, "/raw", "r", "")
	assert.Equal(t, raw, resp.Body.String())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestHTTPWriteBodyReadError(t *testing.T) {
	h := newTestHandler(t, store.Options{ReadToken: "r", WriteToken: "w"})

	req := httptest.NewRequest(http.MethodPost, "/foo", failingReader{})
	req.Header.Set("Authorization", "Bearer w")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodGet, "/foo", "r", "").Code, "failed write stores nothing")
}

func TestHTTPEscapedKey(t *testing.T) {
	h := newTestHandler(t, store.Options{ReadToken: "r", WriteToken: "w"})

	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/hello%20world", "w", "v").Code)
	resp := do(h, http.MethodGet, "/hello%20world", "r", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "v", resp.Body.String())
}

func TestHTTPMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, store.Options{ReadToken: "r", WriteToken: "w"})

	resp := do(h, http.MethodDelete, "/foo", "w", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}

func TestHTTPRequestID(t *testing.T) {
	h := newTestHandler(t, store.Options{ReadToken: "r", WriteToken: "w"})

	resp := do(h, http.MethodGet, "/foo", "r", "")
	assert.NotEmpty(t, resp.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/foo", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestHTTPHealthAndMetrics(t *testing.T) {
	h := newTestHandler(t, store.Options{ReadToken: "r", WriteToken: "w"})

	resp := do(h, http.MethodGet, "/-/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())

	do(h, http.MethodPost, "/a", "w", "1")
	do(h, http.MethodGet, "/a", "r", "")
	do(h, http.MethodGet, "/b", "r", "")

	resp = do(h, http.MethodGet, "/-/metrics", "w", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = do(h, http.MethodGet, "/-/metrics", "r", "")
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, `"keys":1`)
	assert.Contains(t, body, `"get":2`)
	assert.Contains(t, body, `"get_misses":1`)
	assert.Contains(t, body, `"put":1`)
	assert.Contains(t, body, `"read":1`)
}

func TestHTTPConcurrentWriters(t *testing.T) {
	h := newTestHandler(t, store.Options{ReadToken: "r", WriteToken: "w", TrackModified: true})

	const writers = 32
	written := make(map[string]bool, writers)
	for i := 0; i < writers; i++ {
		written[fmt.Sprintf("writer-%d-%s", i, strings.Repeat("x", i))] = true
	}

	var wg sync.WaitGroup
	for v := range written {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			if code := do(h, http.MethodPost, "/shared", "w", v).Code; code != http.StatusOK {
				t.Errorf("write returned %d", code)
			}
		}(v)
	}
	wg.Wait()

	resp := do(h, http.MethodGet, "/shared", "r", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, written[resp.Body.String()], "unexpected value %q", resp.Body.String())
}
