package adapters

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsbridge "github.com/opengovern/familysearch-bridge"
)

type recorded struct {
	method string
	path   string
	query  string
	header http.Header
	body   string
}

func newRecordingServer(t *testing.T, status int, body string) (*httptest.Server, <-chan recorded) {
	t.Helper()
	seen := make(chan recorded, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		seen <- recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, header: r.Header.Clone(), body: string(data)}
		w.Header().Set("Content-Type", fsbridge.MediaTypeFamilySearch)
		w.Header().Set("X-Processing-Time", "12")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestHTTPAdapter_ExecuteRequest(t *testing.T) {
	srv, seen := newRecordingServer(t, http.StatusCreated, `{"id":"KWQS-BBQ"}`)
	adapter := NewHTTPAdapter(nil)

	resp, err := adapter.ExecuteRequest(context.Background(), &fsbridge.NormalizedRequest{
		Method:   "POST",
		Endpoint: srv.URL + "/platform/tree/persons?x=1",
		Headers:  map[string]string{"Authorization": "Bearer abc", "Content-Type": fsbridge.MediaTypeFamilySearch},
		Body:     []byte(`{"persons":[]}`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"id":"KWQS-BBQ"}`, string(resp.Data))
	assert.Equal(t, fsbridge.MediaTypeFamilySearch, resp.Headers["content-type"])
	assert.Equal(t, "12", resp.Headers["x-processing-time"])

	got := <-seen
	assert.Equal(t, "POST", got.method)
	assert.Equal(t, "/platform/tree/persons", got.path)
	assert.Equal(t, "x=1", got.query)
	assert.Equal(t, "Bearer abc", got.header.Get("Authorization"))
	assert.Equal(t, `{"persons":[]}`, got.body)
}

func TestHTTPAdapter_StatusIsNotAnError(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusServiceUnavailable, `down`)
	adapter := &HTTPAdapter{BaseURL: srv.URL}

	resp, err := adapter.ExecuteRequest(context.Background(), &fsbridge.NormalizedRequest{Method: "GET", Endpoint: "/platform/x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "down", string(resp.Data))
}

func TestHTTPAdapter_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPAdapter(nil).ExecuteRequest(context.Background(), &fsbridge.NormalizedRequest{Method: "GET", Endpoint: url})
	require.Error(t, err)
	assert.True(t, fsbridge.IsTransient(err))
}

func TestHTTPAdapter_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(block) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHTTPAdapter(nil).ExecuteRequest(ctx, &fsbridge.NormalizedRequest{Method: "GET", Endpoint: srv.URL})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolveURL(t *testing.T) {
	testCases := []struct {
		base, endpoint, want string
	}{
		{"", "/platform/x", "/platform/x"},
		{"https://api.familysearch.org", "/platform/x", "https://api.familysearch.org/platform/x"},
		{"https://api.familysearch.org/", "platform/x", "https://api.familysearch.org/platform/x"},
		{"https://api.familysearch.org", "https://ident.familysearch.org/y", "https://ident.familysearch.org/y"},
		{"https://api.familysearch.org", "http://localhost/z", "http://localhost/z"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, resolveURL(tc.base, tc.endpoint), tc.endpoint)
	}
}

func TestClientOverHTTPAdapter_RetriesTransientGet(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", fsbridge.MediaTypeFamilySearch)
		_, _ = io.WriteString(w, `{"persons":[{"id":"KWQS-BBQ","nameForms":[{"parts":[{"type":"http://gedcomx.org/Given","value":"John"}]}]}]}`)
	}))
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	client, err := fsbridge.New(fsbridge.Config{
		AppKey:      "app-key",
		Transport:   NewHTTPAdapter(srv.Client()),
		PlatformURL: srv.URL,
		AccessToken: "token-123",
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		Logger:      logger,
	})
	require.NoError(t, err)

	successes := 0
	failures := 0
	done := make(chan struct{})
	client.GetPerson(context.Background(), "KWQS-BBQ").Then(func(p *fsbridge.Person) {
		successes++
		given, _ := p.GivenName()
		assert.Equal(t, "John", given)
		close(done)
	}, func(err error) {
		failures++
		close(done)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback not invoked")
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 0, failures)
	assert.Equal(t, int32(3), hits.Load())
}
