package lucid

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lerrors "lucidexport/pkg/errors"
	"lucidexport/pkg/logger"
)

// mockRoundTripper lets tests fail at the transport level
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(5*time.Second, logger.NewNopLogger(), WithBaseURL(server.URL)), server
}

func TestNewClient(t *testing.T) {
	c := NewClient(30*time.Second, logger.NewNopLogger())
	assert.Equal(t, BaseURL, c.BaseURL())
	assert.Equal(t, APIVersion, c.apiVersion)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)

	c = NewClient(time.Second, logger.NewNopLogger(), WithBaseURL("http://localhost:9/"), WithAPIVersion("2"))
	assert.Equal(t, "http://localhost:9", c.BaseURL())
	assert.Equal(t, "2", c.apiVersion)
}

func TestFetchMetadata(t *testing.T) {
	var gotHeaders http.Header
	var gotPath string
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Plan","pages":[{"title":"Intro","id":"0_0"},{"title":"Detail"}],"product":"lucidchart"}`))
	})

	meta, err := client.FetchMetadata(context.Background(), "D1", "secret")
	require.NoError(t, err)

	assert.Equal(t, "/documents/D1/contents", gotPath)
	assert.Equal(t, "application/json", gotHeaders.Get("Accept"))
	assert.Equal(t, "1", gotHeaders.Get("Lucid-Api-Version"))
	assert.Equal(t, "Bearer secret", gotHeaders.Get("Authorization"))

	assert.Equal(t, "Plan", meta.Title)
	require.Len(t, meta.Pages, 2)
	assert.Equal(t, "Intro", meta.Pages[0].Title)
	assert.Equal(t, "Detail", meta.Pages[1].Title)
}

func TestFetchMetadataEmptyPageList(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"Blank","pages":[]}`))
	})

	meta, err := client.FetchMetadata(context.Background(), "D0", "k")
	require.NoError(t, err)
	assert.Empty(t, meta.Pages)
}

func TestFetchMetadataErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType lerrors.ErrorType
	}{
		{"unauthorized", http.StatusUnauthorized, "", lerrors.ErrorTypeAuth},
		{"forbidden", http.StatusForbidden, "", lerrors.ErrorTypeAuth},
		{"not found", http.StatusNotFound, "", lerrors.ErrorTypeNotFound},
		{"rate limited", http.StatusTooManyRequests, "", lerrors.ErrorTypeRateLimit},
		{"server error", http.StatusBadGateway, "", lerrors.ErrorTypeServerError},
		{"teapot", http.StatusTeapot, "", lerrors.ErrorTypeUnknown},
		{"invalid json", http.StatusOK, `{invalid json`, lerrors.ErrorTypeParsing},
		{"missing title", http.StatusOK, `{"pages":[]}`, lerrors.ErrorTypeParsing},
		{"missing pages", http.StatusOK, `{"title":"Plan"}`, lerrors.ErrorTypeParsing},
		{"missing page title", http.StatusOK, `{"title":"Plan","pages":[{"title":"A"},{}]}`, lerrors.ErrorTypeParsing},
		{"wrong title type", http.StatusOK, `{"title":5,"pages":[]}`, lerrors.ErrorTypeParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			meta, err := client.FetchMetadata(context.Background(), "D1", "k")
			require.Error(t, err)
			assert.Nil(t, meta)
			assert.Equal(t, tt.wantType, lerrors.TypeOf(err), "error: %v", err)
		})
	}
}

func TestFetchMetadataNetworkError(t *testing.T) {
	transportErr := errors.New("connection refused")
	client := NewClient(time.Second, logger.NewNopLogger(), WithHTTPClient(&http.Client{
		Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
			return nil, transportErr
		}},
	}))

	_, err := client.FetchMetadata(context.Background(), "D1", "k")
	require.Error(t, err)
	assert.True(t, lerrors.IsType(err, lerrors.ErrorTypeNetwork))
	assert.ErrorIs(t, err, transportErr)
}

func TestDownloadPage(t *testing.T) {
	var gotAccept, gotQuery string
	client, server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotQuery = r.URL.RawQuery
		w.Write([]byte("\x89PNG data"))
	})

	pageURL := PageURL(server.URL, "D1", 2, "content")
	data, err := client.DownloadPage(context.Background(), pageURL, "k", "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, []byte("\x89PNG data"), data)
	assert.Equal(t, "image/jpeg", gotAccept)
	assert.Equal(t, "page=2&crop=content", gotQuery)
}

func TestDownloadPageDefaultContentType(t *testing.T) {
	var gotAccept string
	client, server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("x"))
	})

	_, err := client.DownloadPage(context.Background(), server.URL+"/documents/D1?page=1&crop=content", "k", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultContentType, gotAccept)
}

func TestDownloadPageErrors(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		client, server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		_, err := client.DownloadPage(context.Background(), server.URL+"/documents/D1?page=1&crop=content", "k", "")
		assert.True(t, lerrors.IsType(err, lerrors.ErrorTypeEmptyResponse), "error: %v", err)
	})

	t.Run("server error", func(t *testing.T) {
		client, server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := client.DownloadPage(context.Background(), server.URL+"/documents/D1?page=1&crop=content", "k", "")
		assert.True(t, lerrors.IsType(err, lerrors.ErrorTypeServerError), "error: %v", err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		client, server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("x"))
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.DownloadPage(ctx, server.URL+"/documents/D1?page=1&crop=content", "k", "")
		assert.True(t, lerrors.IsType(err, lerrors.ErrorTypeNetwork), "error: %v", err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNoRetries(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchMetadata(context.Background(), "D1", "k")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientLogsRequests(t *testing.T) {
	log := logger.NewTestLogger()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(time.Second, log, WithBaseURL(server.URL))
	_, err := client.FetchMetadata(context.Background(), "missing", "k")
	require.Error(t, err)

	assert.True(t, log.HasMessage("sending HTTP request"))
	warnings := log.GetMessagesByLevel("WARN")
	require.Len(t, warnings, 1)
	assert.Equal(t, http.StatusNotFound, warnings[0].Fields["status_code"])
}
