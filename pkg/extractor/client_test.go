package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessPDF_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/process-pdf", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close() //nolint:errcheck
		assert.Equal(t, "report1.pdf", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"filename": "report1.pdf",
			"data": {"Name": "Ramesh Yadav"},
			"raw_text_length": 4096
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(6000))
	result, err := c.ProcessPDF(context.Background(), "report1.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, "report1.pdf", result.Filename)
	assert.Equal(t, "Ramesh Yadav", result.Data["Name"])
	assert.Equal(t, 4096, result.RawTextLength)
}

func TestProcessPDF_ServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(6000))
	_, err := c.ProcessPDF(context.Background(), "report1.pdf", strings.NewReader("%PDF-1.4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reported failure")
}

func TestProcessPDF_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "File must be a PDF"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(6000))
	_, err := c.ProcessPDF(context.Background(), "notes.txt", strings.NewReader("hello"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
}

func TestProcessPDF_ContextCanceled(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", WithRateLimit(6000))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ProcessPDF(ctx, "report1.pdf", strings.NewReader("%PDF-1.4"))
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL).Health(context.Background()))
}

func TestHealth_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	assert.Error(t, NewClient(srv.URL).Health(context.Background()))
}
