package transfer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelc4/aether-ddl-bot/internal/streamtape"
)

func tempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTransferPostsMultipartFile(t *testing.T) {
	var gotName, gotBody, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Test")
		file, hdr, err := r.FormFile(formField)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		b, _ := io.ReadAll(file)
		gotName, gotBody = hdr.Filename, string(b)
		_, _ = w.Write([]byte(`{"status":200,"msg":"OK"}`))
	}))
	defer srv.Close()

	var started, done bool
	var last int64
	u := NewUploader(srv.Client(), &Hook{
		OnStart:    func(string, int64) { started = true },
		OnProgress: func(_ string, written, _ int64) { last = written },
		OnDone:     func(string, int64, time.Duration) { done = true },
	})

	path := tempFile(t, "video.mkv", "0123456789")
	err := u.Transfer(context.Background(), streamtape.TransferRequest{
		URL:     srv.URL,
		Path:    path,
		Name:    "Film.mkv",
		Headers: map[string]string{"X-Test": "yes"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Film.mkv", gotName)
	assert.Equal(t, "0123456789", gotBody)
	assert.Equal(t, "yes", gotHeader)
	assert.True(t, started)
	assert.True(t, done)
	assert.EqualValues(t, 10, last)
	assert.EqualValues(t, 10, u.Uploaded())
	assert.EqualValues(t, 10, u.Size())
	assert.Equal(t, "Film.mkv", u.Name())
}

func TestTransferRejectsFailedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte(`{"status":403,"msg":"Forbidden"}`))
	}))
	defer srv.Close()

	u := NewUploader(srv.Client(), nil)
	err := u.Transfer(context.Background(), streamtape.TransferRequest{URL: srv.URL, Path: tempFile(t, "a.mp4", "x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestTransferRejectsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	u := NewUploader(srv.Client(), nil)
	err := u.Transfer(context.Background(), streamtape.TransferRequest{URL: srv.URL, Path: tempFile(t, "a.mp4", "x")})
	assert.Error(t, err)
}

func TestTransferMissingFile(t *testing.T) {
	u := NewUploader(nil, nil)
	err := u.Transfer(context.Background(), streamtape.TransferRequest{URL: "http://127.0.0.1:1", Path: "/nonexistent/file.mkv"})
	assert.Error(t, err)
}

func TestTransferHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	u := NewUploader(srv.Client(), nil)
	err := u.Transfer(ctx, streamtape.TransferRequest{URL: srv.URL, Path: tempFile(t, "a.mp4", strings.Repeat("x", 1024))})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCounters(t *testing.T) {
	u := NewUploader(nil, nil)
	u.AddFile()
	u.AddFile()
	u.AddFolder()
	u.uploaded.Store(42)
	u.ResetProgress()

	assert.EqualValues(t, 2, u.TotalFiles())
	assert.EqualValues(t, 1, u.TotalFolders())
	assert.Zero(t, u.Uploaded())
}
