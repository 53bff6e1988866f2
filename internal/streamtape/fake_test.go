package streamtape

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

// fakeAPI is an in-memory StreamTape API. Folders and files are keyed by the
// parent folder id; the root is "".
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	calls   []string
	folders map[string][]Folder
	files   map[string][]File
	nextID  int

	// rateLimited makes the next n requests to an endpoint answer 429.
	rateLimited map[string]int
	// failing makes every request to an endpoint answer the given status.
	failing map[string]int
	// staleListing makes listfolder ignore folders created by the test.
	staleListing bool
	// onRequest runs before a request is answered.
	onRequest func(endpoint string, q url.Values)
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{
		t:           t,
		folders:     map[string][]Folder{},
		files:       map[string][]File{},
		rateLimited: map[string]int{},
		failing:     map[string]int{},
	}
	api.srv = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) client(t *testing.T, tr Transferer, pub Publisher) *Client {
	t.Helper()
	c, err := New(Config{
		Login:          "user",
		Key:            "secret",
		BaseURL:        a.srv.URL,
		CoverImage:     "https://img.example/cover.png",
		RetryLimit:     2,
		RetryBaseDelay: time.Millisecond,
	}, tr, pub)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func (a *fakeAPI) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *fakeAPI) id(prefix string) string {
	a.nextID++
	return fmt.Sprintf("%s%d", prefix, a.nextID)
}

func (a *fakeAPI) addFile(folder, name string) File {
	a.mu.Lock()
	defer a.mu.Unlock()
	f := File{Name: name, LinkID: a.id("link"), Size: 1}
	a.files[folder] = append([]File{f}, a.files[folder]...)
	return f
}

func (a *fakeAPI) reply(w http.ResponseWriter, status int, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "msg": http.StatusText(status), "result": result})
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	endpoint := r.URL.Path

	if hook := a.onRequest; hook != nil {
		hook(endpoint, q)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	call := endpoint
	switch endpoint {
	case "/file/createfolder":
		call += " name=" + q.Get("name") + " pid=" + q.Get("pid")
	case "/file/listfolder", "/file/ul":
		call += " folder=" + q.Get("folder")
	case "/file/rename":
		call += " file=" + q.Get("file") + " name=" + q.Get("name")
	}
	a.calls = append(a.calls, call)

	if q.Get("login") != "user" || q.Get("key") != "secret" {
		a.reply(w, http.StatusForbidden, nil)
		return
	}
	if n := a.rateLimited[endpoint]; n > 0 {
		a.rateLimited[endpoint] = n - 1
		a.reply(w, statusRateLimited, nil)
		return
	}
	if status, ok := a.failing[endpoint]; ok {
		a.reply(w, status, nil)
		return
	}

	switch endpoint {
	case "/account/info":
		a.reply(w, statusOK, AccountInfo{APIID: "api-1", Email: "me@example.com", SignupAt: "2020-01-01 00:00:00"})
	case "/file/listfolder":
		folder := q.Get("folder")
		contents := FolderContents{Folders: []Folder{}, Files: []File{}}
		if !a.staleListing {
			contents.Folders = append(contents.Folders, a.folders[folder]...)
		}
		contents.Files = append(contents.Files, a.files[folder]...)
		a.reply(w, statusOK, contents)
	case "/file/createfolder":
		id := a.id("folder")
		pid := q.Get("pid")
		a.folders[pid] = append(a.folders[pid], Folder{ID: id, Name: q.Get("name")})
		a.reply(w, statusOK, map[string]string{"folderid": id})
	case "/file/ul":
		target := a.srv.URL + "/upload?folder=" + url.QueryEscape(q.Get("folder"))
		a.reply(w, statusOK, UploadTarget{URL: target, ValidUntil: "2030-01-01 00:00:00"})
	case "/file/rename":
		for folder, files := range a.files {
			for i := range files {
				if files[i].LinkID == q.Get("file") {
					a.files[folder][i].Name = q.Get("name")
				}
			}
		}
		a.reply(w, statusOK, true)
	default:
		a.reply(w, http.StatusNotFound, nil)
	}
}

// fakeTransfer stores each transferred file in the fake API under a generic
// name, the way the real upload endpoint does.
type fakeTransfer struct {
	api *fakeAPI

	mu       sync.Mutex
	requests []TransferRequest
	err      error

	resets  atomic.Int32
	files   atomic.Int32
	folders atomic.Int32
	noStore bool
}

func (f *fakeTransfer) Transfer(ctx context.Context, req TransferRequest) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	if f.noStore {
		return nil
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return err
	}
	f.api.addFile(u.Query().Get("folder"), "upload.bin")
	return nil
}

func (f *fakeTransfer) Requests() []TransferRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TransferRequest(nil), f.requests...)
}

func (f *fakeTransfer) ResetProgress() { f.resets.Add(1) }
func (f *fakeTransfer) AddFile()       { f.files.Add(1) }
func (f *fakeTransfer) AddFolder()     { f.folders.Add(1) }

type fakePublisher struct {
	mu     sync.Mutex
	titles []string
	pages  []string
	err    error
}

func (p *fakePublisher) CreatePage(_ context.Context, title, markup string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.titles = append(p.titles, title)
	p.pages = append(p.pages, markup)
	return fmt.Sprintf("StreamTape-X-%d", len(p.pages)), nil
}

// logRecorder captures log records emitted through pkg/logger.
type logRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func recordLogs(t *testing.T) *logRecorder {
	t.Helper()
	rec := &logRecorder{}
	prev := logger.Log
	logger.Log = slog.New(rec)
	t.Cleanup(func() { logger.Log = prev })
	return rec
}

func (r *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *logRecorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *logRecorder) WithGroup(string) slog.Handler      { return r }

// AtLeast returns the messages logged at level l or above.
func (r *logRecorder) AtLeast(l slog.Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var msgs []string
	for _, rec := range r.records {
		if rec.Level >= l {
			msgs = append(msgs, rec.Message)
		}
	}
	return msgs
}
