// Package transfer streams local files to StreamTape upload targets and keeps
// the progress counters shown while an upload runs.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/pavelc4/aether-ddl-bot/internal/streamtape"
	"github.com/pavelc4/aether-ddl-bot/pkg/buffer"
	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

const formField = "file1"

// Hook receives progress of each transfer. Any field may be nil.
type Hook struct {
	OnStart    func(name string, total int64)
	OnProgress func(name string, written, total int64)
	OnDone     func(name string, total int64, took time.Duration)
}

// Uploader is the streamtape.Transferer used by the bot. One Uploader serves
// one upload task; its counters describe that task.
type Uploader struct {
	client *http.Client
	hook   *Hook

	name     atomic.Value
	size     atomic.Int64
	uploaded atomic.Int64
	files    atomic.Int64
	folders  atomic.Int64
}

var _ streamtape.Transferer = (*Uploader)(nil)

func NewUploader(client *http.Client, hook *Hook) *Uploader {
	if client == nil {
		client = &http.Client{}
	}
	u := &Uploader{client: client, hook: hook}
	u.name.Store("")
	return u
}

func (u *Uploader) ResetProgress() {
	u.uploaded.Store(0)
	u.size.Store(0)
}

func (u *Uploader) AddFile()   { u.files.Add(1) }
func (u *Uploader) AddFolder() { u.folders.Add(1) }

func (u *Uploader) Name() string        { return u.name.Load().(string) }
func (u *Uploader) Size() int64         { return u.size.Load() }
func (u *Uploader) Uploaded() int64     { return u.uploaded.Load() }
func (u *Uploader) TotalFiles() int64   { return u.files.Load() }
func (u *Uploader) TotalFolders() int64 { return u.folders.Load() }

type envelope struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

// Transfer posts req.Path as a multipart form to req.URL. The body is streamed
// through a pipe, so the file is never held in memory.
func (u *Uploader) Transfer(ctx context.Context, req streamtape.TransferRequest) error {
	f, err := os.Open(req.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", req.Path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", req.Path, err)
	}

	name := req.Name
	if name == "" {
		name = st.Name()
	}
	u.name.Store(name)
	u.size.Store(st.Size())
	if u.hook != nil && u.hook.OnStart != nil {
		u.hook.OnStart(name, st.Size())
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(formField, name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		buf := buffer.Default.Get()
		defer buffer.Default.Put(buf)
		if _, err := io.CopyBuffer(part, &progressReader{r: f, u: u, name: name, total: st.Size()}, *buf); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, pr)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := u.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload %s: http %d", name, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Status != 0 && env.Status != http.StatusOK {
		return fmt.Errorf("upload %s: status %d: %s", name, env.Status, env.Msg)
	}

	if u.hook != nil && u.hook.OnDone != nil {
		u.hook.OnDone(name, st.Size(), time.Since(start))
	}
	logger.InfoWithDuration("File transferred", start, "name", name, "size", st.Size())
	return nil
}

type progressReader struct {
	r     io.Reader
	u     *Uploader
	name  string
	total int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		written := p.u.uploaded.Add(int64(n))
		if h := p.u.hook; h != nil && h.OnProgress != nil {
			h.OnProgress(p.name, written, p.total)
		}
	}
	return n, err
}
