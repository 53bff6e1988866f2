package streamtape

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

// AllowedExtensions are the video containers StreamTape accepts.
var AllowedExtensions = map[string]struct{}{
	".avi": {}, ".mkv": {}, ".mpg": {}, ".mpeg": {}, ".vob": {}, ".wmv": {},
	".flv": {}, ".mp4": {}, ".mov": {}, ".m4v": {}, ".m2v": {}, ".divx": {},
	".3gp": {}, ".webm": {}, ".ogv": {}, ".ogg": {}, ".ts": {}, ".ogm": {},
}

// TransferRequest describes one byte transfer to an upload target.
type TransferRequest struct {
	URL     string
	Path    string
	Name    string
	Headers map[string]string
}

// Transferer moves file bytes to an upload target and keeps the progress
// counters shown to users. Transfer must stop when ctx is cancelled.
type Transferer interface {
	Transfer(ctx context.Context, req TransferRequest) error
	ResetProgress()
	AddFile()
	AddFolder()
}

// Publisher hosts a rendered listing and returns the page path.
type Publisher interface {
	CreatePage(ctx context.Context, title, markup string) (string, error)
}

func IsAllowed(path string) bool {
	_, ok := AllowedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// cancelled reports whether the caller withdrew the upload. Deadlines are
// failures, not cancellations.
func cancelled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

// logFailure logs at error level, or at debug level when the caller cancelled ctx.
func logFailure(ctx context.Context, msg string, args ...any) {
	if cancelled(ctx) {
		logger.Debug(msg, args...)
		return
	}
	logger.Error(msg, args...)
}

// UploadFile uploads one local file into folderID, creating a folder named
// after the file when folderID is empty, and returns its public URL.
//
// A file with a disallowed extension yields a skip message and no error. A
// cancelled ctx yields an empty link and no error.
func (c *Client) UploadFile(ctx context.Context, localPath, folderID string, opts UploadOptions) (string, error) {
	if !IsAllowed(localPath) {
		return fmt.Sprintf("Skipping '%s' due to disallowed extension.", localPath), nil
	}

	name := filepath.Base(localPath)
	if folderID == "" {
		folder, err := c.CreateFolder(ctx, strings.TrimSuffix(name, filepath.Ext(name)), "")
		if err != nil {
			return "", err
		}
		folderID = folder.ID
	}

	target, err := c.GetUploadURL(ctx, folderID, opts)
	if err != nil {
		return "", err
	}

	if cancelled(ctx) {
		return "", nil
	}
	if c.transfer == nil {
		return "", errors.New("streamtape: no transfer delegate configured")
	}

	c.transfer.ResetProgress()
	err = c.transfer.Transfer(ctx, TransferRequest{URL: target.URL, Path: localPath, Name: name})
	if err != nil {
		if cancelled(ctx) {
			return "", nil
		}
		logger.Error("Failed to upload file", "path", localPath, "error", err)
		return "", fmt.Errorf("transfer %s: %w", localPath, err)
	}

	// The listing order is assumed to put the file just uploaded first.
	contents, err := c.ListFolder(ctx, folderID)
	if err != nil {
		return "", err
	}
	if len(contents.Files) == 0 {
		logger.Error("Uploaded file not found in folder", "path", localPath, "folder", folderID)
		return "", ErrEmptyListing
	}

	linkID := contents.Files[0].LinkID
	if err := c.Rename(ctx, linkID, name); err != nil && !cancelled(ctx) {
		logger.Warn("Uploaded file keeps its remote name", "link", linkID, "error", err)
	}
	return FileURL(linkID), nil
}

type walkNode struct {
	path     string
	parentID string
	isDir    bool
}

// UploadFolder mirrors localDir under parentID (root when empty) and returns
// the URL of the published listing of the new remote folder.
func (c *Client) UploadFolder(ctx context.Context, localDir, parentID string) (string, error) {
	root, err := c.CreateFolder(ctx, filepath.Base(localDir), parentID)
	if err != nil {
		return "", err
	}

	if err := c.mirror(ctx, localDir, root.ID); err != nil {
		logFailure(ctx, "Failed to upload folder", "path", localDir, "error", err)
		return "", err
	}
	if cancelled(ctx) {
		return "", nil
	}
	return c.PublishListing(ctx, root.ID)
}

// mirror walks localDir depth-first with an explicit stack. Entries are
// visited in directory order and a remote folder always exists before any of
// its children are pushed.
func (c *Client) mirror(ctx context.Context, localDir, folderID string) error {
	var stack []walkNode

	push := func(dir, remoteID string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for i := len(entries) - 1; i >= 0; i-- {
			p := filepath.Join(dir, entries[i].Name())
			stack = append(stack, walkNode{path: p, parentID: remoteID, isDir: isDirEntry(p, entries[i])})
		}
		return nil
	}

	if err := push(localDir, folderID); err != nil {
		return fmt.Errorf("read %s: %w", localDir, err)
	}

	for len(stack) > 0 {
		if cancelled(ctx) {
			return nil
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !node.isDir {
			if _, err := c.UploadFile(ctx, node.path, node.parentID, UploadOptions{}); err != nil && !cancelled(ctx) {
				logger.Warn("Skipping file after failed upload", "path", node.path, "error", err)
			}
			c.addFile()
			continue
		}

		folder, err := c.CreateFolder(ctx, filepath.Base(node.path), node.parentID)
		if err != nil {
			if !cancelled(ctx) {
				logger.Warn("Skipping folder", "path", node.path, "error", err)
			}
			c.addFolder()
			continue
		}
		if err := push(node.path, folder.ID); err != nil {
			logger.Warn("Skipping unreadable folder", "path", node.path, "error", err)
		}
		c.addFolder()
	}
	return nil
}

func isDirEntry(path string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink != 0 {
		if st, err := os.Stat(path); err == nil {
			return st.IsDir()
		}
	}
	return e.IsDir()
}

func (c *Client) addFile() {
	if c.transfer != nil {
		c.transfer.AddFile()
	}
}

func (c *Client) addFolder() {
	if c.transfer != nil {
		c.transfer.AddFolder()
	}
}

// Upload sends a file or a directory tree to StreamTape. It returns the link
// on success and an empty link with no error when ctx was cancelled; any other
// outcome is ErrUploadFailed.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	var (
		link  string
		cause error
	)

	st, err := os.Stat(path)
	switch {
	case err != nil:
		cause = err
	case st.IsDir():
		link, cause = c.UploadFolder(ctx, path, "")
	default:
		link, cause = c.UploadFile(ctx, path, "", UploadOptions{})
	}

	if link != "" {
		return link, nil
	}
	if cancelled(ctx) {
		return "", nil
	}
	if cause != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, cause)
	}
	return "", ErrUploadFailed
}
