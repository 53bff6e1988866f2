package streamtape

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

// GetAccountInfo is diagnostic only; no other call depends on it.
func (c *Client) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.call(ctx, "/account/info", nil, &info); err != nil {
		logFailure(ctx, "Failed to get account info", "error", err)
		return nil, err
	}
	return &info, nil
}

func (c *Client) GetUploadURL(ctx context.Context, folderID string, opts UploadOptions) (*UploadTarget, error) {
	params := url.Values{}
	if folderID != "" {
		params.Set("folder", folderID)
	}
	if opts.SHA256 != "" {
		params.Set("sha256", opts.SHA256)
	}
	if opts.HTTPOnly {
		params.Set("httponly", "true")
	}

	var target UploadTarget
	if err := c.call(ctx, "/file/ul", params, &target); err != nil {
		logFailure(ctx, "Failed to get upload URL", "folder", folderID, "error", err)
		return nil, err
	}
	if target.URL == "" {
		err := fmt.Errorf("streamtape /file/ul: empty upload url")
		logger.Error("Failed to get upload URL", "folder", folderID, "error", err)
		return nil, err
	}
	return &target, nil
}

// ListFolder lists the folder's direct children; an empty folderID lists the root.
func (c *Client) ListFolder(ctx context.Context, folderID string) (*FolderContents, error) {
	params := url.Values{}
	if folderID != "" {
		params.Set("folder", folderID)
	}

	var contents FolderContents
	if err := c.call(ctx, "/file/listfolder", params, &contents); err != nil {
		logFailure(ctx, "Failed to list folder", "folder", folderID, "error", err)
		return nil, err
	}
	return &contents, nil
}

// CreateFolder creates name under parentID (root when empty). A name already
// used by a sibling is prefixed as described by Disambiguate. The sibling
// check and the create are two requests, so concurrent creators can still
// produce duplicates.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*Folder, error) {
	existing, err := c.ListFolder(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list siblings of %q: %w", name, err)
	}

	siblings := make([]string, 0, len(existing.Folders))
	for _, f := range existing.Folders {
		siblings = append(siblings, f.Name)
	}
	return c.createFolder(ctx, Disambiguate(name, siblings), parentID)
}

func (c *Client) createFolder(ctx context.Context, name, parentID string) (*Folder, error) {
	params := url.Values{"name": {name}}
	if parentID != "" {
		params.Set("pid", parentID)
	}

	var created createdFolder
	if err := c.call(ctx, "/file/createfolder", params, &created); err != nil {
		logFailure(ctx, "Failed to create folder", "name", name, "parent", parentID, "error", err)
		return nil, err
	}
	if created.FolderID == "" {
		err := fmt.Errorf("streamtape /file/createfolder: no folder id for %q", name)
		logger.Error("Failed to create folder", "name", name, "error", err)
		return nil, err
	}
	return &Folder{ID: created.FolderID, Name: name}, nil
}

func (c *Client) Rename(ctx context.Context, linkID, name string) error {
	params := url.Values{"file": {linkID}, "name": {name}}
	if err := c.call(ctx, "/file/rename", params, nil); err != nil {
		logFailure(ctx, "Failed to rename file", "file", linkID, "name", name, "error", err)
		return err
	}
	return nil
}

// Disambiguate returns name when no sibling uses it, otherwise "{i} {name}"
// for the smallest i >= 1 that is free.
func Disambiguate(name string, siblings []string) string {
	taken := make(map[string]struct{}, len(siblings))
	for _, s := range siblings {
		taken[s] = struct{}{}
	}
	if _, ok := taken[name]; !ok {
		return name
	}
	for i := 1; ; i++ {
		candidate := strconv.Itoa(i) + " " + name
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
