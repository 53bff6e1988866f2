package streamtape

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
)

const (
	// ListingUnavailable is returned in place of a page URL, or embedded in
	// place of a nested section, when a folder cannot be listed.
	ListingUnavailable = "Failed to retrieve folder contents."

	fileURLPrefix = "https://streamtape.to/v/"
	pageURLPrefix = "https://te.legra.ph/"

	sectionRule = "<aside>╾──────────────────────╼</aside><br>"
)

var ErrNoPublisher = errors.New("streamtape: no page publisher configured")

func FileURL(linkID string) string {
	return fileURLPrefix + linkID
}

func PageURL(path string) string {
	return pageURLPrefix + strings.TrimLeft(path, "/")
}

// PublishListing renders the recursive contents of folderID, publishes it as a
// page and returns the page URL. When the folder itself cannot be listed the
// result is ListingUnavailable with a nil error.
func (c *Client) PublishListing(ctx context.Context, folderID string) (string, error) {
	body, err := c.RenderListing(ctx, folderID)
	if err != nil {
		return ListingUnavailable, nil
	}

	var doc strings.Builder
	if c.cfg.CoverImage != "" {
		fmt.Fprintf(&doc, "<figure><img src='%s'></figure>", html.EscapeString(c.cfg.CoverImage))
	}
	doc.WriteString(body)

	if c.publisher == nil {
		return "", ErrNoPublisher
	}
	path, err := c.publisher.CreatePage(ctx, c.cfg.PageTitle, doc.String())
	if err != nil {
		logFailure(ctx, "Failed to create listing page", "folder", folderID, "error", err)
		return "", fmt.Errorf("publish listing of %s: %w", folderID, err)
	}
	return PageURL(path), nil
}

// RenderListing returns the markup fragment for folderID: a header plus the
// nested fragment for each sub-folder, followed by an ordered list of files.
// A sub-folder that cannot be listed renders as ListingUnavailable.
func (c *Client) RenderListing(ctx context.Context, folderID string) (string, error) {
	contents, err := c.ListFolder(ctx, folderID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, f := range contents.Folders {
		b.WriteString(sectionRule)
		fmt.Fprintf(&b, "<aside><b>🗂 %s</b></aside><br>", html.EscapeString(f.Name))
		b.WriteString(sectionRule)

		nested, err := c.RenderListing(ctx, f.ID)
		if err != nil {
			nested = ListingUnavailable
		}
		b.WriteString(nested)
	}

	b.WriteString("<ol>")
	for _, f := range contents.Files {
		fmt.Fprintf(&b, `<li> <code>%s</code><br>🔗 <a href="%s">StreamTape URL</a><br> </li>`,
			html.EscapeString(f.Name), html.EscapeString(FileURL(f.LinkID)))
	}
	b.WriteString("</ol>")
	return b.String(), nil
}
