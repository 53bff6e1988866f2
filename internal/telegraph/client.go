// Package telegraph publishes HTML fragments as telegra.ph pages.
package telegraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

const (
	DefaultBaseURL    = "https://api.telegra.ph"
	DefaultShortName  = "aether"
	DefaultAuthorName = "Aether"
)

var ErrNoToken = errors.New("telegraph: no access token")

// APIError is an {"ok": false} response.
type APIError struct {
	Method string
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegraph %s: %s", e.Method, e.Msg)
}

type Config struct {
	BaseURL    string
	Token      string
	ShortName  string
	AuthorName string
	HTTPClient *http.Client
}

type Client struct {
	cfg  Config
	http *http.Client

	mu    sync.Mutex
	token string
}

type Account struct {
	ShortName   string `json:"short_name"`
	AuthorName  string `json:"author_name"`
	AccessToken string `json:"access_token"`
}

type Page struct {
	Path  string `json:"path"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

type response struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error"`
	Result json.RawMessage `json:"result"`
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ShortName == "" {
		cfg.ShortName = DefaultShortName
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = DefaultAuthorName
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: hc, token: cfg.Token}
}

func (c *Client) call(ctx context.Context, method string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/"+method, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegraph %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read telegraph %s response: %w", method, err)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return fmt.Errorf("decode telegraph %s response (http %d): %w", method, resp.StatusCode, err)
	}
	if !r.OK {
		return &APIError{Method: method, Msg: r.Error}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(r.Result, out)
}

func (c *Client) CreateAccount(ctx context.Context, shortName, authorName string) (*Account, error) {
	form := url.Values{"short_name": {shortName}, "author_name": {authorName}}
	var acc Account
	if err := c.call(ctx, "createAccount", form, &acc); err != nil {
		return nil, err
	}
	if acc.AccessToken == "" {
		return nil, ErrNoToken
	}
	return &acc, nil
}

// accessToken returns the configured token or creates an account on first use.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	acc, err := c.CreateAccount(ctx, c.cfg.ShortName, c.cfg.AuthorName)
	if err != nil {
		return "", fmt.Errorf("create telegraph account: %w", err)
	}
	logger.Info("Telegraph account created", "short_name", acc.ShortName)
	c.token = acc.AccessToken
	return c.token, nil
}

// CreatePage publishes markup under title and returns the page path.
func (c *Client) CreatePage(ctx context.Context, title, markup string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	nodes, err := ToNodes(markup)
	if err != nil {
		return "", err
	}
	content, err := json.Marshal(nodes)
	if err != nil {
		return "", fmt.Errorf("encode page content: %w", err)
	}

	form := url.Values{
		"access_token": {token},
		"title":        {title},
		"author_name":  {c.cfg.AuthorName},
		"content":      {string(content)},
	}
	var page Page
	if err := c.call(ctx, "createPage", form, &page); err != nil {
		return "", err
	}
	logger.Debug("Telegraph page created", "path", page.Path)
	return page.Path, nil
}
