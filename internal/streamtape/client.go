// Package streamtape is a client for the StreamTape REST API that mirrors local
// files and directory trees into remote folders and publishes folder listings.
package streamtape

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

	"github.com/cenkalti/backoff/v4"

	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

const (
	DefaultBaseURL        = "https://api.streamtape.com"
	DefaultPageTitle      = "StreamTape X"
	DefaultRetryLimit     = 3
	DefaultRetryBaseDelay = 2 * time.Second
	MaxRetryLimit         = 10
	MaxRetryDelay         = 10 * time.Minute

	statusOK          = 200
	statusRateLimited = 429
	requestTimeout    = 60 * time.Second
)

var (
	ErrMissingCredentials = errors.New("streamtape: login and key are required")
	ErrRateLimited        = errors.New("streamtape: rate limited")
	ErrEmptyListing       = errors.New("streamtape: folder listing has no files")
	ErrUploadFailed       = errors.New("failed to upload file/folder to StreamTape API, retry or try after some time")
)

// APIError is a response envelope whose status is not 200.
type APIError struct {
	Endpoint string
	Status   int
	Msg      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("streamtape %s: status %d: %s", e.Endpoint, e.Status, e.Msg)
}

type Config struct {
	Login      string
	Key        string
	BaseURL    string
	CoverImage string
	PageTitle  string

	RetryLimit     int
	RetryBaseDelay time.Duration

	// HTTPClient replaces the session the client would otherwise create.
	HTTPClient *http.Client
}

type Client struct {
	cfg       Config
	transfer  Transferer
	publisher Publisher

	once sync.Once
	http *http.Client
}

func New(cfg Config, transfer Transferer, publisher Publisher) (*Client, error) {
	if cfg.Login == "" || cfg.Key == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageTitle == "" {
		cfg.PageTitle = DefaultPageTitle
	}
	if cfg.RetryLimit < 0 {
		cfg.RetryLimit = 0
	} else if cfg.RetryLimit == 0 {
		cfg.RetryLimit = DefaultRetryLimit
	} else if cfg.RetryLimit > MaxRetryLimit {
		cfg.RetryLimit = MaxRetryLimit
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}

	return &Client{
		cfg:       cfg,
		transfer:  transfer,
		publisher: publisher,
	}, nil
}

// session returns the connection shared by every API call, creating it on first use.
func (c *Client) session() *http.Client {
	c.once.Do(func() {
		if c.cfg.HTTPClient != nil {
			c.http = c.cfg.HTTPClient
			return
		}
		c.http = &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          20,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		}
	})
	return c.http
}

// Close releases the idle connections of the session. It is safe to call more than once.
func (c *Client) Close() {
	c.session().CloseIdleConnections()
}

type envelope struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Result json.RawMessage `json:"result"`
}

// call issues one authenticated GET against endpoint and decodes the result
// payload into out. Rate-limit responses are retried with exponential backoff
// (RetryBaseDelay doubled per attempt, at most RetryLimit retries); every other
// failure is returned immediately.
func (c *Client) call(ctx context.Context, endpoint string, params url.Values, out any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("login", c.cfg.Login)
	q.Set("key", c.cfg.Key)
	target := c.cfg.BaseURL + endpoint + "?" + q.Encode()

	op := func() error {
		env, err := c.get(ctx, endpoint, target)
		if err != nil {
			return err
		}
		switch env.Status {
		case statusOK:
		case statusRateLimited:
			return fmt.Errorf("%w: %s", ErrRateLimited, endpoint)
		default:
			return backoff.Permanent(&APIError{Endpoint: endpoint, Status: env.Status, Msg: env.Msg})
		}
		if out == nil || len(env.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.Result, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s result: %w", endpoint, err))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("StreamTape rate limited, backing off", "endpoint", endpoint, "wait", wait)
	}
	return backoff.RetryNotify(op, backoff.WithContext(c.newBackOff(), ctx), notify)
}

func (c *Client) get(ctx context.Context, endpoint, target string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request failed: %w", err))
	}

	resp, err := c.session().Do(req)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%s request failed: %w", endpoint, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("read %s response: %w", endpoint, err))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode %s response (http %d): %w", endpoint, resp.StatusCode, err))
	}
	return &env, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryBaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = max(MaxRetryDelay, c.cfg.RetryBaseDelay)
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(c.cfg.RetryLimit))
}
