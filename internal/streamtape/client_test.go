package streamtape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{Login: "user"}, nil, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestNewDefaults(t *testing.T) {
	c, err := New(Config{Login: "user", Key: "secret", BaseURL: "http://api.local/"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://api.local", c.cfg.BaseURL)
	assert.Equal(t, DefaultPageTitle, c.cfg.PageTitle)
	assert.Equal(t, DefaultRetryLimit, c.cfg.RetryLimit)
	assert.Equal(t, DefaultRetryBaseDelay, c.cfg.RetryBaseDelay)

	c, err = New(Config{Login: "user", Key: "secret", RetryLimit: -1}, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, c.cfg.RetryLimit)
}

func TestGetAccountInfo(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client(t, nil, nil)

	info, err := c.GetAccountInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "api-1", info.APIID)
	assert.Equal(t, "me@example.com", info.Email)
}

func TestSessionIsReusedAndClosable(t *testing.T) {
	c, err := New(Config{Login: "user", Key: "secret"}, nil, nil)
	require.NoError(t, err)

	assert.Same(t, c.session(), c.session())
	c.Close()
	c.Close()
}

func TestCallRetriesRateLimitedEnvelope(t *testing.T) {
	api := newFakeAPI(t)
	api.rateLimited["/account/info"] = 2
	c := api.client(t, nil, nil)

	_, err := c.GetAccountInfo(context.Background())
	require.NoError(t, err)
	assert.Len(t, api.Calls(), 3)
}

func TestCallGivesUpAfterRetryLimit(t *testing.T) {
	api := newFakeAPI(t)
	api.rateLimited["/account/info"] = 10
	c := api.client(t, nil, nil)

	_, err := c.GetAccountInfo(context.Background())
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Len(t, api.Calls(), 3, "one attempt plus two retries")
}

func TestCallRetriesHTTPTooManyRequests(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"status":200,"msg":"OK","result":{"apiid":"x"}}`))
	}))
	defer srv.Close()

	c, err := New(Config{Login: "u", Key: "k", BaseURL: srv.URL, RetryBaseDelay: time.Millisecond}, nil, nil)
	require.NoError(t, err)

	info, err := c.GetAccountInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", info.APIID)
	assert.EqualValues(t, 2, hits.Load())
}

func TestCallDoesNotRetryAPIErrors(t *testing.T) {
	api := newFakeAPI(t)
	api.failing["/account/info"] = http.StatusForbidden
	c := api.client(t, nil, nil)

	_, err := c.GetAccountInfo(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "/account/info", apiErr.Endpoint)
	assert.Len(t, api.Calls(), 1)
}

func TestCallStopsWhenContextCancelled(t *testing.T) {
	api := newFakeAPI(t)
	api.rateLimited["/account/info"] = 10
	c, err := New(Config{Login: "user", Key: "secret", BaseURL: api.srv.URL, RetryBaseDelay: time.Hour}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	api.onRequest = func(string, url.Values) { cancel() }

	done := make(chan error, 1)
	go func() {
		_, err := c.GetAccountInfo(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("call kept retrying after cancellation")
	}
}

func TestNewBackOffDoublesDelay(t *testing.T) {
	c, err := New(Config{Login: "u", Key: "k", RetryLimit: 3, RetryBaseDelay: time.Second}, nil, nil)
	require.NoError(t, err)

	b := c.newBackOff()
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 4*time.Second, b.NextBackOff())
	assert.Equal(t, time.Duration(-1), b.NextBackOff())
}

func TestNewBackOffStaysBounded(t *testing.T) {
	c, err := New(Config{Login: "u", Key: "k", RetryLimit: 40, RetryBaseDelay: 2 * time.Minute}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, MaxRetryLimit, c.cfg.RetryLimit)

	b := c.newBackOff()
	var delays []time.Duration
	for d := b.NextBackOff(); d != backoff.Stop; d = b.NextBackOff() {
		delays = append(delays, d)
	}
	require.Len(t, delays, MaxRetryLimit)
	assert.Equal(t, 2*time.Minute, delays[0])
	for _, d := range delays {
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, MaxRetryDelay)
	}
	assert.Equal(t, MaxRetryDelay, delays[len(delays)-1])
}
