package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelc4/aether-ddl-bot/config"
	"github.com/pavelc4/aether-ddl-bot/internal/streamtape"
)

func TestStreamtapeFactoryUsesConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account/info", r.URL.Path)
		assert.Equal(t, "user", r.URL.Query().Get("login"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": 200,
			"msg":    "OK",
			"result": map[string]string{"apiid": "id-1", "email": "a@b.c"},
		})
	}))
	defer srv.Close()

	cfg := &config.Config{
		StreamtapeLogin:  "user",
		StreamtapeKey:    "secret",
		StreamtapeAPIURL: srv.URL,
		RetryLimit:       1,
		RetryBaseDelay:   time.Millisecond,
	}
	factory := NewStreamtapeFactory(cfg, srv.Client(), nil)

	c, err := factory(nil)
	require.NoError(t, err)
	info, err := c.GetAccountInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id-1", info.APIID)
}

func TestStreamtapeFactoryRequiresCredentials(t *testing.T) {
	_, err := NewStreamtapeFactory(&config.Config{}, nil, nil)(nil)
	assert.ErrorIs(t, err, streamtape.ErrMissingCredentials)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), &config.Config{DatabasePath: t.TempDir() + "/bot.db"})
	assert.Error(t, err)
}
