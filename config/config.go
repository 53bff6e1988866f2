package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultStreamtapeAPI        = "https://api.streamtape.com"
	DefaultCoverImage           = "https://graph.org/file/60f9f8bcb97d27f76f5c0.jpg"
	DefaultPageTitle            = "StreamTape X"
	DefaultTelegraphAuthor      = "Aether"
	DefaultMaxConcurrentUploads = 4
	DefaultRetryLimit           = 3
	DefaultRetryBaseDelay       = 2 * time.Second
)

type Config struct {
	BotToken        string
	AppID           int
	AppHash         string
	OwnerID         int64
	AuthorizedUsers []int64
	SessionDir      string
	DownloadDir     string
	DatabasePath    string
	LogLevel        string

	StreamtapeLogin  string
	StreamtapeKey    string
	StreamtapeAPIURL string
	CoverImage       string
	PageTitle        string

	TelegraphToken  string
	TelegraphAuthor string

	MaxConcurrentUploads int
	RetryLimit           int
	RetryBaseDelay       time.Duration
}

// LoadConfig reads the environment and, when CONFIG_FILE is set, a config file.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("session_dir", "./data/session")
	v.SetDefault("download_dir", os.TempDir())
	v.SetDefault("database_path", "./data/aether.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("streamtape_api_url", DefaultStreamtapeAPI)
	v.SetDefault("cover_image", DefaultCoverImage)
	v.SetDefault("page_title", DefaultPageTitle)
	v.SetDefault("telegraph_author", DefaultTelegraphAuthor)
	v.SetDefault("max_concurrent_uploads", DefaultMaxConcurrentUploads)
	v.SetDefault("retry_limit", DefaultRetryLimit)
	v.SetDefault("retry_base_delay", DefaultRetryBaseDelay)

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	users, err := parseIDs(v.GetString("authorized_users"))
	if err != nil {
		return nil, fmt.Errorf("parse AUTHORIZED_USERS: %w", err)
	}

	return &Config{
		BotToken:             v.GetString("bot_token"),
		AppID:                v.GetInt("app_id"),
		AppHash:              v.GetString("app_hash"),
		OwnerID:              v.GetInt64("owner_id"),
		AuthorizedUsers:      users,
		SessionDir:           v.GetString("session_dir"),
		DownloadDir:          v.GetString("download_dir"),
		DatabasePath:         v.GetString("database_path"),
		LogLevel:             v.GetString("log_level"),
		StreamtapeLogin:      v.GetString("streamtape_login"),
		StreamtapeKey:        v.GetString("streamtape_key"),
		StreamtapeAPIURL:     v.GetString("streamtape_api_url"),
		CoverImage:           v.GetString("cover_image"),
		PageTitle:            v.GetString("page_title"),
		TelegraphToken:       v.GetString("telegraph_token"),
		TelegraphAuthor:      v.GetString("telegraph_author"),
		MaxConcurrentUploads: v.GetInt("max_concurrent_uploads"),
		RetryLimit:           v.GetInt("retry_limit"),
		RetryBaseDelay:       v.GetDuration("retry_base_delay"),
	}, nil
}

// Validate checks the settings the bot needs to log in.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is not set"))
	}
	if c.AppID == 0 || c.AppHash == "" {
		errs = append(errs, errors.New("APP_ID and APP_HASH are required"))
	}
	if c.OwnerID == 0 {
		errs = append(errs, errors.New("OWNER_ID is not set"))
	}
	return errors.Join(errs...)
}

// IsAuthorized reports whether userID may use upload and gallery commands.
func (c *Config) IsAuthorized(userID int64) bool {
	if userID != 0 && userID == c.OwnerID {
		return true
	}
	for _, id := range c.AuthorizedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func parseIDs(raw string) ([]int64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
