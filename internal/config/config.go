package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		API
		OAuth
		Session
		Covers
		Refresh
		Logging
		Metrics
		FakeAPI
	}

	API struct {
		BaseURL string
		Timeout time.Duration // 0 disables the client timeout
	}
	OAuth struct {
		GoogleWebClientID     string
		GoogleIOSClientID     string
		GoogleAndroidClientID string
	}
	Session struct {
		DatabasePath  string
		EncryptionKey string // base64 32-byte key, takes precedence over Passphrase
		Passphrase    string
		KeyFilePath   string
	}
	Covers struct {
		GoogleBooksURL string
		OpenLibraryURL string
		Concurrency    int
		RatePerSecond  float64
		CacheDir       string // empty uses the user cache directory
	}
	Refresh struct {
		Schedule string // Cron format: "*/5 * * * *" = every five minutes
	}
	Logging struct {
		Level  string
		Format string // "text" or "json"
	}
	Metrics struct {
		Addr string // empty disables the /metrics listener
	}
	FakeAPI struct {
		Addr   string
		Secret string
	}
)

// loadDotEnv reads a .env file into the process environment if one exists.
// Values already present in the environment win.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

func NewConfig() *Config {
	loadDotEnv(".env")
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("api_base_url", DefaultAPIBaseURL)
	v.SetDefault("http_timeout", "30s")

	v.SetDefault("google_web_client_id", "")
	v.SetDefault("google_ios_client_id", "")
	v.SetDefault("google_android_client_id", "")

	v.SetDefault("token_database_path", DefaultTokenDatabasePath)
	v.SetDefault("token_encryption_key", "")
	v.SetDefault("token_passphrase", "")
	v.SetDefault("token_key_file", "")

	v.SetDefault("google_books_url", DefaultGoogleBooksURL)
	v.SetDefault("openlibrary_url", DefaultOpenLibraryURL)
	v.SetDefault("cover_concurrency", 4)
	v.SetDefault("cover_rate_per_second", 5.0)
	v.SetDefault("cover_cache_dir", "")

	v.SetDefault("refresh_schedule", DefaultRefreshSchedule)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("metrics_addr", "")

	v.SetDefault("fake_api_addr", ":8080")
	v.SetDefault("fake_api_secret", "mylibrary-dev-secret")
	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		API: API{
			BaseURL: v.GetString("API_BASE_URL"),
			Timeout: v.GetDuration("HTTP_TIMEOUT"),
		},
		OAuth: OAuth{
			GoogleWebClientID:     v.GetString("GOOGLE_WEB_CLIENT_ID"),
			GoogleIOSClientID:     v.GetString("GOOGLE_IOS_CLIENT_ID"),
			GoogleAndroidClientID: v.GetString("GOOGLE_ANDROID_CLIENT_ID"),
		},
		Session: Session{
			DatabasePath:  v.GetString("TOKEN_DATABASE_PATH"),
			EncryptionKey: v.GetString("TOKEN_ENCRYPTION_KEY"),
			Passphrase:    v.GetString("TOKEN_PASSPHRASE"),
			KeyFilePath:   v.GetString("TOKEN_KEY_FILE"),
		},
		Covers: Covers{
			GoogleBooksURL: v.GetString("GOOGLE_BOOKS_URL"),
			OpenLibraryURL: v.GetString("OPENLIBRARY_URL"),
			Concurrency:    v.GetInt("COVER_CONCURRENCY"),
			RatePerSecond:  v.GetFloat64("COVER_RATE_PER_SECOND"),
			CacheDir:       v.GetString("COVER_CACHE_DIR"),
		},
		Refresh: Refresh{
			Schedule: v.GetString("REFRESH_SCHEDULE"),
		},
		Logging: Logging{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Metrics: Metrics{
			Addr: v.GetString("METRICS_ADDR"),
		},
		FakeAPI: FakeAPI{
			Addr:   v.GetString("FAKE_API_ADDR"),
			Secret: v.GetString("FAKE_API_SECRET"),
		},
	}
}

// OAuthClientID returns the Google client id for a platform ("web", "ios",
// "android"), falling back to the web client.
func (c *Config) OAuthClientID(platform string) string {
	switch platform {
	case "ios":
		if c.GoogleIOSClientID != "" {
			return c.GoogleIOSClientID
		}
	case "android":
		if c.GoogleAndroidClientID != "" {
			return c.GoogleAndroidClientID
		}
	}
	return c.GoogleWebClientID
}
