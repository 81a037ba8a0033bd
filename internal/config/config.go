package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the settings of the catalog server (kadr serve).
type Config struct {
	DatabaseURL string // KADR_DATABASE_URL (required)
	GRPCAddr    string // KADR_GRPC_ADDR (default ":9090")
	HTTPAddr    string // KADR_HTTP_ADDR (default ":8080")
	NATSURL     string // KADR_NATS_URL (optional, empty = no events)
	AuthToken   string // KADR_AUTH_TOKEN (optional, empty = auth disabled)

	DBMaxConns       int           // KADR_DB_MAX_CONNS (default 25)
	DBConnectTimeout time.Duration // KADR_DB_CONNECT_TIMEOUT (default 30s)

	// Backup settings
	BackupInterval   time.Duration // KADR_BACKUP_INTERVAL (default 1h; 0 = disabled)
	BackupS3Bucket   string        // KADR_BACKUP_S3_BUCKET (enables backups when set)
	BackupS3Endpoint string        // KADR_BACKUP_S3_ENDPOINT (custom endpoint for MinIO)
	BackupS3Region   string        // KADR_BACKUP_S3_REGION (default "us-east-1")
	BackupS3Key      string        // KADR_BACKUP_S3_KEY (default "kadr/backup.jsonl")
}

// Load reads the server configuration from the environment.
func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("KADR_DATABASE_URL"),
		GRPCAddr:         envOrDefault("KADR_GRPC_ADDR", ":9090"),
		HTTPAddr:         envOrDefault("KADR_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("KADR_NATS_URL"),
		AuthToken:        os.Getenv("KADR_AUTH_TOKEN"),
		BackupS3Bucket:   os.Getenv("KADR_BACKUP_S3_BUCKET"),
		BackupS3Endpoint: os.Getenv("KADR_BACKUP_S3_ENDPOINT"),
		BackupS3Region:   envOrDefault("KADR_BACKUP_S3_REGION", "us-east-1"),
		BackupS3Key:      envOrDefault("KADR_BACKUP_S3_KEY", "kadr/backup.jsonl"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("KADR_DATABASE_URL is required")
	}

	d, err := envDuration("KADR_BACKUP_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}
	c.BackupInterval = d

	if c.DBMaxConns, err = envPositiveInt("KADR_DB_MAX_CONNS", 25); err != nil {
		return nil, err
	}
	if c.DBConnectTimeout, err = envDuration("KADR_DB_CONNECT_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	return c, nil
}

// PickerConfig holds the tuning knobs of the option picker used by forms.
type PickerConfig struct {
	PageSize         int           // KADR_PAGE_SIZE (default 20)
	SearchDebounce   time.Duration // KADR_SEARCH_DEBOUNCE (default 300ms)
	IdentityDebounce time.Duration // KADR_IDENTITY_DEBOUNCE (default 350ms)
	ResolveMaxPages  int           // KADR_RESOLVE_MAX_PAGES (default 10)
	FetchTimeout     time.Duration // KADR_FETCH_TIMEOUT (default 10s)
}

// DefaultPicker returns the picker defaults.
func DefaultPicker() PickerConfig {
	return PickerConfig{
		PageSize:         20,
		SearchDebounce:   300 * time.Millisecond,
		IdentityDebounce: 350 * time.Millisecond,
		ResolveMaxPages:  10,
		FetchTimeout:     10 * time.Second,
	}
}

// LoadPicker reads the picker configuration from the environment, falling back
// to DefaultPicker for unset variables.
func LoadPicker() (*PickerConfig, error) {
	def := DefaultPicker()
	c := &PickerConfig{}
	var err error

	if c.PageSize, err = envPositiveInt("KADR_PAGE_SIZE", def.PageSize); err != nil {
		return nil, err
	}
	if c.ResolveMaxPages, err = envPositiveInt("KADR_RESOLVE_MAX_PAGES", def.ResolveMaxPages); err != nil {
		return nil, err
	}
	if c.SearchDebounce, err = envDuration("KADR_SEARCH_DEBOUNCE", def.SearchDebounce); err != nil {
		return nil, err
	}
	if c.IdentityDebounce, err = envDuration("KADR_IDENTITY_DEBOUNCE", def.IdentityDebounce); err != nil {
		return nil, err
	}
	if c.FetchTimeout, err = envDuration("KADR_FETCH_TIMEOUT", def.FetchTimeout); err != nil {
		return nil, err
	}
	if c.FetchTimeout <= 0 {
		return nil, fmt.Errorf("KADR_FETCH_TIMEOUT: must be positive")
	}
	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}

func envPositiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %d", key, n)
	}
	return n, nil
}
