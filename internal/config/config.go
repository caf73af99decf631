package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Store    StoreConfig    `mapstructure:"store" yaml:"store" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database" validate:"-"`
	Images   ImagesConfig   `mapstructure:"images" yaml:"images"`
	Export   ExportConfig   `mapstructure:"export" yaml:"export"`
	Inbox    InboxConfig    `mapstructure:"inbox" yaml:"inbox"`
}

// StoreConfig selects the key-value substrate
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" validate:"required,oneof=memory file sqlite postgres"`
	// Path is the data directory (file) or database file (sqlite).
	Path string `mapstructure:"path" yaml:"path"`
}

// DatabaseConfig holds Postgres connection settings, used by the postgres driver
type DatabaseConfig struct {
	Host     string `mapstructure:"host" yaml:"host" validate:"required"`
	Port     int    `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	User     string `mapstructure:"user" yaml:"user" validate:"required"`
	Password string `mapstructure:"password" yaml:"password" validate:"required"`
	Database string `mapstructure:"database" yaml:"database" validate:"required"`
	Schema   string `mapstructure:"schema" yaml:"schema"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// ImagesConfig bounds what the image encoder will read
type ImagesConfig struct {
	MaxSizeMB     int      `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"min=0"`
	AllowPatterns []string `mapstructure:"allow_patterns" yaml:"allow_patterns"`
	BaseDir       string   `mapstructure:"base_dir" yaml:"base_dir" validate:"omitempty,dir"`
}

// ExportConfig controls the HTML document handed to the PDF renderer
type ExportConfig struct {
	Locale    string `mapstructure:"locale" yaml:"locale" validate:"oneof=id en"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// InboxConfig controls markdown import and the inbox watcher
type InboxConfig struct {
	Path            string   `mapstructure:"path" yaml:"path" validate:"omitempty,dir"`
	DebounceMs      int      `mapstructure:"debounce_ms" yaml:"debounce_ms" validate:"min=0"`
	RetryAttempts   int      `mapstructure:"retry_attempts" yaml:"retry_attempts" validate:"min=0"`
	IgnorePatterns  []string `mapstructure:"ignore_patterns" yaml:"ignore_patterns"`
	IncludePatterns []string `mapstructure:"include_patterns" yaml:"include_patterns"`
}

// MaxImageBytes returns the image size limit in bytes, 0 meaning unlimited.
func (c *ImagesConfig) MaxImageBytes() int64 {
	return int64(c.MaxSizeMB) * 1024 * 1024
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, sslMode,
	)
	if d.Schema != "" {
		connStr += "&search_path=" + d.Schema + ",public"
	}
	return connStr
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: DriverFile,
		},
		Database: DatabaseConfig{
			Port:    5432,
			Schema:  "notestore",
			SSLMode: "require",
		},
		Images: ImagesConfig{
			MaxSizeMB: 10,
			AllowPatterns: []string{
				"*.{png,jpg,jpeg,gif,webp,heic,bmp}",
				"*.{PNG,JPG,JPEG,GIF,WEBP,HEIC,BMP}",
			},
		},
		Export: ExportConfig{
			Locale: "id",
		},
		Inbox: InboxConfig{
			DebounceMs:    2000,
			RetryAttempts: 3,
			IgnorePatterns: []string{
				".obsidian/**",
				".trash/**",
				".git/**",
				"**/.DS_Store",
			},
			IncludePatterns: []string{"**/*.md"},
		},
	}
}

// Load reads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("store.driver", defaults.Store.Driver)
	v.SetDefault("database.port", defaults.Database.Port)
	v.SetDefault("database.schema", defaults.Database.Schema)
	v.SetDefault("database.sslmode", defaults.Database.SSLMode)
	v.SetDefault("images.max_size_mb", defaults.Images.MaxSizeMB)
	v.SetDefault("images.allow_patterns", defaults.Images.AllowPatterns)
	v.SetDefault("export.locale", defaults.Export.Locale)
	v.SetDefault("inbox.debounce_ms", defaults.Inbox.DebounceMs)
	v.SetDefault("inbox.retry_attempts", defaults.Inbox.RetryAttempts)
	v.SetDefault("inbox.ignore_patterns", defaults.Inbox.IgnorePatterns)
	v.SetDefault("inbox.include_patterns", defaults.Inbox.IncludePatterns)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(getConfigDir())
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("NOTESTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Defaults plus environment are a valid configuration.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize expands paths and fills driver-dependent defaults.
func (c *Config) normalize() error {
	c.Database.Password = os.ExpandEnv(c.Database.Password)
	c.Images.BaseDir = expandPath(c.Images.BaseDir)
	c.Inbox.Path = expandPath(c.Inbox.Path)
	c.Export.OutputDir = expandPath(c.Export.OutputDir)
	c.Store.Path = expandPath(c.Store.Path)

	if c.Store.Path == "" {
		switch c.Store.Driver {
		case DriverFile:
			c.Store.Path = filepath.Join(getConfigDir(), "data")
		case DriverSQLite:
			c.Store.Path = filepath.Join(getConfigDir(), "notestore.db")
		}
	}

	if c.Store.Driver == DriverPostgres {
		c.Database.Schema = SanitizeIdentifier(c.Database.Schema)
	}
	return nil
}

// Validate checks the configuration; database settings are only required for
// the postgres driver.
func (c *Config) Validate() error {
	validate := newValidator()

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Store.Driver == DriverPostgres {
		if err := validate.Struct(&c.Database); err != nil {
			return fmt.Errorf("database config validation failed: %w", err)
		}
	}
	return nil
}

// newValidator returns a validator with the custom "dir" rule registered.
func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("dir", func(fl validator.FieldLevel) bool {
		path := fl.Field().String()
		if path == "" {
			return false
		}
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		return info.IsDir()
	})
	return validate
}

// getConfigDir returns the appropriate config directory for the OS
func getConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "notestore")
		}
		return filepath.Join(os.Getenv("USERPROFILE"), ".config", "notestore")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, "notestore")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "notestore")
	}
}

// GetConfigDir returns the config directory, creating it if needed
func GetConfigDir() (string, error) {
	dir := getConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// expandPath expands ~ and environment variables in a path
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path)
}

var (
	invalidIdentChars = regexp.MustCompile(`[^a-z0-9_]`)
	repeatedUnderline = regexp.MustCompile(`_+`)
)

// SanitizeIdentifier converts a name into a valid PostgreSQL identifier.
// The schema name is interpolated into DDL, so this is also what keeps it safe:
// - Lowercase only
// - Starts with letter or underscore
// - Contains only letters, digits, underscores
// - Spaces and hyphens become underscores
// - Max 63 characters (PostgreSQL limit)
func SanitizeIdentifier(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	name = invalidIdentChars.ReplaceAllString(name, "")
	name = repeatedUnderline.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if len(name) == 0 {
		name = "notestore"
	} else if unicode.IsDigit(rune(name[0])) {
		name = "notestore_" + name
	}

	if len(name) > 63 {
		name = name[:63]
		name = strings.TrimRight(name, "_")
	}

	return name
}
