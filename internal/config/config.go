// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// DefaultLoginURL is the portal route the authentication step starts from.
const DefaultLoginURL = "https://portal.vmedulife.com/public/auth/#/login/Cvr-Telangana"

// Config holds the application configuration. The credential and selector files
// are separate inputs, referenced from PortalConfig and loaded per run.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Portal   PortalConfig   `mapstructure:"portal" yaml:"portal"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Profile  ProfileConfig  `mapstructure:"profile" yaml:"profile"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig selects the record store backend.
// Driver is "sqlite" (Path is used) or "postgres" (URL is used).
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	URL    string `mapstructure:"url" yaml:"-"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless   bool              `mapstructure:"headless" yaml:"headless"`
	DisableGPU bool              `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	ExecPath   string            `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent  string            `mapstructure:"user_agent" yaml:"user_agent"`
	Args       []string          `mapstructure:"args" yaml:"args"`
	Headers    map[string]string `mapstructure:"headers" yaml:"headers"`
	Width      int               `mapstructure:"width" yaml:"width"`
	Height     int               `mapstructure:"height" yaml:"height"`
}

// PortalConfig describes the target portal and the bounds used while driving it.
type PortalConfig struct {
	LoginURL          string        `mapstructure:"login_url" yaml:"login_url"`
	CredentialsFile   string        `mapstructure:"credentials_file" yaml:"credentials_file"`
	SelectorsFile     string        `mapstructure:"selectors_file" yaml:"selectors_file"`
	DebugHTMLFile     string        `mapstructure:"debug_html_file" yaml:"debug_html_file"`
	WaitTimeout       time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	BulkWaitTimeout   time.Duration `mapstructure:"bulk_wait_timeout" yaml:"bulk_wait_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// ServerConfig configures the reporting API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ScrapeInterval  time.Duration `mapstructure:"scrape_interval" yaml:"scrape_interval"`
	ScrapeBurst     int           `mapstructure:"scrape_burst" yaml:"scrape_burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ProfileConfig identifies whose attendance is being recorded.
type ProfileConfig struct {
	Owner       string  `mapstructure:"owner" yaml:"owner"`
	DefaultGoal float64 `mapstructure:"default_goal" yaml:"default_goal"`
	Timezone    string  `mapstructure:"timezone" yaml:"timezone"`
}

// Location resolves the configured time zone, falling back to time.Local.
func (p ProfileConfig) Location() (*time.Location, error) {
	if p.Timezone == "" || p.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown profile.timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "erpscraper")
	v.SetDefault("logger.log_file", "erpscraper.log")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Database --
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "attendance.db")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.width", 1366)
	v.SetDefault("browser.height", 900)

	// -- Portal --
	v.SetDefault("portal.login_url", DefaultLoginURL)
	v.SetDefault("portal.credentials_file", "config.json")
	v.SetDefault("portal.selectors_file", "selectors.json")
	v.SetDefault("portal.debug_html_file", "debug.html")
	v.SetDefault("portal.wait_timeout", "10s")
	v.SetDefault("portal.bulk_wait_timeout", "20s")
	v.SetDefault("portal.poll_interval", "250ms")
	v.SetDefault("portal.navigation_timeout", "60s")

	// -- Server --
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.scrape_interval", "1m")
	v.SetDefault("server.scrape_burst", 1)
	v.SetDefault("server.shutdown_timeout", "15s")

	// -- Profile --
	v.SetDefault("profile.owner", "default")
	v.SetDefault("profile.default_goal", 75.0)
	v.SetDefault("profile.timezone", "Local")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.BindEnv("database.url", "ERPSCRAPER_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.Portal.CredentialsFile,
		&c.Portal.SelectorsFile,
		&c.Portal.DebugHTMLFile,
		&c.Database.Path,
		&c.Logger.LogFile,
		&c.Browser.ExecPath,
	} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver (hint: ERPSCRAPER_DATABASE_URL)")
		}
	default:
		return fmt.Errorf("database.driver must be one of sqlite, postgres (got %q)", c.Database.Driver)
	}
	if err := c.Portal.Validate(); err != nil {
		return fmt.Errorf("portal configuration invalid: %w", err)
	}
	if c.Profile.Owner == "" {
		return fmt.Errorf("profile.owner must not be empty")
	}
	if err := ValidateGoal(c.Profile.DefaultGoal); err != nil {
		return fmt.Errorf("profile.default_goal: %w", err)
	}
	if _, err := c.Profile.Location(); err != nil {
		return err
	}
	if c.Server.ScrapeBurst <= 0 {
		return fmt.Errorf("server.scrape_burst must be a positive integer")
	}
	return nil
}

// Validate checks the portal bounds.
func (p *PortalConfig) Validate() error {
	if p.LoginURL == "" {
		return fmt.Errorf("login_url is required")
	}
	if p.WaitTimeout <= 0 {
		return fmt.Errorf("wait_timeout must be a positive duration")
	}
	if p.BulkWaitTimeout < p.WaitTimeout {
		return fmt.Errorf("bulk_wait_timeout must not be shorter than wait_timeout")
	}
	if p.PollInterval <= 0 || p.PollInterval >= p.WaitTimeout {
		return fmt.Errorf("poll_interval must be positive and shorter than wait_timeout")
	}
	if p.DebugHTMLFile == "" {
		return fmt.Errorf("debug_html_file is required")
	}
	return nil
}

// ValidateGoal checks an attendance goal percentage.
func ValidateGoal(goal float64) error {
	if goal <= 0 || goal > 100 {
		return fmt.Errorf("goal must be greater than 0 and at most 100 (got %.2f)", goal)
	}
	return nil
}
