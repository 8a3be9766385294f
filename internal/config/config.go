// Package config resolves runtime settings from flags, PRESSFEED_* env vars, an optional config file and .env.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PRESSFEED"

// Config is the fully resolved runtime configuration.
type Config struct {
	Log            LogConfig
	SitesFile      string
	PublishersFile string
	StatePath      string
	Schedule       string
	Timezone       string
	Provider       string
	Status         bool
	HTTP           HTTPConfig
	Browser        BrowserConfig
}

// LogConfig selects logger level and encoder.
type LogConfig struct {
	Level  string
	Format string
}

// HTTPConfig tunes the shared HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int
	UserAgent      string
}

// Timeout returns the client timeout.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// BrowserConfig tunes the headless Chrome fetcher.
type BrowserConfig struct {
	Headless bool
	ExecPath string
}

// flagKeys maps CLI flags to viper keys.
var flagKeys = map[string]string{
	"sites":            "sites_file",
	"publishers":       "publishers_file",
	"state":            "state_path",
	"schedule":         "schedule",
	"timezone":         "timezone",
	"provider":         "provider",
	"status":           "status",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"http-timeout":     "http.timeout_seconds",
	"user-agent":       "http.user_agent",
	"browser-headless": "browser.headless",
	"chrome-path":      "browser.exec_path",
}

// NewFlagSet declares the pressfeed command-line flags.
func NewFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.String("config", "", "optional config file (yaml, json or toml)")
	flags.String("env-file", ".env", "dotenv file loaded before reading PRESSFEED_* variables")
	flags.String("sites", "", "providers file; empty uses the built-in providers")
	flags.String("publishers", "", "publishers file; empty disables publishing")
	flags.String("state", "", "run ledger path; empty disables the ledger")
	flags.String("schedule", "", "cron expression; empty runs once and exits")
	flags.String("timezone", "Asia/Tokyo", "timezone for the schedule")
	flags.String("provider", "", "run only this provider id")
	flags.Bool("status", false, "print the run ledger as JSON and exit")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("log-format", "console", "console or json")
	flags.Int("http-timeout", 30, "HTTP client timeout in seconds")
	flags.String("user-agent", "", "override the HTTP User-Agent")
	flags.Bool("browser-headless", true, "run Chrome headless")
	flags.String("chrome-path", "", "Chrome executable; empty lets chromedp find one")
	return flags
}

// Load parses args and resolves configuration.
// Precedence: flags, then environment (including .env), then config file, then defaults.
func Load(args []string) (Config, error) {
	flags := NewFlagSet("pressfeed")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	return FromFlags(flags)
}

// FromFlags resolves configuration from an already parsed flag set.
func FromFlags(flags *pflag.FlagSet) (Config, error) {
	envFile, _ := flags.GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for flag, key := range flagKeys {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	cfg := Config{
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),
		},
		SitesFile:      strings.TrimSpace(v.GetString("sites_file")),
		PublishersFile: strings.TrimSpace(v.GetString("publishers_file")),
		StatePath:      strings.TrimSpace(v.GetString("state_path")),
		Schedule:       strings.TrimSpace(v.GetString("schedule")),
		Timezone:       strings.TrimSpace(v.GetString("timezone")),
		Provider:       strings.ToLower(strings.TrimSpace(v.GetString("provider"))),
		Status:         v.GetBool("status"),
		HTTP: HTTPConfig{
			TimeoutSeconds: v.GetInt("http.timeout_seconds"),
			UserAgent:      strings.TrimSpace(v.GetString("http.user_agent")),
		},
		Browser: BrowserConfig{
			Headless: v.GetBool("browser.headless"),
			ExecPath: strings.TrimSpace(v.GetString("browser.exec_path")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("sites_file", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("state_path", "")
	v.SetDefault("schedule", "")
	v.SetDefault("timezone", "Asia/Tokyo")
	v.SetDefault("provider", "")
	v.SetDefault("status", false)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
}

// Validate rejects settings the rest of the program cannot use.
func (c Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q not supported", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format %q not supported", c.Log.Format)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be positive, got %d", c.HTTP.TimeoutSeconds)
	}
	if c.Status && c.StatePath == "" {
		return errors.New("status requires state_path")
	}
	return nil
}
