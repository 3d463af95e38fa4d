package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultGlamourStyle = "dark"
	DefaultEndpoint     = "http://localhost:5000/chat"
	EnvPrefix           = "AGENT_CHAT"
)

type AppConfig struct {
	Endpoint       string        `mapstructure:"endpoint" yaml:"endpoint"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	Plain          bool          `mapstructure:"plain" yaml:"plain"`
	ExportDir      string        `mapstructure:"export_dir" yaml:"export_dir"`
	Log            LogConfig     `mapstructure:"log" yaml:"log"`
	Journal        JournalConfig `mapstructure:"journal" yaml:"journal"`
	UI             UIConfig      `mapstructure:"ui" yaml:"ui"`
}

type LogConfig struct {
	File  string `mapstructure:"file" yaml:"file"`
	Level string `mapstructure:"level" yaml:"level"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type UIConfig struct {
	Title        string `mapstructure:"title" yaml:"title"`
	Subtitle     string `mapstructure:"subtitle" yaml:"subtitle"`
	Placeholder  string `mapstructure:"placeholder" yaml:"placeholder"`
	LoadingText  string `mapstructure:"loading_text" yaml:"loading_text"`
	UserLabel    string `mapstructure:"user_label" yaml:"user_label"`
	AgentLabel   string `mapstructure:"agent_label" yaml:"agent_label"`
	GlamourStyle string `mapstructure:"glamour_style" yaml:"glamour_style"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"endpoint":        "endpoint",
	"request-timeout": "request_timeout",
	"plain":           "plain",
	"export-dir":      "export_dir",
	"log-file":        "log.file",
	"log-level":       "log.level",
	"journal":         "journal.enabled",
	"journal-path":    "journal.path",
}

// RegisterFlags adds the flags Load knows how to bind.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("endpoint", DefaultEndpoint, "agent endpoint URL")
	fs.Duration("request-timeout", 0, "per-request timeout (0 waits forever)")
	fs.Bool("plain", false, "line mode even when attached to a terminal")
	fs.String("export-dir", "", "override transcript export directory")
	fs.String("log-file", "", "path to the JSON log file")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Bool("journal", true, "record failed sends in the sqlite journal")
	fs.String("journal-path", "", "path to the failure journal")
}

// Load resolves configuration from defaults, an optional YAML file, the
// AGENT_CHAT_* environment and flags, in increasing order of precedence.
func Load(v *viper.Viper, fs *pflag.FlagSet) (AppConfig, error) {
	var cfg AppConfig

	stateDir, err := DefaultStateDir()
	if err != nil {
		return cfg, err
	}
	setDefaults(v, stateDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return cfg, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	explicit := ""
	if fs != nil {
		explicit, _ = fs.GetString("config")
	}
	if err := readConfigFile(v, explicit); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		return cfg, errors.New("endpoint must not be empty")
	}
	if cfg.RequestTimeout < 0 {
		return cfg, fmt.Errorf("request_timeout must not be negative: %s", cfg.RequestTimeout)
	}
	if cfg.UI.GlamourStyle == "" {
		cfg.UI.GlamourStyle = DefaultGlamourStyle
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, stateDir string) {
	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("request_timeout", time.Duration(0))
	v.SetDefault("plain", false)
	v.SetDefault("export_dir", "")
	v.SetDefault("log.file", filepath.Join(stateDir, "agent-chat.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", filepath.Join(stateDir, "failures.sqlite"))
	v.SetDefault("ui.title", "✈️ Flight Tracker AI Agent")
	v.SetDefault("ui.subtitle", "Real-time flight tracking, airport status & aviation intelligence")
	v.SetDefault("ui.placeholder", "Ask about flights, airports, or routes...")
	v.SetDefault("ui.loading_text", "Agent is tracking flights...")
	v.SetDefault("ui.user_label", "You")
	v.SetDefault("ui.agent_label", "Agent")
	v.SetDefault("ui.glamour_style", DefaultGlamourStyle)
}

func readConfigFile(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(filepath.Clean(explicit))
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", explicit, err)
		}
		return nil
	}

	dir, err := DefaultConfigDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "config.yaml")
	if st, err := os.Stat(path); err != nil || st.IsDir() {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func DefaultConfigDir() (string, error) {
	if fromEnv := os.Getenv("XDG_CONFIG_HOME"); fromEnv != "" {
		return filepath.Join(filepath.Clean(fromEnv), "agent-chat"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "agent-chat"), nil
}

func DefaultStateDir() (string, error) {
	if fromEnv := os.Getenv("XDG_STATE_HOME"); fromEnv != "" {
		return filepath.Join(filepath.Clean(fromEnv), "agent-chat"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "agent-chat"), nil
}
