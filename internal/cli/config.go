package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/docmodel/internal/paths"
	"github.com/mesh-intelligence/docmodel/internal/sqlite"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyDataDir       = "data_dir"
	cfgKeyNatsURL       = "nats_url"
	cfgKeyTemplatesFile = "templates_file"
	cfgKeyLogLevel      = "log_level"
	cfgKeySyncStrategy  = "sync_strategy"

	defaultLogLevel = "warn"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# docmodel configuration

# Data directory holding the command journal (overridable by --data-dir)
# data_dir:

# Journal sync strategy: immediate or on_close
sync_strategy: immediate

# NATS server for listen
# nats_url: nats://127.0.0.1:4222

# Template presets (default: templates.yaml next to this file)
# templates_file:

log_level: warn
`

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyNatsURL, nats.DefaultURL)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeySyncStrategy, sqlite.SyncImmediate)
	_ = v.BindEnv(cfgKeyNatsURL, "DOCMODEL_NATS_URL")
	_ = v.BindEnv(cfgKeyLogLevel, "DOCMODEL_LOG_LEVEL")
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if none exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, paths.ConfigFile)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// journalConfig builds the journal configuration from the session.
func journalConfig() (sqlite.Config, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return sqlite.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := sqlite.Config{DataDir: dataDir, Logger: logger()}
	if sess.config != nil {
		cfg.SyncStrategy = sess.config.GetString(cfgKeySyncStrategy)
	}
	return cfg, nil
}

// attachJournal opens the journal in the resolved data dir. The caller must
// defer Detach.
func attachJournal() (*sqlite.Journal, error) {
	cfg, err := journalConfig()
	if err != nil {
		return nil, err
	}
	j := sqlite.NewJournal()
	if err := j.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach journal: %w", err)
	}
	return j, nil
}
