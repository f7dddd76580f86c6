// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads application configuration with viper and builds the
// zap logger.
//
// Sources, lowest precedence first: defaults, the config file
// (adverse-events.yaml in . or ~/.config/adverse-events/, or --config), a
// .env file in the working directory, then ADVERSE_EVENTS_* environment
// variables (store.dir becomes ADVERSE_EVENTS_STORE_DIR).
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ADVERSE_EVENTS"

// ConfigName is the config file name without extension.
const ConfigName = "adverse-events"

// Dir returns the per-user configuration directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+ConfigName)
	}
	return filepath.Join(home, ".config", ConfigName)
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	dir := Dir()
	v.SetDefault("store.driver", string(types.StoreDir))
	v.SetDefault("store.dir", filepath.Join(dir, "settings"))
	v.SetDefault("store.path", filepath.Join(dir, "settings.db"))
	v.SetDefault("auth.cookie", "")
	v.SetDefault("http.timeout", 2*time.Minute)
	v.SetDefault("http.user_agent", "adverse-events/1.0")
	v.SetDefault("llm.query_model", "gpt-4.1-nano")
	v.SetDefault("literature.search_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi")
	v.SetDefault("literature.fetch_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi")
	v.SetDefault("literature.article_url", "https://pubmed.ncbi.nlm.nih.gov/")
	v.SetDefault("literature.retmax", 5)
	v.SetDefault("literature.pacing", time.Second)
	v.SetDefault("literature.rate_limit_backoff", 2*time.Second)
	v.SetDefault("literature.rate_limit_retries", 1)
	v.SetDefault("guideline.source", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads configuration. cfgFile, when set, replaces the file search.
func Load(cfgFile string) (*types.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can use.
func Validate(cfg *types.Config) error {
	switch cfg.Store.Driver {
	case types.StoreDir, types.StoreSQLite:
	default:
		return eris.Errorf("config: store.driver %q is not dir or sqlite", cfg.Store.Driver)
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return eris.Errorf("config: log.format %q is not json or console", cfg.Log.Format)
	}
	if cfg.Literature.RateLimitRetries < 0 {
		return eris.New("config: literature.rate_limit_retries must not be negative")
	}
	if cfg.Literature.MaxResults <= 0 {
		return eris.New("config: literature.retmax must be positive")
	}
	return nil
}

// NewLogger builds a zap logger writing to stderr.
func NewLogger(cfg types.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.DisableStacktrace = true
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	return logger, nil
}

// InitLogger builds the logger and installs it as the zap global.
func InitLogger(cfg types.LogConfig) (*zap.Logger, error) {
	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
