package config

import (
	"errors"
	"io/fs"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AutosaveConfig tunes the draft auto-save. It can be edited at runtime through
// quotedesk.yml; sessions read it when they start.
type AutosaveConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Delay   time.Duration `mapstructure:"delay"`
}

const (
	minAutosaveDelay = 200 * time.Millisecond
	maxAutosaveDelay = 5 * time.Minute
)

func DefaultAutosaveConfig() AutosaveConfig {
	return AutosaveConfig{
		Enabled: true,
		Delay:   2 * time.Second,
	}
}

type AutosaveConfigHolder struct {
	current atomic.Value // holds AutosaveConfig
}

// NewStaticAutosaveConfigHolder returns a holder that never reloads.
func NewStaticAutosaveConfigHolder(cfg AutosaveConfig) *AutosaveConfigHolder {
	holder := &AutosaveConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewAutosaveConfigHolder(appCfg Config, log *zap.Logger) (*AutosaveConfigHolder, error) {
	log = log.Named("config.autosave")
	v := viper.New()

	if path := strings.TrimSpace(appCfg.AutosaveConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("quotedesk")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/quotedesk")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("QUOTEDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAutosaveConfig()
	if appCfg.AutosaveDelay > 0 {
		defaults.Delay = appCfg.AutosaveDelay
	}
	v.SetDefault("autosave.enabled", defaults.Enabled)
	v.SetDefault("autosave.delay", defaults.Delay)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg AutosaveConfig
	if err := v.UnmarshalKey("autosave", &cfg); err != nil {
		return nil, err
	}
	if err := validateAutosaveConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticAutosaveConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AutosaveConfig
		if err := v.UnmarshalKey("autosave", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateAutosaveConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name), zap.Duration("delay", updated.Delay))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *AutosaveConfigHolder) Get() AutosaveConfig {
	return h.current.Load().(AutosaveConfig)
}

func validateAutosaveConfig(cfg AutosaveConfig) error {
	if cfg.Delay < minAutosaveDelay || cfg.Delay > maxAutosaveDelay {
		return errors.New("autosave.delay must be between 200ms and 5m")
	}
	return nil
}
