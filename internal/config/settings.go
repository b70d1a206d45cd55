package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings are runtime-tunable knobs, hot-reloaded from settings.yml.
type Settings struct {
	DefaultPerPage int  `mapstructure:"defaultPerPage"`
	MaxPerPage     int  `mapstructure:"maxPerPage"`
	StrictFilters  bool `mapstructure:"strictFilters"`
}

func DefaultSettings() Settings {
	return Settings{
		DefaultPerPage: 10,
		MaxPerPage:     100,
		StrictFilters:  false,
	}
}

type SettingsHolder struct {
	current atomic.Value // holds Settings
}

func NewSettingsHolder() (*SettingsHolder, error) {
	v := viper.New()

	v.SetConfigName("settings")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/mesa/config") // Volume-mounted config
	v.AddConfigPath("/etc/mesa")            // System config
	v.AddConfigPath(".")                    // Current directory (dev mode)

	v.SetEnvPrefix("MESA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSettings()
	v.SetDefault("server.defaultPerPage", defaults.DefaultPerPage)
	v.SetDefault("server.maxPerPage", defaults.MaxPerPage)
	v.SetDefault("server.strictFilters", defaults.StrictFilters)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Settings
	if err := v.UnmarshalKey("server", &cfg); err != nil {
		return nil, err
	}
	if err := validateSettings(cfg); err != nil {
		return nil, err
	}

	holder := &SettingsHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Settings
		if err := v.UnmarshalKey("server", &updated); err != nil {
			log.Printf("[settings] reload failed: %v", err)
			return
		}
		if err := validateSettings(updated); err != nil {
			log.Printf("[settings] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[settings] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *SettingsHolder) Get() Settings {
	return h.current.Load().(Settings)
}

func validateSettings(cfg Settings) error {
	if cfg.DefaultPerPage < 1 {
		return errors.New("server.defaultPerPage must be positive")
	}
	if cfg.MaxPerPage < cfg.DefaultPerPage {
		return errors.New("server.maxPerPage cannot be below server.defaultPerPage")
	}
	return nil
}
