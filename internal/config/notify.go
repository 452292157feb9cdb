package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// NotifyConfig controls expiry reminders and kiosk behavior. It lives in a
// mounted file so operators can tune windows without a redeploy.
type NotifyConfig struct {
	ReminderWindowDays int    `mapstructure:"reminderWindowDays"`
	ReminderSubject    string `mapstructure:"reminderSubject"`
	PendingCardTTLSecs int    `mapstructure:"pendingCardTTLSecs"`
}

func DefaultNotifyConfig() NotifyConfig {
	return NotifyConfig{
		ReminderWindowDays: 7,
		ReminderSubject:    "Your membership is expiring soon",
		PendingCardTTLSecs: 120,
	}
}

type NotifyConfigHolder struct {
	current atomic.Value // holds NotifyConfig
}

func NewNotifyConfigHolder() (*NotifyConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("notify")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/memberline/config")
	v.AddConfigPath("/etc/memberline")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MEMBERLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultNotifyConfig()
	v.SetDefault("notify.reminderWindowDays", defaults.ReminderWindowDays)
	v.SetDefault("notify.reminderSubject", defaults.ReminderSubject)
	v.SetDefault("notify.pendingCardTTLSecs", defaults.PendingCardTTLSecs)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg NotifyConfig
	if err := v.UnmarshalKey("notify", &cfg); err != nil {
		return nil, err
	}
	if err := validateNotifyConfig(cfg); err != nil {
		return nil, err
	}

	holder := &NotifyConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated NotifyConfig
		if err := v.UnmarshalKey("notify", &updated); err != nil {
			log.Printf("[notify-config] reload failed: %v", err)
			return
		}
		if err := validateNotifyConfig(updated); err != nil {
			log.Printf("[notify-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[notify-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *NotifyConfigHolder) Get() NotifyConfig {
	return h.current.Load().(NotifyConfig)
}

func validateNotifyConfig(cfg NotifyConfig) error {
	if cfg.ReminderWindowDays <= 0 {
		return errors.New("notify.reminderWindowDays must be positive")
	}
	if cfg.PendingCardTTLSecs <= 0 {
		return errors.New("notify.pendingCardTTLSecs must be positive")
	}
	return nil
}
