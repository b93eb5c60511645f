package store

import (
	"encoding/json"
	"time"

	"fyne.io/fyne/v2"

	"github.com/borgmon/meetalert/pkg/models"
)

// Preference keys.
const (
	prefSources         = "sources"
	prefAlertThreshold  = "alert_threshold"
	prefTickInterval    = "tick_interval"
	prefRefreshSchedule = "refresh_schedule"
	prefFetchTimeout    = "fetch_timeout"
	prefAlertExpiry     = "alert_expiry"
	prefAutoStart       = "auto_start"
	prefPlaySound       = "play_sound"
	prefHotkey          = "hotkey"
	prefLogLevel        = "log_level"
	prefLogJSON         = "log_json"
	prefMetricsListen   = "metrics_listen"
	prefSeeded          = "seeded"
)

// ConfigStore handles configuration persistence using Fyne preferences
type ConfigStore struct {
	app fyne.App
}

// NewConfigStore creates a new ConfigStore instance
func NewConfigStore(app fyne.App) *ConfigStore {
	return &ConfigStore{app: app}
}

// Seeded reports whether a config has ever been saved.
func (cs *ConfigStore) Seeded() bool {
	return cs.app.Preferences().Bool(prefSeeded)
}

// Load loads configuration from preferences
func (cs *ConfigStore) Load() *models.Config {
	prefs := cs.app.Preferences()
	def := models.DefaultConfig()

	config := &models.Config{
		AlertThreshold:  durationPref(prefs, prefAlertThreshold, def.AlertThreshold),
		TickInterval:    durationPref(prefs, prefTickInterval, def.TickInterval),
		RefreshSchedule: prefs.StringWithFallback(prefRefreshSchedule, def.RefreshSchedule),
		FetchTimeout:    durationPref(prefs, prefFetchTimeout, def.FetchTimeout),
		AlertExpiry:     durationPref(prefs, prefAlertExpiry, def.AlertExpiry),
		AutoStart:       prefs.BoolWithFallback(prefAutoStart, def.AutoStart),
		PlaySound:       prefs.BoolWithFallback(prefPlaySound, def.PlaySound),
		Hotkey:          prefs.BoolWithFallback(prefHotkey, def.Hotkey),
		LogLevel:        prefs.StringWithFallback(prefLogLevel, def.LogLevel),
		LogJSON:         prefs.BoolWithFallback(prefLogJSON, def.LogJSON),
		MetricsListen:   prefs.String(prefMetricsListen),
	}

	// Sources are stored as a JSON string
	if raw := prefs.String(prefSources); raw != "" {
		if err := json.Unmarshal([]byte(raw), &config.Sources); err != nil {
			config.Sources = nil
		}
	}

	config.Normalize()
	return config
}

// Save saves configuration to preferences
func (cs *ConfigStore) Save(config *models.Config) {
	prefs := cs.app.Preferences()
	config.Normalize()

	prefs.SetString(prefAlertThreshold, config.AlertThreshold.String())
	prefs.SetString(prefTickInterval, config.TickInterval.String())
	prefs.SetString(prefRefreshSchedule, config.RefreshSchedule)
	prefs.SetString(prefFetchTimeout, config.FetchTimeout.String())
	prefs.SetString(prefAlertExpiry, config.AlertExpiry.String())
	prefs.SetBool(prefAutoStart, config.AutoStart)
	prefs.SetBool(prefPlaySound, config.PlaySound)
	prefs.SetBool(prefHotkey, config.Hotkey)
	prefs.SetString(prefLogLevel, config.LogLevel)
	prefs.SetBool(prefLogJSON, config.LogJSON)
	prefs.SetString(prefMetricsListen, config.MetricsListen)

	if raw, err := json.Marshal(config.Sources); err == nil {
		prefs.SetString(prefSources, string(raw))
	}
	prefs.SetBool(prefSeeded, true)
}

func durationPref(prefs fyne.Preferences, key string, fallback time.Duration) time.Duration {
	raw := prefs.String(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
