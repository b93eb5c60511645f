package models

import (
	"fmt"
	"time"
)

// Defaults for the alert engine timing.
const (
	DefaultAlertThreshold  = 5 * time.Second
	DefaultTickInterval    = time.Second
	DefaultRefreshSchedule = "@every 5m"
	DefaultFetchTimeout    = 30 * time.Second
	DefaultAlertExpiry     = 10 * time.Minute
	DefaultLogLevel        = "info"
)

// SourceType selects the calendar backend of a source.
type SourceType string

const (
	SourceICS      SourceType = "ics"      // iCal subscription URL
	SourceCalDAV   SourceType = "caldav"   // CalDAV calendar collection
	SourceGoogle   SourceType = "google"   // Google Calendar API
	SourceEventKit SourceType = "eventkit" // macOS system calendars
)

// SourceConfig describes one calendar source.
type SourceConfig struct {
	ID       string     `yaml:"id" json:"id"`
	Name     string     `yaml:"name" json:"name"`
	Type     SourceType `yaml:"type" json:"type"`
	URL      string     `yaml:"url,omitempty" json:"url,omitempty"`           // ics feed or caldav collection
	Username string     `yaml:"username,omitempty" json:"username,omitempty"` // caldav
	// Password for caldav. When empty the OS keyring is consulted.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	// CalendarID for google, "primary" when empty.
	CalendarID string `yaml:"calendar_id,omitempty" json:"calendar_id,omitempty"`
	// CredentialsFile is the OAuth client JSON downloaded from the Google console.
	CredentialsFile string `yaml:"credentials_file,omitempty" json:"credentials_file,omitempty"`
	Disabled        bool   `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Validate checks that the fields required by the source type are present.
func (s *SourceConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source %q: name is required", s.ID)
	}
	switch s.Type {
	case SourceICS, SourceCalDAV:
		if s.URL == "" {
			return fmt.Errorf("source %q: url is required for %s", s.Name, s.Type)
		}
	case SourceGoogle:
		if s.CredentialsFile == "" {
			return fmt.Errorf("source %q: credentials_file is required for google", s.Name)
		}
	case SourceEventKit:
	default:
		return fmt.Errorf("source %q: unknown type %q", s.Name, s.Type)
	}
	return nil
}

// Config holds application configuration
type Config struct {
	Sources []SourceConfig `yaml:"sources" json:"sources"`

	AlertThreshold  time.Duration `yaml:"alert_threshold" json:"alert_threshold"`   // pre-start window
	TickInterval    time.Duration `yaml:"tick_interval" json:"tick_interval"`       // alert clock period
	RefreshSchedule string        `yaml:"refresh_schedule" json:"refresh_schedule"` // cron spec
	FetchTimeout    time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
	AlertExpiry     time.Duration `yaml:"alert_expiry" json:"alert_expiry"` // auto-dismiss after trigger

	AutoStart bool `yaml:"auto_start" json:"auto_start"`
	PlaySound bool `yaml:"play_sound" json:"play_sound"`
	Hotkey    bool `yaml:"hotkey" json:"hotkey"` // Ctrl+Shift+M checks the next meeting

	LogLevel      string `yaml:"log_level" json:"log_level"`
	LogJSON       bool   `yaml:"log_json" json:"log_json"`
	MetricsListen string `yaml:"metrics_listen,omitempty" json:"metrics_listen,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sources:         []SourceConfig{},
		AlertThreshold:  DefaultAlertThreshold,
		TickInterval:    DefaultTickInterval,
		RefreshSchedule: DefaultRefreshSchedule,
		FetchTimeout:    DefaultFetchTimeout,
		AlertExpiry:     DefaultAlertExpiry,
		PlaySound:       true,
		Hotkey:          true,
		LogLevel:        DefaultLogLevel,
	}
}

// Normalize fills zero values with defaults so partially written files work.
func (c *Config) Normalize() {
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	if c.AlertThreshold <= 0 {
		c.AlertThreshold = DefaultAlertThreshold
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.RefreshSchedule == "" {
		c.RefreshSchedule = DefaultRefreshSchedule
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.AlertExpiry <= 0 {
		c.AlertExpiry = DefaultAlertExpiry
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	for i := range c.Sources {
		if c.Sources[i].ID == "" {
			c.Sources[i].ID = fmt.Sprintf("%s-%d", c.Sources[i].Type, i+1)
		}
	}
}

// NeedsConfiguration returns true if the config needs initial setup
func (c *Config) NeedsConfiguration() bool {
	return len(c.EnabledSources()) == 0
}

// EnabledSources returns the sources that are not disabled.
func (c *Config) EnabledSources() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.Sources))
	for _, s := range c.Sources {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}
