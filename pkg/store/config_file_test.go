package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borgmon/meetalert/pkg/models"
)

func TestLoadFile_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAlertThreshold, cfg.AlertThreshold)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadFile_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
alert_threshold: 8s
refresh_schedule: "@every 2m"
play_sound: false
sources:
  - name: Work
    type: ics
    url: https://example.com/work.ics
  - name: Personal
    type: google
    credentials_file: /tmp/creds.json
    calendar_id: me@example.com
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8*time.Second, cfg.AlertThreshold)
	assert.Equal(t, "@every 2m", cfg.RefreshSchedule)
	assert.False(t, cfg.PlaySound)
	assert.Equal(t, models.DefaultTickInterval, cfg.TickInterval)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "ics-1", cfg.Sources[0].ID)
	assert.Equal(t, "google-2", cfg.Sources[1].ID)
	assert.Equal(t, "me@example.com", cfg.Sources[1].CalendarID)
}

func TestLoadFile_RejectsInvalidSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  - name: Work\n    type: ics\n"), 0o600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_RejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alert_threshold: [\n"), 0o600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestSaveFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := models.DefaultConfig()
	in.AlertExpiry = 4 * time.Minute
	in.Sources = []models.SourceConfig{{ID: "dav", Name: "Nextcloud", Type: models.SourceCalDAV,
		URL: "https://cloud.example.com/remote.php/dav/calendars/me/work/", Username: "me"}}

	require.NoError(t, SaveFile(path, in))
	out, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSaveFile_Errors(t *testing.T) {
	assert.Error(t, SaveFile("", models.DefaultConfig()))
	assert.Error(t, SaveFile(filepath.Join(t.TempDir(), "c.yaml"), nil))
	_, err := LoadFile("")
	assert.Error(t, err)
}
