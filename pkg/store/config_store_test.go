package store

import (
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borgmon/meetalert/pkg/models"
)

func TestConfigStore_LoadDefaults(t *testing.T) {
	cs := NewConfigStore(test.NewApp())

	cfg := cs.Load()
	assert.False(t, cs.Seeded())
	assert.Equal(t, models.DefaultAlertThreshold, cfg.AlertThreshold)
	assert.Equal(t, models.DefaultRefreshSchedule, cfg.RefreshSchedule)
	assert.True(t, cfg.PlaySound)
	assert.Empty(t, cfg.Sources)
	assert.True(t, cfg.NeedsConfiguration())
}

func TestConfigStore_RoundTrip(t *testing.T) {
	cs := NewConfigStore(test.NewApp())

	in := models.DefaultConfig()
	in.AlertThreshold = 10 * time.Second
	in.AlertExpiry = 3 * time.Minute
	in.RefreshSchedule = "*/2 * * * *"
	in.PlaySound = false
	in.MetricsListen = "127.0.0.1:9464"
	in.Sources = []models.SourceConfig{
		{Name: "Work", Type: models.SourceICS, URL: "https://example.com/work.ics"},
		{ID: "mac", Name: "Mac", Type: models.SourceEventKit, Disabled: true},
	}
	cs.Save(in)

	out := cs.Load()
	assert.True(t, cs.Seeded())
	assert.Equal(t, 10*time.Second, out.AlertThreshold)
	assert.Equal(t, 3*time.Minute, out.AlertExpiry)
	assert.Equal(t, "*/2 * * * *", out.RefreshSchedule)
	assert.False(t, out.PlaySound)
	assert.Equal(t, "127.0.0.1:9464", out.MetricsListen)
	require.Len(t, out.Sources, 2)
	assert.Equal(t, "ics-1", out.Sources[0].ID)
	assert.True(t, out.Sources[1].Disabled)
	assert.Len(t, out.EnabledSources(), 1)
}

func TestConfigStore_BadValuesFallBack(t *testing.T) {
	app := test.NewApp()
	app.Preferences().SetString(prefAlertThreshold, "soon")
	app.Preferences().SetString(prefSources, "{not json")

	cfg := NewConfigStore(app).Load()
	assert.Equal(t, models.DefaultAlertThreshold, cfg.AlertThreshold)
	assert.Empty(t, cfg.Sources)
}
