package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borgmon/meetalert/pkg/calendar"
	"github.com/borgmon/meetalert/pkg/engine"
	"github.com/borgmon/meetalert/pkg/logging"
	"github.com/borgmon/meetalert/pkg/models"
	"github.com/borgmon/meetalert/pkg/store"
)

const testConfig = `
alert_threshold: 5s
sources:
  - id: work
    name: Work
    type: ics
    url: https://example.com/work.ics
  - id: personal
    name: Personal
    type: google
    credentials_file: /nonexistent/creds.json
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func testOptions(fetch func(ctx context.Context) ([]models.RawEvent, error), now time.Time) *rootOptions {
	opts := defaultOptions()
	opts.newSource = func(*models.Config, logging.Logger) (engine.Source, error) {
		return engine.SourceFunc(fetch), nil
	}
	opts.now = func() time.Time { return now }
	return opts
}

func todaysEvents(context.Context) ([]models.RawEvent, error) {
	return []models.RawEvent{
		{Title: "Design review", Start: at(10, 3, 0).Format(time.RFC3339), End: at(11, 0, 0).Format(time.RFC3339)},
		{Title: "Standup", Start: at(10, 0, 0).Format(time.RFC3339), End: at(10, 15, 0).Format(time.RFC3339),
			Description: "join: https://zoom.us/j/123 thanks"},
		{Title: "Offsite", Start: "2026-10-15", End: "2026-10-16", IsAllDay: true},
		{Title: "Breakfast", Start: at(8, 0, 0).Format(time.RFC3339), End: at(8, 30, 0).Format(time.RFC3339)},
	}, nil
}

func runCLI(t *testing.T, opts *rootOptions, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(opts)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAgendaCommand(t *testing.T) {
	opts := testOptions(todaysEvents, at(9, 56, 0))

	out, err := runCLI(t, opts, "agenda", "--config", writeConfig(t))
	require.NoError(t, err)

	want := "Up next: 10:00 AM  Standup (Zoom)  in 4m 00s\n" +
		"  https://zoom.us/j/123\n" +
		"Later:\n" +
		"  10:03 AM  Design review\n"
	assert.Equal(t, want, out)
}

func TestCheckCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := runCLI(t, testOptions(todaysEvents, at(9, 59, 57)), "check", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "alert now: 10:00 AM  Standup (Zoom)\n", out)

	out, err = runCLI(t, testOptions(todaysEvents, at(9, 56, 0)), "check", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "next alert in 3m 55s: 10:00 AM  Standup (Zoom)\n", out)
}

func TestAgendaCommand_FetchErrors(t *testing.T) {
	path := writeConfig(t)

	denied := testOptions(func(context.Context) ([]models.RawEvent, error) {
		return nil, fmt.Errorf("ics feed: %w", calendar.ErrAccessDenied)
	}, at(9, 0, 0))
	_, err := runCLI(t, denied, "agenda", "--config", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, calendar.ErrAccessDenied)
	assert.Contains(t, err.Error(), "access denied")

	broken := testOptions(func(context.Context) ([]models.RawEvent, error) {
		return nil, fmt.Errorf("boom")
	}, at(9, 0, 0))
	_, err = runCLI(t, broken, "agenda", "--config", path)
	assert.ErrorContains(t, err, "fetch calendars: boom")
}

func TestAgendaCommand_FetchHonorsTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch_timeout: 20ms\n"), 0o600))

	opts := testOptions(func(ctx context.Context) ([]models.RawEvent, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, at(9, 0, 0))
	_, err := runCLI(t, opts, "agenda", "--config", path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAuthGoogle_SourceLookup(t *testing.T) {
	path := writeConfig(t)
	opts := testOptions(todaysEvents, at(9, 0, 0))

	_, err := runCLI(t, opts, "auth", "google", "missing", "--config", path)
	assert.ErrorContains(t, err, `no source with id "missing"`)

	_, err = runCLI(t, opts, "auth", "google", "work", "--config", path)
	assert.ErrorContains(t, err, "not google")

	_, err = runCLI(t, opts, "auth", "google", "personal", "--config", path)
	assert.Error(t, err, "credentials file does not exist")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, defaultOptions(), "version")
	require.NoError(t, err)
	assert.Equal(t, "meetalert dev\n", out)
}

func TestResolveConfig(t *testing.T) {
	prefs := store.NewConfigStore(test.NewApp())

	opts := defaultOptions()
	opts.configPath = writeConfig(t)
	cfg, err := resolveConfig(opts, prefs)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 2)
	assert.True(t, prefs.Seeded())

	// Without --config the seeded preferences win over the default file.
	opts.configPath = ""
	cfg, err = resolveConfig(opts, prefs)
	require.NoError(t, err)
	assert.Equal(t, "work", cfg.Sources[0].ID)
	assert.Equal(t, 5*time.Second, cfg.AlertThreshold)
}

func TestLoggerFlagsOverrideConfig(t *testing.T) {
	var buf bytes.Buffer
	opts := defaultOptions()
	opts.logLevel = "debug"
	opts.logJSON = true

	log := opts.logger(models.DefaultConfig(), &buf)
	log.Debug("hello", logging.F("k", "v"))
	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
