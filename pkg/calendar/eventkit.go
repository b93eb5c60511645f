package calendar

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/borgmon/meetalert/pkg/logging"
	"github.com/borgmon/meetalert/pkg/models"
)

//go:embed eventkit/fetch_calendar.swift
var eventKitScript []byte

const (
	swiftBinary        = "/usr/bin/swift"
	eventKitDeniedCode = 2
	eventKitScriptName = "meetalert_fetch_calendar.swift"
)

// scriptRunner runs the helper script at path and returns its stdout.
type scriptRunner func(ctx context.Context, path string) ([]byte, error)

// EventKitSource reads the macOS system calendars through a Swift helper.
type EventKitSource struct {
	run  scriptRunner
	goos string
	deps Deps
}

// NewEventKitSource creates an EventKitSource.
func NewEventKitSource(deps Deps) *EventKitSource {
	return &EventKitSource{run: runSwift, goos: runtime.GOOS, deps: deps.withDefaults()}
}

// Fetch runs the helper and decodes its JSON output.
func (s *EventKitSource) Fetch(ctx context.Context) ([]models.RawEvent, error) {
	if s.goos != "darwin" {
		return nil, fmt.Errorf("eventkit source is only available on macOS")
	}

	path := filepath.Join(os.TempDir(), eventKitScriptName)
	if err := os.WriteFile(path, eventKitScript, 0o600); err != nil {
		return nil, fmt.Errorf("write eventkit helper: %w", err)
	}
	defer os.Remove(path)

	out, err := s.run(ctx, path)
	if err != nil {
		return nil, classifyEventKitError(err)
	}
	events, err := decodeEventKitOutput(out)
	if err != nil {
		return nil, err
	}
	s.deps.Log.Debug("calendar: eventkit events read", logging.F("events", len(events)))
	return events, nil
}

func runSwift(ctx context.Context, path string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, swiftBinary, path)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

func classifyEventKitError(err error) error {
	var exit interface{ ExitCode() int }
	if errors.As(err, &exit) && exit.ExitCode() == eventKitDeniedCode {
		return fmt.Errorf("%w: grant calendar access in System Settings > Privacy & Security > Calendars", ErrAccessDenied)
	}
	return fmt.Errorf("eventkit helper failed: %w", err)
}

// decodeEventKitOutput parses the helper's JSON array. Blank output is an
// empty calendar.
func decodeEventKitOutput(out []byte) ([]models.RawEvent, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return []models.RawEvent{}, nil
	}
	var events []models.RawEvent
	if err := json.Unmarshal(out, &events); err != nil {
		return nil, fmt.Errorf("decode eventkit output: %w", err)
	}
	if events == nil {
		events = []models.RawEvent{}
	}
	return events, nil
}

var _ Source = (*EventKitSource)(nil)
