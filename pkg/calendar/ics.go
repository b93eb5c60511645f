package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/emersion/go-ical"

	"github.com/borgmon/meetalert/pkg/logging"
	"github.com/borgmon/meetalert/pkg/models"
)

const maxFeedSize = 16 << 20

// ICSSource reads an iCalendar subscription over HTTP.
type ICSSource struct {
	url  string
	deps Deps
}

// NewICSSource creates an ICSSource for cfg.URL.
func NewICSSource(cfg models.SourceConfig, deps Deps) *ICSSource {
	return &ICSSource{url: cfg.URL, deps: deps.withDefaults()}
}

// Fetch downloads the feed and returns the events around now.
func (s *ICSSource) Fetch(ctx context.Context) ([]models.RawEvent, error) {
	body, err := s.download(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateICalFormat(body); err != nil {
		return nil, err
	}

	cals, err := decodeCalendars(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	events := eventsFromCalendars(cals, WindowAt(s.deps.Now()), s.deps.Log)
	s.deps.Log.Debug("calendar: ics feed read", logging.F("bytes", len(body)), logging.F("events", len(events)))
	return events, nil
}

func (s *ICSSource) download(ctx context.Context) ([]byte, error) {
	// webcal:// is http with a different scheme name.
	target := s.url
	if strings.HasPrefix(strings.ToLower(target), "webcal://") {
		target = "https://" + target[len("webcal://"):]
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("ics request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := s.deps.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: feed returned %s", ErrAccessDenied, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func decodeCalendars(r io.Reader) ([]*ical.Calendar, error) {
	dec := ical.NewDecoder(r)
	var cals []*ical.Calendar
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return cals, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		cals = append(cals, cal)
	}
}

func validateICalFormat(body []byte) error {
	trimmed := strings.TrimSpace(strings.TrimPrefix(string(body), "\ufeff"))
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "<!DOCTYPE") || strings.HasPrefix(upper, "<HTML") {
		return fmt.Errorf("received HTML instead of iCalendar data - check if URL requires authentication")
	}
	if !strings.HasPrefix(upper, "BEGIN:VCALENDAR") {
		preview := trimmed
		if len(preview) > 100 {
			preview = preview[:100]
		}
		return fmt.Errorf("invalid iCalendar format - expected BEGIN:VCALENDAR, got: %s", preview)
	}
	return nil
}

var _ Source = (*ICSSource)(nil)
