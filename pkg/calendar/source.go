package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/borgmon/meetalert/pkg/logging"
	"github.com/borgmon/meetalert/pkg/models"
)

// ErrAccessDenied marks a fetch that failed because the user has not granted
// access to the calendar.
var ErrAccessDenied = errors.New("calendar access denied")

// Source delivers raw events for the current window.
type Source interface {
	Fetch(ctx context.Context) ([]models.RawEvent, error)
}

// Lookback and lookahead bound what a source reports around now.
const (
	Lookback  = time.Hour
	Lookahead = 24 * time.Hour
)

// Window is the time range a source reports.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowAt returns the fetch window around now.
func WindowAt(now time.Time) Window {
	return Window{Start: now.Add(-Lookback), End: now.Add(Lookahead)}
}

// overlaps reports whether [start, end) intersects the window. An event
// without an end is treated as instantaneous.
func (w Window) overlaps(start, end time.Time) bool {
	if end.IsZero() || end.Before(start) {
		end = start
	}
	return start.Before(w.End) && !end.Before(w.Start)
}

// Deps carries what the sources share.
type Deps struct {
	HTTP    *http.Client
	Secrets Secrets
	Log     logging.Logger
	Now     func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.HTTP == nil {
		d.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if d.Secrets == nil {
		d.Secrets = KeyringSecrets{}
	}
	if d.Log == nil {
		d.Log = logging.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// New builds the source described by cfg.
func New(cfg models.SourceConfig, deps Deps) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	deps = deps.withDefaults()
	deps.Log = deps.Log.With(logging.F("source", cfg.ID))

	switch cfg.Type {
	case models.SourceICS:
		return NewICSSource(cfg, deps), nil
	case models.SourceCalDAV:
		return NewCalDAVSource(cfg, deps), nil
	case models.SourceGoogle:
		return NewGoogleSource(cfg, deps), nil
	case models.SourceEventKit:
		return NewEventKitSource(deps), nil
	}
	return nil, fmt.Errorf("source %q: unknown type %q", cfg.ID, cfg.Type)
}

// FromConfig builds a MultiSource over every enabled source in cfg.
func FromConfig(cfg *models.Config, deps Deps) (*MultiSource, error) {
	deps = deps.withDefaults()
	var sources []Source
	for _, sc := range cfg.EnabledSources() {
		s, err := New(sc, deps)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return NewMultiSource(deps.Log, sources...), nil
}

// MultiSource concatenates the events of several sources. One failing source
// does not hide the others; the fetch fails only when every source failed.
type MultiSource struct {
	sources []Source
	log     logging.Logger
}

// NewMultiSource creates a MultiSource.
func NewMultiSource(log logging.Logger, sources ...Source) *MultiSource {
	if log == nil {
		log = logging.NewNop()
	}
	return &MultiSource{sources: sources, log: log}
}

// Len returns the number of sources.
func (m *MultiSource) Len() int {
	return len(m.sources)
}

// Fetch queries every source concurrently and returns the events in source
// order.
func (m *MultiSource) Fetch(ctx context.Context) ([]models.RawEvent, error) {
	if len(m.sources) == 0 {
		return []models.RawEvent{}, nil
	}

	type result struct {
		events []models.RawEvent
		err    error
	}
	results := make([]result, len(m.sources))

	// Each source fails on its own; the group only waits.
	var g errgroup.Group
	for i, s := range m.sources {
		g.Go(func() error {
			events, err := s.Fetch(ctx)
			results[i] = result{events: events, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var (
		events    = []models.RawEvent{}
		errs      []error
		succeeded int
	)
	for i, r := range results {
		if r.err != nil {
			m.log.Warn("calendar: source failed", logging.F("index", i), logging.Err(r.err))
			errs = append(errs, r.err)
			continue
		}
		succeeded++
		events = append(events, r.events...)
	}

	if succeeded == 0 {
		return nil, errors.Join(errs...)
	}
	return events, nil
}
