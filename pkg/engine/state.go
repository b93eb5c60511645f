package engine

import (
	"time"

	"github.com/borgmon/meetalert/pkg/agenda"
	"github.com/borgmon/meetalert/pkg/models"
)

// State is everything the engine loop owns. Handlers take a State and return
// the next one; nothing else writes to it.
type State struct {
	Agenda          agenda.Agenda
	Session         *models.Session // nil while idle
	Loading         bool
	PermissionError bool
	LastError       string
	LastRefresh     time.Time

	// alerted holds meeting ids that already opened a session, keyed to
	// their start so stale entries can be dropped.
	alerted map[string]time.Time
}

// Active reports whether an alert session is live.
func (s State) Active() bool {
	return s.Session != nil
}

func (s State) wasAlerted(id string) bool {
	_, ok := s.alerted[id]
	return ok
}

// markAlerted returns a copy of the alerted set with m added.
func (s State) markAlerted(m models.Meeting) map[string]time.Time {
	next := make(map[string]time.Time, len(s.alerted)+1)
	for id, start := range s.alerted {
		next[id] = start
	}
	next[m.ID] = m.Start
	return next
}

// pruneAlerted drops meetings that started before now; they cannot enter
// the window again.
func (s State) pruneAlerted(now time.Time) map[string]time.Time {
	next := make(map[string]time.Time, len(s.alerted))
	for id, start := range s.alerted {
		if start.After(now) {
			next[id] = start
		}
	}
	return next
}

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	Agenda          agenda.Agenda
	Session         *models.Session
	Loading         bool
	PermissionError bool
	LastError       string
	LastRefresh     time.Time
	Now             time.Time
}

// Idle reports whether no alert is showing.
func (s Snapshot) Idle() bool {
	return s.Session == nil
}

func (s State) snapshot(now time.Time) Snapshot {
	return Snapshot{
		Agenda:          s.Agenda,
		Session:         s.Session,
		Loading:         s.Loading,
		PermissionError: s.PermissionError,
		LastError:       s.LastError,
		LastRefresh:     s.LastRefresh,
		Now:             now,
	}
}

// EventKind says what changed.
type EventKind string

const (
	EventAgendaChanged  EventKind = "agenda_changed"
	EventSessionStarted EventKind = "session_started"
	EventSessionEnded   EventKind = "session_ended"
	EventStatusChanged  EventKind = "status_changed" // loading or permission flag
	EventTick           EventKind = "tick"
)

// Event is delivered to listeners after the state change is applied.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	Reason   models.EndReason // set for EventSessionEnded
}

// Listener receives engine events on the engine goroutine and must not block.
type Listener func(Event)
