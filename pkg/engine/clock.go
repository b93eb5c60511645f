package engine

import (
	"time"

	"github.com/borgmon/meetalert/pkg/models"
)

// tick runs one pass of the alert clock. While a session is live the tick
// only checks expiry. Otherwise the first meeting, in agenda order, whose
// start lies strictly inside (now, now+threshold) opens a session.
//
// Alerts are edge-triggered: a meeting that is already past the window when
// observed, or that already opened a session, never fires.
func (m machine) tick(s State, now time.Time) (State, []effect) {
	if s.Active() {
		if s.Session.Expired(now) {
			return m.end(s, models.EndExpired, now)
		}
		return s, []effect{{kind: effPublish, event: EventTick}}
	}

	if meeting, ok := m.due(s, now); ok {
		return m.start(s, meeting, models.TriggerClock, now)
	}
	return s, []effect{{kind: effPublish, event: EventTick}}
}

func (m machine) due(s State, now time.Time) (models.Meeting, bool) {
	return Due(s.Agenda.Meetings, now, m.threshold, s.wasAlerted)
}

// Due returns the first meeting whose start lies strictly inside
// (now, now+threshold), skipping ids for which skip reports true. A nil skip
// considers every meeting.
func Due(meetings []models.Meeting, now time.Time, threshold time.Duration, skip func(id string) bool) (models.Meeting, bool) {
	for _, meeting := range meetings {
		if skip != nil && skip(meeting.ID) {
			continue
		}
		delta := meeting.Start.Sub(now)
		if delta > 0 && delta < threshold {
			return meeting, true
		}
	}
	return models.Meeting{}, false
}
