// Package agenda turns a day's meetings into the ordered view the alert
// clock and the dashboard work from.
package agenda

import (
	"sort"
	"time"

	"github.com/borgmon/meetalert/pkg/models"
)

// Agenda is the remaining-today view of the calendar. It is rebuilt from
// scratch on every refresh and never mutated afterwards.
type Agenda struct {
	Meetings []models.Meeting // ascending by start
	UpNext   *models.Meeting  // first of Meetings, nil when empty
	Later    []models.Meeting // Meetings without UpNext
	BuiltAt  time.Time
}

// Build sorts, filters and splits meetings relative to now. Only timed
// meetings starting after now and before the end of now's local day are kept.
func Build(meetings []models.Meeting, now time.Time) Agenda {
	sorted := make([]models.Meeting, len(meetings))
	copy(sorted, meetings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].ID < sorted[j].ID
	})

	dayEnd := EndOfDay(now)
	remaining := make([]models.Meeting, 0, len(sorted))
	for _, m := range sorted {
		if m.IsAllDay || !m.Start.After(now) || !m.Start.Before(dayEnd) {
			continue
		}
		remaining = append(remaining, m)
	}

	a := Agenda{Meetings: remaining, Later: []models.Meeting{}, BuiltAt: now}
	if len(remaining) == 0 {
		return a
	}

	next := remaining[0]
	a.UpNext = &next
	for _, m := range remaining {
		if m.ID != next.ID {
			a.Later = append(a.Later, m)
		}
	}
	return a
}

// EndOfDay returns midnight at the end of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// Empty reports whether no meetings remain today.
func (a Agenda) Empty() bool {
	return a.UpNext == nil
}

// Len returns the number of remaining meetings.
func (a Agenda) Len() int {
	return len(a.Meetings)
}

// Find returns the meeting with the given id.
func (a Agenda) Find(id string) (models.Meeting, bool) {
	for _, m := range a.Meetings {
		if m.ID == id {
			return m, true
		}
	}
	return models.Meeting{}, false
}
