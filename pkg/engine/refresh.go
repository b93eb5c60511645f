package engine

import (
	"errors"
	"time"

	"github.com/borgmon/meetalert/pkg/agenda"
	"github.com/borgmon/meetalert/pkg/calendar"
	"github.com/borgmon/meetalert/pkg/models"
)

// beginRefresh raises the loading flag.
func (m machine) beginRefresh(s State) (State, []effect) {
	if s.Loading {
		return s, nil
	}
	next := s
	next.Loading = true
	return next, []effect{{kind: effPublish, event: EventStatusChanged}}
}

// applyFetch folds a completed fetch into the state. A failed fetch keeps the
// previous agenda and raises the permission flag until the next success.
func (m machine) applyFetch(s State, raws []models.RawEvent, err error, now time.Time) (State, []effect) {
	next := s
	next.Loading = false

	if err != nil {
		next.PermissionError = true
		next.LastError = err.Error()
		return next, []effect{{kind: effPublish, event: EventStatusChanged}}
	}

	next.Agenda = agenda.Build(calendar.NormalizeAll(raws), now)
	next.PermissionError = false
	next.LastError = ""
	next.LastRefresh = now
	next.alerted = s.pruneAlerted(now)

	return next, []effect{{kind: effPublish, event: EventAgendaChanged}}
}

// IsAccessDenied reports whether err is a calendar permission fault.
func IsAccessDenied(err error) bool {
	return errors.Is(err, calendar.ErrAccessDenied)
}
