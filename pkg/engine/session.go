package engine

import (
	"time"

	"github.com/borgmon/meetalert/pkg/models"
)

// start moves Idle to Active for meeting. It is a no-op while a session is
// already live.
func (m machine) start(s State, meeting models.Meeting, trigger models.Trigger, now time.Time) (State, []effect) {
	if s.Active() {
		return s, nil
	}

	session := &models.Session{
		ID:        m.newID(),
		Meeting:   meeting,
		Trigger:   trigger,
		StartedAt: now,
		RefreshAt: now.Add(m.threshold),
		Expiry:    now.Add(m.expiry),
	}

	next := s
	next.Session = session
	// A manual check does not consume the meeting's clock alert.
	if trigger == models.TriggerClock {
		next.alerted = s.markAlerted(meeting)
	}

	return next, []effect{
		{kind: effEnterAlert, meeting: meeting},
		{kind: effScheduleRefresh, at: session.RefreshAt},
		{kind: effPublish, event: EventSessionStarted},
	}
}

// checkNow opens a manual session for the current up-next meeting.
func (m machine) checkNow(s State, now time.Time) (State, []effect) {
	if s.Active() || s.Agenda.UpNext == nil {
		return s, nil
	}
	return m.start(s, *s.Agenda.UpNext, models.TriggerManual, now)
}

// end moves Active to Idle. The pending post-alert refresh is cancelled and
// an immediate refresh takes its place.
func (m machine) end(s State, reason models.EndReason, now time.Time) (State, []effect) {
	if !s.Active() {
		return s, nil
	}

	next := s
	next.Session = nil

	return next, []effect{
		{kind: effExitAlert},
		{kind: effCancelRefresh},
		{kind: effRefresh, reason: "alert " + string(reason)},
		{kind: effPublish, event: EventSessionEnded, ended: reason},
	}
}

// join closes the session and then opens its link, if it has one.
func (m machine) join(s State, now time.Time) (State, []effect) {
	if !s.Active() {
		return s, nil
	}
	meeting := s.Session.Meeting

	next, effects := m.end(s, models.EndJoined, now)
	if meeting.HasLink() {
		effects = append(effects, effect{kind: effOpenURL, url: meeting.Link})
	}
	return next, effects
}
