package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borgmon/meetalert/pkg/agenda"
	"github.com/borgmon/meetalert/pkg/calendar"
	"github.com/borgmon/meetalert/pkg/models"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2026, 10, 15, hour, min, sec, 0, time.Local)
}

func testMachine() machine {
	m := newMachine(5*time.Second, 10*time.Minute)
	m.newID = func() uuid.UUID { return uuid.MustParse("00000000-0000-0000-0000-000000000001") }
	return m
}

func meetingAt(title string, start time.Time) models.Meeting {
	return models.Meeting{
		ID:       title + "|" + start.Format(time.RFC3339),
		Title:    title,
		Start:    start,
		End:      start.Add(30 * time.Minute),
		Link:     "https://zoom.us/j/" + title,
		Platform: models.PlatformZoom,
	}
}

func stateWith(now time.Time, meetings ...models.Meeting) State {
	return State{Agenda: agenda.Build(meetings, now)}
}

func kinds(effects []effect) []effectKind {
	out := make([]effectKind, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.kind)
	}
	return out
}

func TestTick_ScenarioTenOClock(t *testing.T) {
	m := testMachine()
	standup := meetingAt("standup", at(10, 0, 0))
	review := meetingAt("review", at(10, 3, 0))

	s := stateWith(at(9, 56, 0), review, standup)
	require.Equal(t, standup.ID, s.Agenda.UpNext.ID)

	s, effects := m.tick(s, at(9, 56, 0))
	assert.False(t, s.Active())
	assert.Equal(t, []effectKind{effPublish}, kinds(effects))

	s, effects = m.tick(s, at(9, 59, 57))
	require.True(t, s.Active())
	assert.Equal(t, standup.ID, s.Session.Meeting.ID)
	assert.Equal(t, models.TriggerClock, s.Session.Trigger)
	assert.Equal(t, at(10, 0, 2), s.Session.RefreshAt)
	assert.Equal(t, at(10, 9, 57), s.Session.Expiry)
	assert.Equal(t, []effectKind{effEnterAlert, effScheduleRefresh, effPublish}, kinds(effects))
	assert.Equal(t, at(10, 0, 2), effects[1].at)
	assert.Equal(t, EventSessionStarted, effects[2].event)
}

func TestTick_WindowBoundsAreExclusive(t *testing.T) {
	m := testMachine()
	start := at(10, 0, 0)
	s := stateWith(at(9, 0, 0), meetingAt("x", start))

	next, _ := m.tick(s, start.Add(-5*time.Second))
	assert.False(t, next.Active(), "delta == threshold must not fire")

	next, _ = m.tick(s, start)
	assert.False(t, next.Active(), "delta == 0 must not fire")

	next, _ = m.tick(s, start.Add(-4999*time.Millisecond))
	assert.True(t, next.Active())
}

func TestTick_AlreadyStartedIsNeverAlerted(t *testing.T) {
	m := testMachine()
	started := meetingAt("late", at(10, 0, 0))
	s := State{Agenda: agenda.Agenda{Meetings: []models.Meeting{started}, UpNext: &started}}

	for _, now := range []time.Time{at(10, 0, 1), at(10, 0, 30), at(10, 5, 0)} {
		next, _ := m.tick(s, now)
		assert.False(t, next.Active())
	}
}

func TestTick_MissedWindowIsNotRetroactive(t *testing.T) {
	m := testMachine()
	s := stateWith(at(9, 0, 0), meetingAt("x", at(10, 0, 0)))

	next, _ := m.tick(s, at(9, 59, 50))
	assert.False(t, next.Active())
	next, _ = m.tick(next, at(10, 0, 1))
	assert.False(t, next.Active())
}

func TestTick_EarliestWinsWhenSeveralAreDue(t *testing.T) {
	m := testMachine()
	a := meetingAt("a", at(10, 0, 2))
	b := meetingAt("b", at(10, 0, 1))
	s := stateWith(at(9, 0, 0), a, b)

	next, effects := m.tick(s, at(10, 0, 0))
	require.True(t, next.Active())
	assert.Equal(t, "b", next.Session.Meeting.Title)
	assert.Len(t, effects, 3)
}

func TestTick_ActiveSessionBlocksNewAlerts(t *testing.T) {
	m := testMachine()
	a := meetingAt("a", at(10, 0, 3))
	b := meetingAt("b", at(10, 0, 4))
	s := stateWith(at(9, 0, 0), a, b)

	s, _ = m.tick(s, at(10, 0, 0))
	require.Equal(t, "a", s.Session.Meeting.Title)
	first := s.Session

	s, effects := m.tick(s, at(10, 0, 1))
	assert.Same(t, first, s.Session)
	assert.Equal(t, []effectKind{effPublish}, kinds(effects))
	assert.Equal(t, EventTick, effects[0].event)
}

func TestTick_DismissedMeetingDoesNotRefire(t *testing.T) {
	m := testMachine()
	s := stateWith(at(9, 0, 0), meetingAt("x", at(10, 0, 0)))

	s, _ = m.tick(s, at(9, 59, 56))
	require.True(t, s.Active())
	s, _ = m.end(s, models.EndDismissed, at(9, 59, 57))
	require.False(t, s.Active())

	s, _ = m.tick(s, at(9, 59, 58))
	assert.False(t, s.Active())
}

func TestTick_ExpiresSession(t *testing.T) {
	m := testMachine()
	s := stateWith(at(9, 0, 0), meetingAt("x", at(10, 0, 0)))
	s, _ = m.tick(s, at(9, 59, 58))
	require.True(t, s.Active())

	s, effects := m.tick(s, at(10, 9, 57))
	assert.True(t, s.Active())
	assert.Equal(t, []effectKind{effPublish}, kinds(effects))

	s, effects = m.tick(s, at(10, 9, 58))
	assert.False(t, s.Active())
	assert.Equal(t, []effectKind{effExitAlert, effCancelRefresh, effRefresh, effPublish}, kinds(effects))
	assert.Equal(t, models.EndExpired, effects[3].ended)
}

func TestStart_SecondStartIsNoop(t *testing.T) {
	m := testMachine()
	a := meetingAt("a", at(10, 0, 0))
	b := meetingAt("b", at(11, 0, 0))

	s, _ := m.start(State{}, a, models.TriggerClock, at(9, 59, 57))
	next, effects := m.start(s, b, models.TriggerManual, at(9, 59, 58))

	assert.Nil(t, effects)
	assert.Equal(t, "a", next.Session.Meeting.Title)
}

func TestStart_DoesNotMutatePreviousState(t *testing.T) {
	m := testMachine()
	before := State{}
	after, _ := m.start(before, meetingAt("a", at(10, 0, 0)), models.TriggerClock, at(9, 59, 57))

	assert.False(t, before.Active())
	assert.False(t, before.wasAlerted(after.Session.Meeting.ID))
	assert.True(t, after.wasAlerted(after.Session.Meeting.ID))
}

func TestCheckNow(t *testing.T) {
	m := testMachine()
	next := meetingAt("planning", at(14, 0, 0))
	s := stateWith(at(9, 0, 0), next, meetingAt("later", at(15, 0, 0)))

	s, effects := m.checkNow(s, at(9, 0, 0))
	require.True(t, s.Active())
	assert.Equal(t, next.ID, s.Session.Meeting.ID)
	assert.Equal(t, models.TriggerManual, s.Session.Trigger)
	assert.Equal(t, []effectKind{effEnterAlert, effScheduleRefresh, effPublish}, kinds(effects))
	assert.Equal(t, at(9, 0, 5), effects[1].at)

	again, effects := m.checkNow(s, at(9, 0, 1))
	assert.Nil(t, effects)
	assert.Same(t, s.Session, again.Session)
}

func TestCheckNow_EmptyAgenda(t *testing.T) {
	m := testMachine()
	s, effects := m.checkNow(State{}, at(9, 0, 0))
	assert.False(t, s.Active())
	assert.Nil(t, effects)
}

func TestEnd_DismissTriggersImmediateRefresh(t *testing.T) {
	m := testMachine()
	s, _ := m.start(State{}, meetingAt("a", at(10, 0, 0)), models.TriggerClock, at(9, 59, 57))

	s, effects := m.end(s, models.EndDismissed, at(9, 59, 58))
	assert.False(t, s.Active())
	assert.Equal(t, []effectKind{effExitAlert, effCancelRefresh, effRefresh, effPublish}, kinds(effects))
	assert.Equal(t, EventSessionEnded, effects[3].event)
	assert.Equal(t, models.EndDismissed, effects[3].ended)
}

func TestEnd_WhenIdleIsNoop(t *testing.T) {
	m := testMachine()
	_, effects := m.end(State{}, models.EndDismissed, at(9, 0, 0))
	assert.Nil(t, effects)
}

func TestJoin_DismissesThenOpensLink(t *testing.T) {
	m := testMachine()
	meeting := meetingAt("a", at(10, 0, 0))
	s, _ := m.start(State{}, meeting, models.TriggerClock, at(9, 59, 57))

	s, effects := m.join(s, at(9, 59, 58))
	assert.False(t, s.Active())
	assert.Equal(t, []effectKind{effExitAlert, effCancelRefresh, effRefresh, effPublish, effOpenURL}, kinds(effects))
	assert.Equal(t, models.EndJoined, effects[3].ended)
	assert.Equal(t, meeting.Link, effects[4].url)
}

func TestJoin_WithoutLinkOnlyDismisses(t *testing.T) {
	m := testMachine()
	meeting := meetingAt("room", at(10, 0, 0))
	meeting.Link = ""
	s, _ := m.start(State{}, meeting, models.TriggerClock, at(9, 59, 57))

	_, effects := m.join(s, at(9, 59, 58))
	assert.Equal(t, []effectKind{effExitAlert, effCancelRefresh, effRefresh, effPublish}, kinds(effects))
}

func TestApplyFetch_Success(t *testing.T) {
	m := testMachine()
	s := State{Loading: true, PermissionError: true, LastError: "denied"}

	raws := []models.RawEvent{
		{Title: "late", Start: at(11, 0, 0).Format(time.RFC3339), End: at(11, 30, 0).Format(time.RFC3339)},
		{Title: "early", Start: at(10, 0, 0).Format(time.RFC3339), Description: "https://meet.google.com/abc"},
		{Title: "gone", Start: at(8, 0, 0).Format(time.RFC3339)},
	}
	s, effects := m.applyFetch(s, raws, nil, at(9, 0, 0))

	assert.False(t, s.Loading)
	assert.False(t, s.PermissionError)
	assert.Empty(t, s.LastError)
	assert.Equal(t, at(9, 0, 0), s.LastRefresh)
	require.Equal(t, 2, s.Agenda.Len())
	assert.Equal(t, "early", s.Agenda.UpNext.Title)
	assert.Equal(t, models.PlatformGoogleMeet, s.Agenda.UpNext.Platform)
	assert.Equal(t, []effectKind{effPublish}, kinds(effects))
	assert.Equal(t, EventAgendaChanged, effects[0].event)
}

func TestApplyFetch_FailureKeepsAgenda(t *testing.T) {
	m := testMachine()
	s := stateWith(at(9, 0, 0), meetingAt("kept", at(10, 0, 0)))
	s.Loading = true

	err := errors.Join(calendar.ErrAccessDenied, errors.New("user declined"))
	s, effects := m.applyFetch(s, nil, err, at(9, 1, 0))

	assert.False(t, s.Loading)
	assert.True(t, s.PermissionError)
	assert.Contains(t, s.LastError, "declined")
	assert.Equal(t, "kept", s.Agenda.UpNext.Title)
	assert.Equal(t, EventStatusChanged, effects[0].event)
	assert.True(t, IsAccessDenied(err))
}

func TestApplyFetch_PrunesStartedMeetingsFromAlerted(t *testing.T) {
	m := testMachine()
	s, _ := m.start(State{}, meetingAt("a", at(10, 0, 0)), models.TriggerClock, at(9, 59, 57))
	s, _ = m.end(s, models.EndDismissed, at(9, 59, 58))
	require.Len(t, s.alerted, 1)

	s, _ = m.applyFetch(s, nil, nil, at(9, 59, 59))
	assert.Len(t, s.alerted, 1)

	s, _ = m.applyFetch(s, nil, nil, at(10, 0, 1))
	assert.Empty(t, s.alerted)
}

func TestBeginRefresh(t *testing.T) {
	m := testMachine()
	s, effects := m.beginRefresh(State{})
	assert.True(t, s.Loading)
	assert.Equal(t, EventStatusChanged, effects[0].event)

	_, effects = m.beginRefresh(s)
	assert.Nil(t, effects)
}

func TestDue(t *testing.T) {
	meetings := []models.Meeting{meetingAt("a", at(10, 0, 0)), meetingAt("b", at(10, 0, 3))}

	m, ok := Due(meetings, at(9, 59, 57), 5*time.Second, nil)
	require.True(t, ok)
	assert.Equal(t, "a", m.Title)

	m, ok = Due(meetings, at(9, 59, 59), 5*time.Second, func(id string) bool { return id == meetings[0].ID })
	require.True(t, ok)
	assert.Equal(t, "b", m.Title)

	_, ok = Due(meetings, at(9, 59, 55), 5*time.Second, nil)
	assert.False(t, ok, "window is exclusive at now+threshold")
}

func TestCheckNow_DoesNotConsumeClockAlert(t *testing.T) {
	m := testMachine()
	standup := meetingAt("standup", at(10, 0, 0))
	s := stateWith(at(9, 30, 0), standup)

	s, _ = m.checkNow(s, at(9, 30, 0))
	require.True(t, s.Active())
	assert.False(t, s.wasAlerted(standup.ID))

	s, _ = m.end(s, models.EndDismissed, at(9, 30, 5))
	require.False(t, s.Active())

	s, _ = m.tick(s, at(9, 59, 57))
	require.True(t, s.Active(), "the clock still alerts after a manual check")
	assert.Equal(t, standup.ID, s.Session.Meeting.ID)
	assert.Equal(t, models.TriggerClock, s.Session.Trigger)
}
