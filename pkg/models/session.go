package models

import (
	"time"

	"github.com/google/uuid"
)

// Trigger records what opened an alert session.
type Trigger string

const (
	TriggerClock  Trigger = "clock"  // Meeting entered the pre-start window
	TriggerManual Trigger = "manual" // User asked to check the next meeting now
)

// EndReason records why an alert session closed.
type EndReason string

const (
	EndDismissed EndReason = "dismissed"
	EndJoined    EndReason = "joined"
	EndExpired   EndReason = "expired"
)

// Session is the single live full-screen alert.
type Session struct {
	ID        uuid.UUID
	Meeting   Meeting
	Trigger   Trigger
	StartedAt time.Time // When the session was opened
	RefreshAt time.Time // When the post-alert refresh fires
	Expiry    time.Time // When the session closes on its own
}

// UntilStart returns how long until the meeting starts, clamped at zero.
func (s *Session) UntilStart(now time.Time) time.Duration {
	if d := s.Meeting.Start.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Remaining returns how long until the session expires, clamped at zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	if d := s.Expiry.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Expired reports whether the session deadline has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.Expiry)
}
