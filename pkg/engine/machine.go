package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/borgmon/meetalert/pkg/models"
)

type effectKind int

const (
	effEnterAlert effectKind = iota
	effExitAlert
	effScheduleRefresh // one-shot refresh at effect.at
	effCancelRefresh
	effRefresh
	effOpenURL
	effPublish
)

// effect is a side effect requested by a state transition. The loop runs
// them after the new state is in place.
type effect struct {
	kind    effectKind
	meeting models.Meeting
	at      time.Time
	url     string
	reason  string
	event   EventKind
	ended   models.EndReason
}

// machine holds the pure transition functions and the timing they need.
type machine struct {
	threshold time.Duration
	expiry    time.Duration
	newID     func() uuid.UUID
}

func newMachine(threshold, expiry time.Duration) machine {
	return machine{threshold: threshold, expiry: expiry, newID: uuid.New}
}
