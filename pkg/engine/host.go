package engine

import (
	"context"

	"github.com/borgmon/meetalert/pkg/models"
)

// Source delivers the raw calendar events for today. Implementations must
// honor ctx cancellation; a permission fault should wrap
// calendar.ErrAccessDenied.
type Source interface {
	Fetch(ctx context.Context) ([]models.RawEvent, error)
}

// Host is the presentation side the engine signals. Every call is best
// effort: errors are logged and never change engine state.
type Host interface {
	EnterAlertPresentation(m models.Meeting) error
	ExitAlertPresentation() error
	OpenExternal(url string) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]models.RawEvent, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]models.RawEvent, error) {
	return f(ctx)
}

type noopHost struct{}

func (noopHost) EnterAlertPresentation(models.Meeting) error { return nil }
func (noopHost) ExitAlertPresentation() error               { return nil }
func (noopHost) OpenExternal(string) error                  { return nil }
