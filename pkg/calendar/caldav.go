package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"github.com/borgmon/meetalert/pkg/logging"
	"github.com/borgmon/meetalert/pkg/models"
)

// CalDAVSource queries one CalDAV calendar collection.
type CalDAVSource struct {
	id       string
	url      string
	username string
	password string
	deps     Deps
}

// NewCalDAVSource creates a CalDAVSource. cfg.URL is the calendar collection.
func NewCalDAVSource(cfg models.SourceConfig, deps Deps) *CalDAVSource {
	return &CalDAVSource{
		id:       cfg.ID,
		url:      cfg.URL,
		username: cfg.Username,
		password: cfg.Password,
		deps:     deps.withDefaults(),
	}
}

// Fetch runs a time-range calendar-query against the collection.
func (s *CalDAVSource) Fetch(ctx context.Context) ([]models.RawEvent, error) {
	calURL, err := url.Parse(s.url)
	if err != nil {
		return nil, fmt.Errorf("invalid CalDAV calendar URL: %w", err)
	}

	httpClient, err := s.httpClient()
	if err != nil {
		return nil, err
	}
	client, err := caldav.NewClient(httpClient, calURL.Scheme+"://"+calURL.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to create CalDAV client: %w", err)
	}

	w := WindowAt(s.deps.Now())
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: w.Start,
				End:   w.End,
			}},
		},
	}

	objects, err := client.QueryCalendar(ctx, calURL.Path, query)
	if err != nil {
		return nil, fmt.Errorf("caldav query %s: %w", calURL.Path, err)
	}

	cals := make([]*ical.Calendar, 0, len(objects))
	for _, obj := range objects {
		if obj.Data != nil {
			cals = append(cals, obj.Data)
		}
	}
	events := eventsFromCalendars(cals, w, s.deps.Log)
	s.deps.Log.Debug("calendar: caldav query done", logging.F("objects", len(objects)), logging.F("events", len(events)))
	return events, nil
}

func (s *CalDAVSource) httpClient() (webdav.HTTPClient, error) {
	var client webdav.HTTPClient = deniedOnAuthFailure{s.deps.HTTP}
	if s.username == "" {
		return client, nil
	}

	password := s.password
	if password == "" {
		stored, err := s.deps.Secrets.Get(PasswordKey(s.id))
		switch {
		case errors.Is(err, ErrSecretNotFound):
			return nil, fmt.Errorf("%w: no password for %s", ErrAccessDenied, s.username)
		case err != nil:
			return nil, err
		}
		password = stored
	}
	return webdav.HTTPClientWithBasicAuth(client, s.username, password), nil
}

// deniedOnAuthFailure turns 401 and 403 answers into ErrAccessDenied.
type deniedOnAuthFailure struct {
	client *http.Client
}

func (d deniedOnAuthFailure) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: server returned %s", ErrAccessDenied, resp.Status)
	}
	return resp, nil
}

var _ Source = (*CalDAVSource)(nil)
