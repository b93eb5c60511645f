package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/borgmon/meetalert/pkg/logging"
	"github.com/borgmon/meetalert/pkg/models"
)

const defaultGoogleCalendar = "primary"

// GoogleSource lists events through the Google Calendar API. The OAuth token
// lives in the secret store under TokenKey(id); see Authorize.
type GoogleSource struct {
	id              string
	calendarID      string
	credentialsFile string
	endpoint        string
	deps            Deps
}

// NewGoogleSource creates a GoogleSource.
func NewGoogleSource(cfg models.SourceConfig, deps Deps) *GoogleSource {
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = defaultGoogleCalendar
	}
	return &GoogleSource{
		id:              cfg.ID,
		calendarID:      calendarID,
		credentialsFile: cfg.CredentialsFile,
		deps:            deps.withDefaults(),
	}
}

// Fetch lists single (expanded) events in the window, ordered by start.
func (s *GoogleSource) Fetch(ctx context.Context) ([]models.RawEvent, error) {
	oauthCfg, err := LoadGoogleOAuthConfig(s.credentialsFile)
	if err != nil {
		return nil, err
	}
	token, err := s.loadToken()
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.deps.HTTP)
	tokens := oauth2.ReuseTokenSource(token, oauthCfg.TokenSource(ctx, token))
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, tokens))}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	w := WindowAt(s.deps.Now())
	var items []*gcal.Event
	err = service.Events.List(s.calendarID).
		TimeMin(w.Start.Format(time.RFC3339)).
		TimeMax(w.End.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Pages(ctx, func(page *gcal.Events) error {
			items = append(items, page.Items...)
			return nil
		})
	if err != nil {
		return nil, classifyGoogleError(err)
	}

	s.saveRefreshedToken(token, tokens)

	events := make([]models.RawEvent, 0, len(items))
	for _, item := range items {
		if item.Status == "cancelled" {
			continue
		}
		events = append(events, googleEventToRaw(item))
	}
	s.deps.Log.Debug("calendar: google events listed", logging.F("calendar", s.calendarID), logging.F("events", len(events)))
	return events, nil
}

func (s *GoogleSource) loadToken() (*oauth2.Token, error) {
	raw, err := s.deps.Secrets.Get(TokenKey(s.id))
	if errors.Is(err, ErrSecretNotFound) {
		return nil, fmt.Errorf("%w: no Google token for %s, run `meetalert auth google %s`", ErrAccessDenied, s.id, s.id)
	}
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("%w: stored Google token is unreadable: %v", ErrAccessDenied, err)
	}
	return &token, nil
}

func (s *GoogleSource) saveRefreshedToken(old *oauth2.Token, tokens oauth2.TokenSource) {
	current, err := tokens.Token()
	if err != nil || current.AccessToken == old.AccessToken {
		return
	}
	if err := saveToken(s.deps.Secrets, s.id, current); err != nil {
		s.deps.Log.Warn("calendar: could not store refreshed Google token", logging.Err(err))
	}
}

func classifyGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: token refresh failed: %v", ErrAccessDenied, err)
	}
	return fmt.Errorf("failed to list events: %w", err)
}

func googleEventToRaw(item *gcal.Event) models.RawEvent {
	raw := models.RawEvent{
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		URL:         conferenceLink(item),
	}
	if item.Start != nil {
		if item.Start.DateTime != "" {
			raw.Start = item.Start.DateTime
		} else {
			raw.Start = item.Start.Date
			raw.IsAllDay = true
		}
	}
	if item.End != nil {
		if item.End.DateTime != "" {
			raw.End = item.End.DateTime
		} else {
			raw.End = item.End.Date
		}
	}
	return raw
}

// conferenceLink prefers the Meet link, then any video entry point.
func conferenceLink(item *gcal.Event) string {
	if item.HangoutLink != "" {
		return item.HangoutLink
	}
	if item.ConferenceData == nil {
		return ""
	}
	for _, ep := range item.ConferenceData.EntryPoints {
		if ep.EntryPointType == "video" && ep.Uri != "" {
			return ep.Uri
		}
	}
	return ""
}

// LoadGoogleOAuthConfig reads an OAuth client JSON file.
func LoadGoogleOAuthConfig(path string) (*oauth2.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, gcal.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}
	return cfg, nil
}

// Authorize runs the OAuth code flow for a Google source. prompt shows the
// consent URL and returns the code the user pasted back.
func Authorize(ctx context.Context, cfg models.SourceConfig, secrets Secrets, prompt func(authURL string) (string, error)) error {
	oauthCfg, err := LoadGoogleOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return err
	}
	authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	code, err := prompt(authURL)
	if err != nil {
		return fmt.Errorf("unable to read authorization code: %w", err)
	}
	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return saveToken(secrets, cfg.ID, token)
}

func saveToken(secrets Secrets, sourceID string, token *oauth2.Token) error {
	b, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return secrets.Set(TokenKey(sourceID), string(b))
}

var _ Source = (*GoogleSource)(nil)
