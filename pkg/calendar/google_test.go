package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borgmon/meetalert/pkg/models"
)

const googleEventsJSON = `{
  "items": [
    {"id": "1", "status": "confirmed", "summary": "Design review",
     "start": {"dateTime": "2026-10-15T11:00:00Z"}, "end": {"dateTime": "2026-10-15T12:00:00Z"},
     "hangoutLink": "https://meet.google.com/abc-defg-hij"},
    {"id": "2", "status": "cancelled", "summary": "Gone",
     "start": {"dateTime": "2026-10-15T13:00:00Z"}, "end": {"dateTime": "2026-10-15T14:00:00Z"}},
    {"id": "3", "status": "confirmed", "summary": "Offsite",
     "start": {"date": "2026-10-15"}, "end": {"date": "2026-10-16"}},
    {"id": "4", "status": "confirmed", "summary": "Vendor call", "location": "Room 4",
     "start": {"dateTime": "2026-10-15T15:00:00Z"}, "end": {"dateTime": "2026-10-15T15:30:00Z"},
     "conferenceData": {"entryPoints": [
       {"entryPointType": "phone", "uri": "tel:+1-555-0100"},
       {"entryPointType": "video", "uri": "https://zoom.us/j/9"}]}}
  ]
}`

func writeCredentials(t *testing.T, tokenURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	creds := fmt.Sprintf(`{"installed":{"client_id":"id","client_secret":"secret",`+
		`"redirect_uris":["http://localhost"],"auth_uri":"https://accounts.example.com/auth","token_uri":%q}}`, tokenURL)
	require.NoError(t, os.WriteFile(path, []byte(creds), 0o600))
	return path
}

func storedToken(t *testing.T, secrets memSecrets, sourceID string) {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"access_token": "tok",
		"token_type":   "Bearer",
		"expiry":       time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	secrets[TokenKey(sourceID)] = string(b)
}

func googleSource(t *testing.T, handler http.HandlerFunc, secrets memSecrets) *GoogleSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src := NewGoogleSource(models.SourceConfig{
		ID:              "gmail",
		Type:            models.SourceGoogle,
		CredentialsFile: writeCredentials(t, srv.URL+"/token"),
	}, Deps{Secrets: secrets, Now: func() time.Time { return fixedNow }})
	src.endpoint = srv.URL + "/"
	return src
}

func TestGoogleSource_Fetch(t *testing.T) {
	secrets := memSecrets{}
	storedToken(t, secrets, "gmail")

	var query string
	src := googleSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.True(t, strings.HasSuffix(r.URL.Path, "/calendars/primary/events"), r.URL.Path)
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(googleEventsJSON))
	}, secrets)

	events, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Contains(t, query, "singleEvents=true")
	assert.Contains(t, query, "orderBy=startTime")

	got := byTitle(events)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", got["Design review"].URL)
	assert.Equal(t, "2026-10-15T11:00:00Z", got["Design review"].Start)
	assert.True(t, got["Offsite"].IsAllDay)
	assert.Equal(t, "2026-10-15", got["Offsite"].Start)
	assert.Equal(t, "https://zoom.us/j/9", got["Vendor call"].URL)
	assert.Equal(t, "Room 4", got["Vendor call"].Location)
	assert.NotContains(t, got, "Gone")
}

func TestGoogleSource_MissingTokenIsDenied(t *testing.T) {
	src := googleSource(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a token")
	}, memSecrets{})

	_, err := src.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestGoogleSource_ForbiddenIsDenied(t *testing.T) {
	secrets := memSecrets{}
	storedToken(t, secrets, "gmail")
	src := googleSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"insufficient permissions"}}`))
	}, secrets)

	_, err := src.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestGoogleSource_ServerErrorIsNotDenied(t *testing.T) {
	secrets := memSecrets{}
	storedToken(t, secrets, "gmail")
	src := googleSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, secrets)

	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccessDenied)
}

func TestAuthorize_StoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","refresh_token":"r","expires_in":3600}`))
	}))
	defer srv.Close()

	cfg := models.SourceConfig{ID: "gmail", CredentialsFile: writeCredentials(t, srv.URL)}
	secrets := memSecrets{}

	var shown string
	err := Authorize(context.Background(), cfg, secrets, func(authURL string) (string, error) {
		shown = authURL
		return "the-code", nil
	})
	require.NoError(t, err)

	assert.Contains(t, shown, "access_type=offline")
	assert.Contains(t, secrets[TokenKey("gmail")], `"access_token":"fresh"`)
	assert.Contains(t, secrets[TokenKey("gmail")], `"refresh_token":"r"`)
}

func TestLoadGoogleOAuthConfig_MissingFile(t *testing.T) {
	_, err := LoadGoogleOAuthConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
