// Package link finds video-call links in calendar text and identifies the
// provider behind them.
package link

import (
	"regexp"
	"strings"

	"github.com/borgmon/meetalert/pkg/models"
)

// callLinkPattern matches http(s) URLs on the recognized call hosts. Up to two
// leading labels cover regional data-center prefixes (us02web.zoom.us),
// www./meet. and company sub-domains (acme.webex.com).
var callLinkPattern = regexp.MustCompile(
	`(?i)https?://(?:[a-z0-9-]+\.){0,2}(?:zoom\.us|meet\.google\.com|teams\.microsoft\.com|webex\.com)(?:[:/?#][^\s<>"]*)?`,
)

// Extract returns the first recognized video-call link in text.
func Extract(text string) (string, bool) {
	for _, loc := range callLinkPattern.FindAllStringIndex(text, -1) {
		if continuesHost(text, loc[1]) {
			// zoom.us.example.com and friends
			continue
		}
		return text[loc[0]:loc[1]], true
	}
	return "", false
}

// FromFields scans an event's description, location and URL in that order.
func FromFields(description, location, url string) (string, bool) {
	return Extract(description + " " + location + " " + url)
}

func continuesHost(text string, end int) bool {
	if end >= len(text) {
		return false
	}
	c := text[end]
	if c == '.' {
		// A trailing full stop ends the sentence, not the host.
		return end+1 < len(text) && isHostChar(text[end+1])
	}
	return c == '_' || isHostChar(c)
}

func isHostChar(c byte) bool {
	return c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// platformMarkers is checked in order; the first marker contained in the
// link decides the platform.
var platformMarkers = []struct {
	marker   string
	platform models.Platform
}{
	{"zoom.us", models.PlatformZoom},
	{"google.com", models.PlatformGoogleMeet},
	{"teams.microsoft.com", models.PlatformMicrosoftTeams},
	{"webex.com", models.PlatformWebex},
}

// Classify derives the platform from a link. An empty link means the meeting
// has no call to join.
func Classify(link string) models.Platform {
	if link == "" {
		return models.PlatformInPersonOrOther
	}
	lower := strings.ToLower(link)
	for _, pm := range platformMarkers {
		if strings.Contains(lower, pm.marker) {
			return pm.platform
		}
	}
	return models.PlatformVideoCallGeneric
}
