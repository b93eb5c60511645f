package models

import "time"

// Platform identifies which video-call provider hosts a meeting.
type Platform string

const (
	PlatformZoom             Platform = "Zoom"
	PlatformGoogleMeet       Platform = "GoogleMeet"
	PlatformMicrosoftTeams   Platform = "MicrosoftTeams"
	PlatformWebex            Platform = "Webex"
	PlatformVideoCallGeneric Platform = "VideoCallGeneric"
	PlatformInPersonOrOther  Platform = "InPersonOrOther"
)

// DisplayName returns a short human label for the platform.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformZoom:
		return "Zoom"
	case PlatformGoogleMeet:
		return "Google Meet"
	case PlatformMicrosoftTeams:
		return "Microsoft Teams"
	case PlatformWebex:
		return "Webex"
	case PlatformVideoCallGeneric:
		return "Video call"
	default:
		return "In person / other"
	}
}

// RawEvent is a calendar entry exactly as a source delivered it. Nothing in
// it is trusted: times are strings and any field may be empty.
type RawEvent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Start       string `json:"start"`
	End         string `json:"end"`
	IsAllDay    bool   `json:"isAllDay"`
}

// Meeting is the canonical, immutable form of a calendar event.
type Meeting struct {
	ID       string    // Derived from title, start and end
	Title    string    // May be empty
	Start    time.Time // Zero if the source value could not be parsed
	End      time.Time
	Link     string   // Empty when no video-call link was found
	Platform Platform // InPersonOrOther when Link is empty
	IsAllDay bool     // Only used for filtering
}

// HasLink reports whether the meeting carries a joinable video-call link.
func (m Meeting) HasLink() bool {
	return m.Link != ""
}
