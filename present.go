package main

import (
	"fmt"
	"io"
	"time"

	"github.com/borgmon/meetalert/pkg/agenda"
	"github.com/borgmon/meetalert/pkg/engine"
	"github.com/borgmon/meetalert/pkg/models"
)

const clockLayout = "3:04 PM"

// truncateString truncates a string to maxLen characters, adding "..." if needed
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func meetingTitle(m models.Meeting) string {
	if m.Title == "" {
		return "(untitled)"
	}
	return m.Title
}

func meetingSpan(m models.Meeting) string {
	if m.End.IsZero() || !m.End.After(m.Start) {
		return m.Start.Format(clockLayout)
	}
	return m.Start.Format(clockLayout) + " - " + m.End.Format(clockLayout)
}

// meetingSummary is the one-line form used in lists, the tray and the CLI.
func meetingSummary(m models.Meeting) string {
	s := m.Start.Format(clockLayout) + "  " + meetingTitle(m)
	if m.HasLink() {
		s += " (" + m.Platform.DisplayName() + ")"
	}
	return s
}

// formatCountdown renders a duration until a start time.
func formatCountdown(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d <= 0:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("in %ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("in %dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("in %dh %02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

type dashboardView struct {
	Banner       string // empty hides the banner
	Status       string
	Loading      bool
	UpNext       string
	UpNextDetail string
	Countdown    string
	Later        []string
	Empty        bool
}

func buildDashboardView(snap engine.Snapshot) dashboardView {
	v := dashboardView{Loading: snap.Loading, Later: []string{}}

	if snap.PermissionError {
		v.Banner = "Calendar access denied. Check the credentials of your calendar sources."
	}

	switch {
	case snap.Loading:
		v.Status = "Refreshing..."
	case snap.LastError != "" && !snap.PermissionError:
		v.Status = "Last refresh failed: " + snap.LastError
	case snap.LastRefresh.IsZero():
		v.Status = "Not refreshed yet"
	default:
		v.Status = "Updated " + snap.LastRefresh.Format(clockLayout)
	}

	next := snap.Agenda.UpNext
	if next == nil {
		v.Empty = true
		return v
	}
	v.UpNext = meetingTitle(*next)
	v.UpNextDetail = meetingSpan(*next)
	if next.HasLink() {
		v.UpNextDetail += " · " + next.Platform.DisplayName()
	}
	v.Countdown = formatCountdown(next.Start.Sub(snap.Now))
	for _, m := range snap.Agenda.Later {
		v.Later = append(v.Later, meetingSummary(m))
	}
	return v
}

// trayEntries lists the first limit meetings of the agenda for the tray menu.
func trayEntries(a agenda.Agenda, limit int) []string {
	out := []string{}
	for _, m := range a.Meetings {
		if len(out) >= limit {
			break
		}
		out = append(out, fmt.Sprintf("  %s - %s", m.Start.Format(clockLayout), truncateString(meetingTitle(m), 35)))
	}
	return out
}

func writeAgenda(w io.Writer, a agenda.Agenda, now time.Time) {
	if a.UpNext == nil {
		fmt.Fprintln(w, "No more meetings today.")
		return
	}
	fmt.Fprintf(w, "Up next: %s  %s\n", meetingSummary(*a.UpNext), formatCountdown(a.UpNext.Start.Sub(now)))
	if a.UpNext.HasLink() {
		fmt.Fprintf(w, "  %s\n", a.UpNext.Link)
	}
	if len(a.Later) == 0 {
		return
	}
	fmt.Fprintln(w, "Later:")
	for _, m := range a.Later {
		fmt.Fprintf(w, "  %s\n", meetingSummary(m))
	}
}

// describeCheck says what the alert clock would do at now.
func describeCheck(a agenda.Agenda, now time.Time, threshold time.Duration) string {
	if m, ok := engine.Due(a.Meetings, now, threshold, nil); ok {
		return "alert now: " + meetingSummary(m)
	}
	if a.UpNext == nil {
		return "nothing to alert today"
	}
	wait := a.UpNext.Start.Sub(now) - threshold
	return fmt.Sprintf("next alert %s: %s", formatCountdown(wait), meetingSummary(*a.UpNext))
}
