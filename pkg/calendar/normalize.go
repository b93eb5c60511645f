package calendar

import (
	"strconv"
	"strings"
	"time"

	"github.com/borgmon/meetalert/pkg/link"
	"github.com/borgmon/meetalert/pkg/models"
)

// timeLayouts lists the accepted timestamp shapes, most specific first.
// Layouts without an offset are read in the local zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"20060102T150405Z",
	"20060102T150405",
	"2006-01-02",
	"20060102",
}

// Normalize converts a raw event into a Meeting. It never fails: a field that
// cannot be parsed becomes its zero value.
func Normalize(raw models.RawEvent) models.Meeting {
	start := parseTime(raw.Start)
	end := parseTime(raw.End)
	meetingLink, _ := link.FromFields(raw.Description, raw.Location, raw.URL)

	return models.Meeting{
		ID:       meetingID(raw.Title, start, end),
		Title:    raw.Title,
		Start:    start,
		End:      end,
		Link:     meetingLink,
		Platform: link.Classify(meetingLink),
		IsAllDay: raw.IsAllDay,
	}
}

// NormalizeAll normalizes a batch. Events that would share an ID get a
// "#n" suffix in input order so every meeting in the batch is addressable.
func NormalizeAll(raws []models.RawEvent) []models.Meeting {
	meetings := make([]models.Meeting, 0, len(raws))
	seen := make(map[string]int, len(raws))

	for _, raw := range raws {
		m := Normalize(raw)
		seen[m.ID]++
		if n := seen[m.ID]; n > 1 {
			m.ID = m.ID + "#" + strconv.Itoa(n)
		}
		meetings = append(meetings, m)
	}
	return meetings
}

func meetingID(title string, start, end time.Time) string {
	return title + "|" + formatForID(start) + "|" + formatForID(end)
}

func formatForID(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
