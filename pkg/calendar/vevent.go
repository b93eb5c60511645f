package calendar

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/borgmon/meetalert/pkg/logging"
	"github.com/borgmon/meetalert/pkg/models"
)

const maxOccurrencesPerEvent = 500

const dateLayout = "2006-01-02"

// vevent is one VEVENT after property parsing.
type vevent struct {
	uid         string
	title       string
	description string
	location    string
	url         string
	start       time.Time
	end         time.Time
	allDay      bool
	cancelled   bool

	rrule      string
	exdates    []time.Time
	rdates     []time.Time
	recurrence time.Time // RECURRENCE-ID, zero unless this is an override
}

func (v vevent) duration() time.Duration {
	if v.end.IsZero() || v.end.Before(v.start) {
		return 0
	}
	return v.end.Sub(v.start)
}

type filterStats struct {
	components  int
	events      int
	missingTime int
	cancelled   int
	outside     int
	duplicates  int
	truncated   int
}

func (s *filterStats) log(log logging.Logger, included int) {
	log.Debug("calendar: vevents converted",
		logging.F("components", s.components),
		logging.F("events", s.events),
		logging.F("included", included),
		logging.F("cancelled", s.cancelled),
		logging.F("outside_window", s.outside),
		logging.F("missing_time", s.missingTime),
		logging.F("duplicates", s.duplicates),
		logging.F("truncated", s.truncated),
	)
}

// eventsFromCalendars converts every VEVENT of cals into raw events that
// overlap w. Recurring events are expanded, RECURRENCE-ID overrides replace
// the instance they name, and cancelled instances are dropped.
func eventsFromCalendars(cals []*ical.Calendar, w Window, log logging.Logger) []models.RawEvent {
	stats := &filterStats{}
	var bases []vevent
	overrides := make(map[string][]vevent)

	for _, cal := range cals {
		for _, comp := range cal.Children {
			stats.components++
			if comp.Name != ical.CompEvent {
				continue
			}
			stats.events++
			normalizeComponentTimezones(comp)

			ev := parseVEvent(comp)
			if ev.start.IsZero() {
				stats.missingTime++
				log.Debug("calendar: skipping event without start", logging.F("title", ev.title))
				continue
			}
			if !ev.recurrence.IsZero() {
				overrides[ev.uid] = append(overrides[ev.uid], ev)
				continue
			}
			bases = append(bases, ev)
		}
	}

	var instances []vevent
	for _, base := range bases {
		ov := overrides[base.uid]
		delete(overrides, base.uid)
		instances = append(instances, expand(base, ov, w, stats, log)...)
	}
	// Overrides whose series is not part of the feed still stand on their own.
	for _, ov := range overrides {
		instances = append(instances, ov...)
	}

	out := []models.RawEvent{}
	seen := make(map[string]bool)
	for _, ev := range instances {
		if ev.cancelled {
			stats.cancelled++
			continue
		}
		if !w.overlaps(ev.start, ev.end) {
			stats.outside++
			continue
		}
		key := ev.uid + "|" + ev.title + "|" + ev.start.Format(time.RFC3339)
		if seen[key] {
			stats.duplicates++
			continue
		}
		seen[key] = true
		out = append(out, ev.raw())
	}

	stats.log(log, len(out))
	return out
}

// expand returns the instances of base that may touch w. overrides are the
// RECURRENCE-ID variants of the same UID.
func expand(base vevent, overrides []vevent, w Window, stats *filterStats, log logging.Logger) []vevent {
	if base.rrule == "" {
		return []vevent{base}
	}

	rule, err := rrule.StrToRRule(base.rrule)
	if err != nil {
		log.Warn("calendar: bad RRULE, using first instance only",
			logging.F("title", base.title), logging.F("rrule", base.rrule), logging.Err(err))
		return []vevent{base}
	}
	rule.DTStart(base.start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range base.exdates {
		set.ExDate(ex.In(base.start.Location()))
	}
	for _, rd := range base.rdates {
		set.RDate(rd.In(base.start.Location()))
	}

	loc := base.start.Location()
	after := w.Start.Add(-base.duration()).In(loc)
	starts := set.Between(after, w.End.In(loc), true)
	if len(starts) > maxOccurrencesPerEvent {
		starts = starts[:maxOccurrencesPerEvent]
		stats.truncated++
	}

	out := make([]vevent, 0, len(starts))
	used := make(map[int]bool)
	for _, start := range starts {
		if i, ok := findOverride(overrides, start); ok {
			used[i] = true
			out = append(out, overrides[i])
			continue
		}
		instance := base
		instance.start = start
		instance.end = start.Add(base.duration())
		out = append(out, instance)
	}
	// An override can move an instance into the window from outside it.
	for i, ov := range overrides {
		if !used[i] {
			out = append(out, ov)
		}
	}
	return out
}

func findOverride(overrides []vevent, start time.Time) (int, bool) {
	for i, ov := range overrides {
		if ov.recurrence.Equal(start) {
			return i, true
		}
	}
	return 0, false
}

func parseVEvent(comp *ical.Component) vevent {
	ev := vevent{
		uid:         propText(comp, ical.PropUID),
		title:       propText(comp, ical.PropSummary),
		description: propText(comp, ical.PropDescription),
		location:    propText(comp, ical.PropLocation),
		url:         propText(comp, ical.PropURL),
		rrule:       propText(comp, ical.PropRecurrenceRule),
	}

	if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
		ev.allDay = prop.ValueType() == ical.ValueDate
		if t, err := parseDateTimeProperty(prop); err == nil {
			ev.start = t
		}
	}
	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		if t, err := parseDateTimeProperty(prop); err == nil {
			ev.end = t
		}
	}
	if ev.end.IsZero() && ev.allDay && !ev.start.IsZero() {
		ev.end = ev.start.AddDate(0, 0, 1)
	}

	if prop := comp.Props.Get(ical.PropRecurrenceID); prop != nil {
		if t, err := parseDateTimeProperty(prop); err == nil {
			ev.recurrence = t
		}
	}
	ev.exdates = parseDateList(comp.Props.Values(ical.PropExceptionDates))
	ev.rdates = parseDateList(comp.Props.Values(ical.PropRecurrenceDates))

	status := strings.ToUpper(propText(comp, ical.PropStatus))
	ev.cancelled = status == "CANCELLED" || isCancelledTitle(ev.title)
	return ev
}

func (v vevent) raw() models.RawEvent {
	r := models.RawEvent{
		Title:       v.title,
		Description: v.description,
		Location:    v.location,
		URL:         v.url,
		IsAllDay:    v.allDay,
	}
	if v.allDay {
		r.Start = v.start.Format(dateLayout)
		if !v.end.IsZero() {
			r.End = v.end.Format(dateLayout)
		}
		return r
	}
	r.Start = v.start.In(time.Local).Format(time.RFC3339)
	if !v.end.IsZero() {
		r.End = v.end.In(time.Local).Format(time.RFC3339)
	}
	return r
}

func propText(comp *ical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	if v, err := prop.Text(); err == nil {
		return v
	}
	return prop.Value
}

// parseDateList reads EXDATE/RDATE properties, each of which may carry a
// comma-separated list.
func parseDateList(props []ical.Prop) []time.Time {
	var out []time.Time
	for _, prop := range props {
		for _, part := range strings.Split(prop.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			single := prop
			single.Value = part
			if t, err := parseDateTimeProperty(&single); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

var dateTimeFallbackLayouts = []string{
	"20060102T150405",
	"20060102T150405Z",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"20060102",
}

func parseDateTimeProperty(prop *ical.Prop) (time.Time, error) {
	if t, err := prop.DateTime(time.Local); err == nil {
		return t, nil
	}

	// Unknown TZID: read the wall clock in the local zone.
	for _, layout := range dateTimeFallbackLayouts {
		if t, err := time.ParseInLocation(layout, prop.Value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse datetime value: %s", prop.Value)
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// isCancelledTitle catches feeds that rename cancelled meetings instead of
// setting STATUS.
func isCancelledTitle(title string) bool {
	clean := nonAlnum.ReplaceAllString(strings.ToLower(title), "")
	return strings.HasPrefix(clean, "canceled") || strings.HasPrefix(clean, "cancelled")
}
