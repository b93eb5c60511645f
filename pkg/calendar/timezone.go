package calendar

import (
	"github.com/emersion/go-ical"
)

// Outlook and Exchange feeds name zones the Windows way.
var windowsToIANA = map[string]string{
	"Pacific Standard Time":        "America/Los_Angeles",
	"Mountain Standard Time":       "America/Denver",
	"US Mountain Standard Time":    "America/Phoenix",
	"Central Standard Time":        "America/Chicago",
	"Eastern Standard Time":        "America/New_York",
	"Atlantic Standard Time":       "America/Halifax",
	"Alaskan Standard Time":        "America/Anchorage",
	"Hawaiian Standard Time":       "Pacific/Honolulu",
	"GMT Standard Time":            "Europe/London",
	"W. Europe Standard Time":      "Europe/Berlin",
	"Romance Standard Time":        "Europe/Paris",
	"Central Europe Standard Time": "Europe/Budapest",
	"E. Europe Standard Time":      "Europe/Chisinau",
	"FLE Standard Time":            "Europe/Kiev",
	"Russian Standard Time":        "Europe/Moscow",
	"China Standard Time":          "Asia/Shanghai",
	"Tokyo Standard Time":          "Asia/Tokyo",
	"Korea Standard Time":          "Asia/Seoul",
	"Singapore Standard Time":      "Asia/Singapore",
	"India Standard Time":          "Asia/Kolkata",
	"AUS Eastern Standard Time":    "Australia/Sydney",
	"New Zealand Standard Time":    "Pacific/Auckland",
	"UTC":                          "UTC",
}

var datedProps = []string{
	ical.PropDateTimeStart,
	ical.PropDateTimeEnd,
	ical.PropRecurrenceID,
	ical.PropExceptionDates,
	ical.PropRecurrenceDates,
}

// normalizeComponentTimezones rewrites Windows TZIDs on the dated properties
// of comp to their IANA names so go-ical can load them.
func normalizeComponentTimezones(comp *ical.Component) {
	for _, name := range datedProps {
		for _, prop := range comp.Props[name] {
			tzid := prop.Params.Get(ical.ParamTimezoneID)
			if tzid == "" {
				continue
			}
			if iana, ok := windowsToIANA[tzid]; ok {
				prop.Params.Set(ical.ParamTimezoneID, iana)
			}
		}
	}
}
