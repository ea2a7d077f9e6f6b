package mail

import (
	"regexp"
	"strings"
	"time"
)

// Layout permutations of RFC 5322 section 3.3 dates, most common form
// first. Mail servers disagree on weekday presence, digit padding and
// zone notation, so strict parsing tries each in turn.
var messageDateLayouts = [...]string{
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 02 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, 02 Jan 06 15:04:05 -0700",
	"Mon, 2 Jan 06 15:04:05 -0700",
	"Mon, 02 Jan 06 15:04:05 MST",
	"Mon, 2 Jan 06 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700 (MST)",
	"2 Jan 2006 15:04:05 -0700 (MST)",
	"02 Jan 06 15:04:05 -0700",
	"2 Jan 06 15:04:05 -0700",
	"02 Jan 06 15:04:05 MST",
	"2 Jan 06 15:04:05 MST",
	"2 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04 MST",
	"Mon, 2 Jan 2006 15:04 MST",
}

var (
	// Dates ending in a bare "UT" zone marker, with or without a
	// leading weekday. Appending "C" turns the zone into parseable UTC.
	reBareUTZone = regexp.MustCompile(`(?i)^([A-Z]{2,3},\s*)?[0-9]{1,2} [A-Z]{2,3} [0-9]{2,4} [0-9]{1,2}:[0-9]{1,2}:[0-9]{1,2} UT$`)

	// Dates whose trailing parenthetical zone annotation confuses the
	// parser. Everything from the first "(" is stripped.
	reParenZoneJunk = regexp.MustCompile(`(?i)^[A-Z]{2,3},?\s+[0-9]{1,2} [A-Z]{2,3} [0-9]{4} [0-9]{1,2}:[0-9]{1,2}:[0-9]{1,2}.*\(.*$`)

	reTrailingOffsetZone = regexp.MustCompile(`(?i)^[0-9]{1,2} [A-Z]{2,3} [0-9]{2,4} [0-9]{2}:[0-9]{2}:[0-9]{2} [A-Z]{2} \-[0-9]{2}:[0-9]{2} \([A-Z]{2,3} \-[0-9]{2}:[0-9]{2}\)$`)
)

// parseMessageDate parses a raw Date header with tolerance for known
// vendor quirks: the bogus +0580 offset some servers emit is corrected
// to +0530 before the strict pass, and on strict failure the string is
// normalized against known malformed shapes and retried once. The
// returned error, if any, is a *DateParseError naming messageID.
func parseMessageDate(raw, messageID string) (time.Time, error) {
	date := strings.TrimSpace(strings.ReplaceAll(raw, "+0580", "+0530"))

	if t, ok := tryDateLayouts(date); ok {
		return t, nil
	}

	switch {
	case reBareUTZone.MatchString(date):
		date += "C"
	case reTrailingOffsetZone.MatchString(date), reParenZoneJunk.MatchString(date):
		if idx := strings.Index(date, "("); idx >= 0 {
			date = strings.TrimSpace(date[:idx])
		}
	}

	if t, ok := tryDateLayouts(date); ok {
		return t, nil
	}
	return time.Time{}, &DateParseError{MessageID: messageID, Value: raw}
}

func tryDateLayouts(date string) (time.Time, bool) {
	for _, layout := range messageDateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
