package mail

import (
	"fmt"
	netmail "net/mail"
	"regexp"
	"strings"
	"time"
)

var trailingZoneComment = regexp.MustCompile(`\s*\([A-Za-z0-9+\-: ]+\)\s*$`)

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
}

// ParseMessageDate parses an email Date header. Supports RFC 5322 dates
// with or without a trailing zone comment, e.g.
//   - "Tue, 14 May 2024 09:30:00 +0000"
//   - "Tue, 14 May 2024 09:30:00 +0000 (UTC)"
//   - "14 May 2024 09:30:00 -0700"
func ParseMessageDate(header string) (time.Time, error) {
	s := strings.TrimSpace(header)
	s = trailingZoneComment.ReplaceAllString(s, "")

	if t, err := netmail.ParseDate(s); err == nil {
		return t.UTC(), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid message date %q", header)
}
