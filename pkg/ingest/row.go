package ingest

import (
	"strconv"
	"time"

	"github.com/go-faster/errors"
)

// Row is one denormalized source record. String fields are trimmed and
// empty when the source marked the cell absent; PostedAt stays raw text
// because only the post stage needs it parsed.
type Row struct {
	Line          int
	SchoolName    string
	SchoolAddress string
	OrgName       string
	UserEmail     string
	UserPhone     string
	UserHash      string
	PostContent   string
	PostedAt      string
	Tag           string
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339, a date-time without zone, a bare
// date, or unix seconds/milliseconds.
func ParseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.Wrap(ErrParse, "empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1_000_000_000_000 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, errors.Wrapf(ErrParse, "unrecognized timestamp %q", raw)
}
