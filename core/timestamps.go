package core

import (
	"sort"
	"time"
)

// TimestampLayout matches JavaScript's Date.toISOString output, which is
// what the drawing GUI sends.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses an RFC 3339 timestamp with optional fractional seconds.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// FillTimestamps sets missing creation and update stamps on d. A missing
// updatedAt copies createdAt.
func FillTimestamps(d *NewDrawing, now time.Time) {
	if d.CreatedAt == "" {
		d.CreatedAt = FormatTimestamp(now)
	}
	if d.UpdatedAt == "" {
		d.UpdatedAt = d.CreatedAt
	}
}

// NextUpdatedAt returns the stamp to record for an update happening at now.
// It never moves backwards past the previous updatedAt or the createdAt of
// the drawing, so updatedAt >= createdAt holds after every update.
// TimestampLayout keeps milliseconds, so finer stamps are rounded up.
func NextUpdatedAt(d *Drawing, now time.Time) string {
	next := now.UTC()
	for _, prev := range []string{d.UpdatedAt, d.CreatedAt} {
		if t, err := ParseTimestamp(prev); err == nil && t.After(next) {
			next = t
		}
	}
	if ms := next.Truncate(time.Millisecond); ms.Before(next) {
		next = ms.Add(time.Millisecond)
	}
	return FormatTimestamp(next)
}

// SortByRecency orders drawings by updatedAt, most recent first. Ties and
// unparseable stamps fall back to descending id.
func SortByRecency(drawings []*Drawing) {
	sort.SliceStable(drawings, func(i, j int) bool {
		ti, erri := ParseTimestamp(drawings[i].UpdatedAt)
		tj, errj := ParseTimestamp(drawings[j].UpdatedAt)
		switch {
		case erri == nil && errj == nil && !ti.Equal(tj):
			return ti.After(tj)
		case erri == nil && errj != nil:
			return true
		case erri != nil && errj == nil:
			return false
		}
		return drawings[i].ID > drawings[j].ID
	})
}
