package snapshot

import (
	"strings"
	"time"
)

// Record is one parsed backup-run report: normalized keys (lowercase,
// underscored) mapped to their string values.
type Record map[string]string

// Clone returns a shallow copy. Derived attributes are added to copies so
// the record held by the history store is never mutated after insertion.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// PathSegment extracts the last /-delimited component of path and
// lowercases it, e.g. "/backups/Nextcloud/" -> "nextcloud". It returns ""
// when the path is empty or reduces to nothing.
func PathSegment(path string) string {
	if path == "" {
		return ""
	}
	path = strings.TrimRight(path, "/")
	segment := path[strings.LastIndex(path, "/")+1:]
	return strings.ToLower(segment)
}

// timestampLayouts are tried in order when normalizing end_time. Kopia
// reports RFC 3339; the bare layouts cover payloads without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a snapshot timestamp string. Layouts without a
// zone are interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
