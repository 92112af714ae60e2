// Package snapshot parses Kopia webhook payloads into flat key/value
// records. Payloads arrive either as a flat JSON object or as the
// notification plain-text format ("Path: /data/nextcloud\nStatus: OK\n...").
package snapshot

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// FormatError reports a structured payload that could not be decoded.
type FormatError struct {
	cause error
}

func (e *FormatError) Error() string { return fmt.Sprintf("decode payload: %v", e.cause) }

func (e *FormatError) Unwrap() error { return e.cause }

// labelRe is the one text grammar this parser commits to: a label is
// letters and interior spaces anchored at the start of the line, matched
// lazily so the first colon terminates it; the value is the rest of the
// line. Colons inside values therefore stay in the value.
var labelRe = regexp.MustCompile(`^([A-Za-z][A-Za-z ]*?):[ \t]*(.*)$`)

// canonicalKeys remaps known label variants onto the keys the display
// layer reads. Keys are looked up after normalization.
var canonicalKeys = map[string]string{
	"source_path": "path",
	"sourcepath":  "path",
	"end":         "end_time",
	"endtime":     "end_time",
	"start_time":  "start",
	"starttime":   "start",
	"dirs":        "directories",
}

var jsonAPI = jsoniter.Config{UseNumber: true}.Froze()

// Parse converts a raw webhook body into a Record.
//
// A JSON content type selects structured decoding; a malformed JSON body
// returns a *FormatError. Any other content type goes through the
// line-oriented text parser, which never fails: a body with no labeled
// segments simply yields an empty Record which callers reject.
func Parse(body []byte, contentType string) (Record, error) {
	if isJSONContentType(contentType) {
		return parseJSON(body)
	}
	return parseText(string(body)), nil
}

func isJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}

func parseJSON(body []byte) (Record, error) {
	var raw map[string]interface{}
	if err := jsonAPI.Unmarshal(body, &raw); err != nil {
		return nil, &FormatError{cause: err}
	}

	rec := make(Record, len(raw))
	for k, v := range raw {
		rec[normalizeKey(k)] = stringify(v)
	}
	applyEndTimeShim(rec)
	return rec, nil
}

// stringify flattens a decoded JSON value to its string form. Nested
// structures are kept as compact JSON rather than dropped.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		out, err := jsonAPI.MarshalToString(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return out
	}
}

func parseText(body string) Record {
	rec := Record{}
	lastKey := ""
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if m := labelRe.FindStringSubmatch(line); m != nil {
			key := normalizeKey(m[1])
			rec[key] = strings.TrimSpace(m[2])
			lastKey = key
			continue
		}
		// Continuation: an unlabeled line extends the previous value,
		// which is how multi-line fields and trailing footers arrive.
		if lastKey != "" && strings.TrimSpace(line) != "" {
			rec[lastKey] = rec[lastKey] + "\n" + strings.TrimSpace(line)
		}
	}
	applyEndTimeShim(rec)
	return rec
}

// normalizeKey lowercases a label, replaces spaces with underscores and
// folds known variants onto their canonical key.
func normalizeKey(label string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
	if canon, ok := canonicalKeys[key]; ok {
		return canon
	}
	return key
}

// applyEndTimeShim copies start into end_time when the payload carries
// only a start timestamp. The display layer reads end_time exclusively,
// so reports that never set it still get a snapshot timestamp.
func applyEndTimeShim(rec Record) {
	if start, ok := rec["start"]; ok {
		if _, ok := rec["end_time"]; !ok {
			rec["end_time"] = start
		}
	}
}
