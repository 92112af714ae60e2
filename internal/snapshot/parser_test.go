package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- plain text ---

func TestParse_Text_Roundtrip(t *testing.T) {
	body := "Path: /data/nextcloud\nStatus: OK\nStart: 2024-01-01T00:00:00\n"

	rec, err := Parse([]byte(body), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "/data/nextcloud", rec["path"])
	assert.Equal(t, "OK", rec["status"])
	assert.Equal(t, "2024-01-01T00:00:00", rec["start"])
	assert.Equal(t, "2024-01-01T00:00:00", rec["end_time"], "end_time should be synthesized from start")
}

func TestParse_Text_ColonInsideValue(t *testing.T) {
	rec, err := Parse([]byte("End Time: 2024-01-01T10:30:00Z\n"), "text/plain")
	require.NoError(t, err)

	// The lazy label match stops at the first colon; the rest of the
	// line, colons included, is the value.
	assert.Equal(t, "2024-01-01T10:30:00Z", rec["end_time"])
}

func TestParse_Text_NormalizesAndRemapsLabels(t *testing.T) {
	body := "Source Path: /backups/photos\nDirs: 42\nDuration: 1m3s\n"

	rec, err := Parse([]byte(body), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "/backups/photos", rec["path"])
	assert.Equal(t, "42", rec["directories"])
	assert.Equal(t, "1m3s", rec["duration"])
}

func TestParse_Text_IrregularCapitalization(t *testing.T) {
	rec, err := Parse([]byte("pAtH: /data/x\nSTATUS: ok\n"), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "/data/x", rec["path"])
	assert.Equal(t, "ok", rec["status"])
}

func TestParse_Text_MultiLineContinuation(t *testing.T) {
	body := "Status: FAILED\nsome file could not be read\npermission denied\nSize: 1.2 GB\n"

	rec, err := Parse([]byte(body), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "FAILED\nsome file could not be read\npermission denied", rec["status"])
	assert.Equal(t, "1.2 GB", rec["size"])
}

func TestParse_Text_NoLabels_YieldsEmptyRecordNotError(t *testing.T) {
	rec, err := Parse([]byte("just some prose without any labels"), "text/plain")
	require.NoError(t, err)
	assert.Empty(t, rec)
}

func TestParse_Text_LeadingUnlabeledLinesIgnored(t *testing.T) {
	body := "Kopia notification\n\nPath: /data/music\n"

	rec, err := Parse([]byte(body), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, Record{"path": "/data/music"}, rec)
}

func TestParse_Text_ExistingEndTimeNotOverwritten(t *testing.T) {
	body := "Start: 2024-01-01T00:00:00\nEnd Time: 2024-01-01T00:05:00\n"

	rec, err := Parse([]byte(body), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01T00:05:00", rec["end_time"])
}

func TestParse_Text_CRLF(t *testing.T) {
	rec, err := Parse([]byte("Path: /data/docs\r\nStatus: OK\r\n"), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "/data/docs", rec["path"])
	assert.Equal(t, "OK", rec["status"])
}

// --- JSON ---

func TestParse_JSON_FlatObject(t *testing.T) {
	body := `{"path":"/x/photos","status":"OK"}`

	rec, err := Parse([]byte(body), "application/json")
	require.NoError(t, err)

	assert.Equal(t, "/x/photos", rec["path"])
	assert.Equal(t, "OK", rec["status"])
}

func TestParse_JSON_KopiaKeysNormalized(t *testing.T) {
	body := `{"sourcePath":"/data/nextcloud","endTime":"2024-01-01T00:05:00Z","files":1234}`

	rec, err := Parse([]byte(body), "application/json")
	require.NoError(t, err)

	assert.Equal(t, "/data/nextcloud", rec["path"])
	assert.Equal(t, "2024-01-01T00:05:00Z", rec["end_time"])
	assert.Equal(t, "1234", rec["files"])
}

func TestParse_JSON_CoercesScalars(t *testing.T) {
	body := `{"size":104857600,"success":true,"note":null}`

	rec, err := Parse([]byte(body), "application/json")
	require.NoError(t, err)

	assert.Equal(t, "104857600", rec["size"])
	assert.Equal(t, "true", rec["success"])
	assert.Equal(t, "", rec["note"])
}

func TestParse_JSON_StartShimApplies(t *testing.T) {
	rec, err := Parse([]byte(`{"start":"2024-01-01T00:00:00Z"}`), "application/json")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01T00:00:00Z", rec["end_time"])
}

func TestParse_JSON_Invalid_ReturnsFormatError(t *testing.T) {
	_, err := Parse([]byte("{not json"), "application/json")
	require.Error(t, err)

	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestParse_JSON_ContentTypeWithCharset(t *testing.T) {
	rec, err := Parse([]byte(`{"path":"/a/b"}`), "application/json; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "/a/b", rec["path"])
}

func TestParse_JSON_ArrayBody_ReturnsFormatError(t *testing.T) {
	_, err := Parse([]byte(`[1,2,3]`), "application/json")
	require.Error(t, err)
}
