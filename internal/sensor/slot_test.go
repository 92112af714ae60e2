package sensor

import (
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacefrags/kopiahook/internal/history"
	"github.com/spacefrags/kopiahook/internal/snapshot"
)

func newTestSlots(t *testing.T, limit int) (*history.Store, []*Slot) {
	t.Helper()
	logger := log.New("test")
	logger.SetLevel(log.OFF)
	store := history.New(limit)
	return store, Slots(store, logger)
}

func TestSlot_EmptyView(t *testing.T) {
	_, slots := newTestSlots(t, 5)

	view := slots[0].View()
	assert.Equal(t, StateEmpty, view.State)
	assert.Empty(t, view.Label)
	assert.Nil(t, view.Attributes)
}

func TestSlot_LabelFromPathSegment(t *testing.T) {
	store, slots := newTestSlots(t, 5)
	store.Update(snapshot.Record{"path": "/backups/nextcloud/", "status": "OK"})

	view := slots[0].View()
	assert.Equal(t, StatePopulated, view.State)
	assert.Equal(t, "nextcloud", view.Label)
}

func TestSlot_EmptyPath_SentinelLabel(t *testing.T) {
	store, slots := newTestSlots(t, 5)
	store.Update(snapshot.Record{"status": "OK"})

	view := slots[0].View()
	assert.Equal(t, StatePopulated, view.State)
	assert.Equal(t, "", view.Label)
}

func TestSlot_InjectsSnapshotTimestamp(t *testing.T) {
	store, slots := newTestSlots(t, 5)
	store.Update(snapshot.Record{
		"path":     "/data/photos",
		"end_time": "2024-01-01T10:30:00Z",
	})

	view := slots[0].View()
	assert.Equal(t, "2024-01-01T10:30:00Z", view.Attributes["snapshot_timestamp"])
	assert.Equal(t, "2024-01-01T10:30:00Z", view.Attributes["end_time"], "original value passes through")
}

func TestSlot_BadTimestamp_NoInjection(t *testing.T) {
	store, slots := newTestSlots(t, 5)
	store.Update(snapshot.Record{
		"path":     "/data/photos",
		"end_time": "not a timestamp",
	})

	view := slots[0].View()
	assert.NotContains(t, view.Attributes, "snapshot_timestamp")
	assert.Equal(t, "not a timestamp", view.Attributes["end_time"])
}

func TestSlot_DoesNotMutateStoredRecord(t *testing.T) {
	store, slots := newTestSlots(t, 5)
	store.Update(snapshot.Record{
		"path":     "/data/photos",
		"end_time": "2024-01-01T10:30:00Z",
	})

	// Deriving twice must not double-apply anything to the stored record.
	slots[0].View()
	slots[0].View()

	assert.NotContains(t, store.At(0), "snapshot_timestamp")
}

func TestSlot_AttributesPassThroughVerbatim(t *testing.T) {
	store, slots := newTestSlots(t, 5)
	store.Update(snapshot.Record{
		"path":        "/data/photos",
		"status":      "OK",
		"size":        "1.2 GB",
		"files":       "1234",
		"directories": "56",
	})

	view := slots[0].View()
	for _, key := range []string{"path", "status", "size", "files", "directories"} {
		assert.Contains(t, view.Attributes, key)
	}
}

func TestSlots_ShiftMovesViewsDown(t *testing.T) {
	store, slots := newTestSlots(t, 5)
	store.Update(snapshot.Record{"path": "/x/first"})
	store.Update(snapshot.Record{"path": "/x/second"})

	views := Views(slots)
	require.Len(t, views, 5)
	assert.Equal(t, "second", views[0].Label)
	assert.Equal(t, "first", views[1].Label)
	assert.Equal(t, StateEmpty, views[2].State)
}
