// Package sensor derives the per-slot display views exposed over the
// HTTP API and MQTT: one slot per history index, each surfacing a short
// label (the last path segment of the backed-up source) plus the full
// record as attributes.
package sensor

import (
	"time"

	"github.com/labstack/gommon/log"

	"github.com/spacefrags/kopiahook/internal/history"
	"github.com/spacefrags/kopiahook/internal/snapshot"
)

// State is the observable slot state.
type State string

const (
	StateEmpty     State = "empty"
	StatePopulated State = "populated"
)

// View is the serializable label+attributes pair for one slot. Label is
// "" while the slot is empty (the unknown sentinel).
type View struct {
	Index      int             `json:"index"`
	State      State           `json:"state"`
	Label      string          `json:"label,omitempty"`
	Attributes snapshot.Record `json:"attributes,omitempty"`
}

// Slot is a stable binding between one fixed history index and its
// derived view. Slots read the store; they never mutate it.
type Slot struct {
	index  int
	store  *history.Store
	logger *log.Logger
}

// NewSlot binds a slot to index i of store.
func NewSlot(store *history.Store, i int, logger *log.Logger) *Slot {
	return &Slot{index: i, store: store, logger: logger}
}

// Index returns the fixed history index this slot is bound to.
func (s *Slot) Index() int { return s.index }

// View recomputes the slot's display view from the current record.
//
// The derived snapshot_timestamp attribute goes into a copy of the
// record, never the stored record itself, so repeated derivation cannot
// alias or double-apply. A timestamp that fails to parse is logged and
// left out; the original end_time string still passes through verbatim.
func (s *Slot) View() View {
	rec := s.store.At(s.index)
	if len(rec) == 0 {
		return View{Index: s.index, State: StateEmpty}
	}

	attrs := rec.Clone()
	if raw, ok := rec["end_time"]; ok && raw != "" {
		if t, err := snapshot.ParseTimestamp(raw); err == nil {
			attrs["snapshot_timestamp"] = t.Format(time.RFC3339)
		} else if s.logger != nil {
			s.logger.Warnf("could not parse timestamp %q for slot %d: %v", raw, s.index, err)
		}
	}

	return View{
		Index:      s.index,
		State:      StatePopulated,
		Label:      snapshot.PathSegment(rec["path"]),
		Attributes: attrs,
	}
}

// Slots builds one slot per store index.
func Slots(store *history.Store, logger *log.Logger) []*Slot {
	out := make([]*Slot, store.Limit())
	for i := range out {
		out[i] = NewSlot(store, i, logger)
	}
	return out
}

// Views derives every slot's current view.
func Views(slots []*Slot) []View {
	out := make([]View, len(slots))
	for i, s := range slots {
		out[i] = s.View()
	}
	return out
}
