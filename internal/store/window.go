package store

import (
	"sort"

	"github.com/flisboa999/guiaturismo/internal/model"
)

type windowItem struct {
	turn model.ChatTurn
	seq  uint64
}

// window evaluates the "most recent N by timestamp ascending" query against
// incoming changes and emits only what changes the query result.
type window struct {
	limit int
	items []windowItem
	seq   uint64
}

func newWindow(limit int) *window {
	return &window{limit: limit}
}

func (w *window) seed(turns []model.ChatTurn) Batch {
	out := Batch{}
	for _, turn := range turns {
		out.Changes = append(out.Changes, w.apply(Added(turn)).Changes...)
	}
	return out
}

func (w *window) applyBatch(batch Batch) Batch {
	out := Batch{}
	for _, change := range batch.Changes {
		out.Changes = append(out.Changes, w.apply(change).Changes...)
	}
	return out
}

func (w *window) apply(change Change) Batch {
	switch change.Type {
	case ChangeAdded:
		if change.Turn == nil || w.index(change.ID) >= 0 {
			return Batch{}
		}
		w.seq++
		item := windowItem{turn: *change.Turn, seq: w.seq}
		pos := sort.Search(len(w.items), func(i int) bool {
			return w.items[i].turn.Timestamp.After(item.turn.Timestamp)
		})
		w.items = append(w.items, windowItem{})
		copy(w.items[pos+1:], w.items[pos:])
		w.items[pos] = item

		if w.limit > 0 && len(w.items) > w.limit {
			evicted := w.items[0]
			w.items = w.items[1:]
			if evicted.turn.ID == change.ID {
				return Batch{}
			}
			return Batch{Changes: []Change{Removed(evicted.turn.ID), change}}
		}
		return Batch{Changes: []Change{change}}
	case ChangeModified:
		idx := w.index(change.ID)
		if idx < 0 || change.Turn == nil {
			return Batch{}
		}
		w.items[idx].turn = *change.Turn
		return Batch{Changes: []Change{change}}
	case ChangeRemoved:
		idx := w.index(change.ID)
		if idx < 0 {
			return Batch{}
		}
		w.items = append(w.items[:idx], w.items[idx+1:]...)
		return Batch{Changes: []Change{change}}
	}
	return Batch{}
}

func (w *window) index(id string) int {
	for i := range w.items {
		if w.items[i].turn.ID == id {
			return i
		}
	}
	return -1
}

func (w *window) ids() []string {
	ids := make([]string, len(w.items))
	for i, item := range w.items {
		ids[i] = item.turn.ID
	}
	return ids
}
