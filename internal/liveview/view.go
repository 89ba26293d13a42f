package liveview

import (
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/flisboa999/guiaturismo/internal/store"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpScroll Op = "scroll"
)

// RegionPrompt is the only region a modification re-renders.
const RegionPrompt = "prompt"

// Patch is one incremental DOM instruction. After names the turn the new
// element goes after; empty means it becomes the first element.
type Patch struct {
	Op     Op     `json:"op"`
	ID     string `json:"id"`
	After  string `json:"after,omitempty"`
	Region string `json:"region,omitempty"`
	HTML   string `json:"html,omitempty"`
}

type entry struct {
	id        string
	timestamp time.Time
	arrival   uint64
}

// View mirrors the displayed list of one client. It is not safe for
// concurrent use; each connection owns its own.
type View struct {
	entries []entry
	arrival uint64
}

func NewView() *View {
	return &View{}
}

// Apply turns a change batch into patches. Elements not named by the batch
// are never touched.
func (v *View) Apply(batch store.Batch) []Patch {
	var patches []Patch
	for _, change := range batch.Changes {
		if p, ok := v.apply(change); ok {
			patches = append(patches, p)
		}
	}
	if len(patches) > 0 && len(v.entries) > 0 {
		patches = append(patches, Patch{Op: OpScroll, ID: v.entries[len(v.entries)-1].id})
	}
	return patches
}

func (v *View) apply(change store.Change) (Patch, bool) {
	switch change.Type {
	case store.ChangeAdded:
		if change.Turn == nil || v.index(change.ID) >= 0 {
			return Patch{}, false
		}
		html, err := RenderTurn(*change.Turn)
		if err != nil {
			log.WithError(err).WithField("turn_id", change.ID).Error("render turn failed")
			return Patch{}, false
		}
		v.arrival++
		e := entry{id: change.ID, timestamp: change.Turn.Timestamp, arrival: v.arrival}
		// Equal timestamps keep arrival order.
		pos := sort.Search(len(v.entries), func(i int) bool {
			return v.entries[i].timestamp.After(e.timestamp)
		})
		v.entries = append(v.entries, entry{})
		copy(v.entries[pos+1:], v.entries[pos:])
		v.entries[pos] = e

		p := Patch{Op: OpInsert, ID: change.ID, HTML: html}
		if pos > 0 {
			p.After = v.entries[pos-1].id
		}
		return p, true
	case store.ChangeModified:
		if change.Turn == nil || v.index(change.ID) < 0 {
			return Patch{}, false
		}
		html, err := RenderPrompt(change.Turn.Prompt)
		if err != nil {
			log.WithError(err).WithField("turn_id", change.ID).Error("render prompt failed")
			return Patch{}, false
		}
		return Patch{Op: OpUpdate, ID: change.ID, Region: RegionPrompt, HTML: html}, true
	case store.ChangeRemoved:
		idx := v.index(change.ID)
		if idx < 0 {
			return Patch{}, false
		}
		v.entries = append(v.entries[:idx], v.entries[idx+1:]...)
		return Patch{Op: OpRemove, ID: change.ID}, true
	}
	return Patch{}, false
}

func (v *View) index(id string) int {
	for i := range v.entries {
		if v.entries[i].id == id {
			return i
		}
	}
	return -1
}

// IDs lists the displayed turns in display order.
func (v *View) IDs() []string {
	ids := make([]string, len(v.entries))
	for i, e := range v.entries {
		ids[i] = e.id
	}
	return ids
}

func (v *View) Len() int {
	return len(v.entries)
}
