package store

import "github.com/flisboa999/guiaturismo/internal/model"

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Change is one per-document notification. Turn is nil for removals.
type Change struct {
	Type ChangeType      `json:"type"`
	ID   string          `json:"id"`
	Turn *model.ChatTurn `json:"turn,omitempty"`
}

// Batch is a set of changes delivered together.
type Batch struct {
	Changes []Change `json:"changes"`
}

func (b Batch) Empty() bool {
	return len(b.Changes) == 0
}

func Added(turn model.ChatTurn) Change {
	return Change{Type: ChangeAdded, ID: turn.ID, Turn: &turn}
}

func Modified(turn model.ChatTurn) Change {
	return Change{Type: ChangeModified, ID: turn.ID, Turn: &turn}
}

func Removed(id string) Change {
	return Change{Type: ChangeRemoved, ID: id}
}
