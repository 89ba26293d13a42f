package store

import (
	"context"
	"sort"
	"sync"

	"github.com/flisboa999/guiaturismo/internal/model"
)

// Memory is an in-process Documents backend.
type Memory struct {
	mu    sync.RWMutex
	turns map[string]model.ChatTurn
	seq   map[string]uint64
	next  uint64
}

func NewMemory() *Memory {
	return &Memory{
		turns: make(map[string]model.ChatTurn),
		seq:   make(map[string]uint64),
	}
}

func (m *Memory) Insert(_ context.Context, turn *model.ChatTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.turns[turn.ID] = *turn
	m.seq[turn.ID] = m.next
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*model.ChatTurn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turn, ok := m.turns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &turn, nil
}

func (m *Memory) UpdatePrompt(_ context.Context, id, prompt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	turn, ok := m.turns[id]
	if !ok {
		return ErrNotFound
	}
	turn.Prompt = prompt
	m.turns[id] = turn
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.turns[id]; !ok {
		return ErrNotFound
	}
	delete(m.turns, id)
	delete(m.seq, id)
	return nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]model.ChatTurn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]model.ChatTurn, 0, len(m.turns))
	for _, turn := range m.turns {
		all = append(all, turn)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Timestamp.Equal(all[j].Timestamp) {
			return m.seq[all[i].ID] < m.seq[all[j].ID]
		}
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (m *Memory) IDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.turns))
	for id := range m.turns {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}
