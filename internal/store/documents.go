package store

import (
	"context"
	"errors"

	"github.com/flisboa999/guiaturismo/internal/model"
)

var ErrNotFound = errors.New("document not found")

// Documents is the durable backend behind a Collection.
type Documents interface {
	Insert(ctx context.Context, turn *model.ChatTurn) error
	Get(ctx context.Context, id string) (*model.ChatTurn, error)
	UpdatePrompt(ctx context.Context, id, prompt string) error
	Delete(ctx context.Context, id string) error
	// Recent returns up to limit newest turns in ascending timestamp order.
	Recent(ctx context.Context, limit int) ([]model.ChatTurn, error)
	IDs(ctx context.Context) ([]string, error)
}

// WindowCache holds the most recent window snapshot between writes.
type WindowCache interface {
	// Generation changes on every Invalidate.
	Generation(ctx context.Context) (int64, error)
	GetWindow(ctx context.Context, limit int) ([]model.ChatTurn, bool, error)
	// SetWindow is a no-op when the generation no longer equals gen.
	SetWindow(ctx context.Context, limit int, gen int64, turns []model.ChatTurn) error
	Invalidate(ctx context.Context) error
}
