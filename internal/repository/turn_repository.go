package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/flisboa999/guiaturismo/internal/model"
	"github.com/flisboa999/guiaturismo/internal/store"
)

// TurnRepository is the gorm-backed store.Documents.
type TurnRepository struct {
	db *gorm.DB
}

var _ store.Documents = (*TurnRepository)(nil)

func NewTurnRepository(db *gorm.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

func (r *TurnRepository) Insert(ctx context.Context, turn *model.ChatTurn) error {
	if err := r.db.WithContext(ctx).Create(turn).Error; err != nil {
		return fmt.Errorf("create turn failed: %w", err)
	}
	return nil
}

func (r *TurnRepository) Get(ctx context.Context, id string) (*model.ChatTurn, error) {
	var turn model.ChatTurn
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&turn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get turn failed: %w", err)
	}
	return &turn, nil
}

func (r *TurnRepository) UpdatePrompt(ctx context.Context, id, prompt string) error {
	result := r.db.WithContext(ctx).Model(&model.ChatTurn{}).Where("id = ?", id).Update("prompt", prompt)
	if result.Error != nil {
		return fmt.Errorf("update turn prompt failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// MySQL reports zero rows when the value is unchanged, so confirm existence.
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *TurnRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ChatTurn{})
	if result.Error != nil {
		return fmt.Errorf("delete turn failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *TurnRepository) Recent(ctx context.Context, limit int) ([]model.ChatTurn, error) {
	var turns []model.ChatTurn
	if err := recentQuery(r.db.WithContext(ctx), limit).Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list recent turns failed: %w", err)
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// recentQuery selects the newest turns first; arrival order breaks timestamp ties.
func recentQuery(db *gorm.DB, limit int) *gorm.DB {
	if limit <= 0 {
		limit = store.DefaultWindowSize
	}
	limit = min(limit, store.MaxWindowSize)
	return db.Model(&model.ChatTurn{}).Order("timestamp DESC").Order("seq DESC").Limit(limit)
}

func (r *TurnRepository) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.ChatTurn{}).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list turn ids failed: %w", err)
	}
	return ids, nil
}
