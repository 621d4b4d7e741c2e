package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"asterplayer/model"
)

// HistoryRepository is the durable ledger of submitted tracks.
type HistoryRepository interface {
	Record(ctx context.Context, entry *model.TrackHistory) error
	MarkRemoved(ctx context.Context, trackID string) error
	List(ctx context.Context, limit, offset int) ([]*model.TrackHistory, error)
}

// gormHistoryRepository GORM implementation.
type gormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository creates the MySQL ledger.
func NewGormHistoryRepository(db *gorm.DB) HistoryRepository {
	return &gormHistoryRepository{db: db}
}

// Record inserts a ledger row.
func (r *gormHistoryRepository) Record(ctx context.Context, entry *model.TrackHistory) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// MarkRemoved stamps RemovedAt; the row itself is kept.
func (r *gormHistoryRepository) MarkRemoved(ctx context.Context, trackID string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&model.TrackHistory{}).
		Where("track_id = ? AND removed_at IS NULL", trackID).
		Update("removed_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the newest entries first.
func (r *gormHistoryRepository) List(ctx context.Context, limit, offset int) ([]*model.TrackHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []*model.TrackHistory
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}
