package storage

import (
	"context"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/models"

	"gorm.io/gorm/clause"
)

// ActivityFilter narrows the activity log. Date matches the UTC calendar day.
type ActivityFilter struct {
	ActorID *uint
	Date    *time.Time
	Limit   int
}

func (s *Service) AppendHistory(ctx context.Context, e *models.HistoryEntry) error {
	return s.db(ctx).Omit(clause.Associations).Create(e).Error
}

// AppendActivity writes a log entry. Inside InTx the entry is announced on
// the live feed after commit; outside it is announced right away.
func (s *Service) AppendActivity(ctx context.Context, e *models.ActivityLogEntry) error {
	if err := s.db(ctx).Omit(clause.Associations).Create(e).Error; err != nil {
		return err
	}
	if s.inTx {
		s.pending = append(s.pending, e)
		return nil
	}
	s.publishActivity(ctx, e)
	return nil
}

// ListHistory returns the history of one complaint, newest first.
func (s *Service) ListHistory(ctx context.Context, complaintID uint) ([]models.HistoryEntry, error) {
	var out []models.HistoryEntry
	err := s.db(ctx).
		Preload("Actor").
		Where("complaint_id = ?", complaintID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// ListActivity returns log entries newest first, never more than
// config.ActivityLogCap.
func (s *Service) ListActivity(ctx context.Context, f ActivityFilter) ([]models.ActivityLogEntry, error) {
	limit := f.Limit
	if limit <= 0 || limit > config.ActivityLogCap {
		limit = config.ActivityLogCap
	}

	q := s.db(ctx).Preload("Actor")
	if f.ActorID != nil {
		q = q.Where("actor_id = ?", *f.ActorID)
	}
	if f.Date != nil {
		d := f.Date.UTC()
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		q = q.Where("created_at >= ? AND created_at < ?", start, start.Add(24*time.Hour))
	}

	var out []models.ActivityLogEntry
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error
	return out, err
}
