package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

// ComplaintFilter narrows complaint listings. Zero values match all.
type ComplaintFilter struct {
	OwnerID    *uint
	Status     models.Status
	Priority   models.Priority
	CategoryID *uint
	Query      string
	Limit      int
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	err := s.db(ctx).Order("name ASC").Find(&cats).Error
	return cats, err
}

func (s *Service) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := s.db(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// SeedCategories inserts the default taxonomy, leaving existing slugs alone.
func (s *Service) SeedCategories(ctx context.Context) error {
	for _, dc := range config.DefaultCategories {
		c := models.Category{Name: dc.Name, Slug: dc.Slug, Description: dc.Description}
		if err := s.db(ctx).Where(models.Category{Slug: dc.Slug}).FirstOrCreate(&c).Error; err != nil {
			return fmt.Errorf("seed category %s: %w", dc.Slug, err)
		}
	}
	return nil
}

// FindOrCreateLocation returns the location stored for the exact coordinate
// pair, creating it with description when absent.
func (s *Service) FindOrCreateLocation(ctx context.Context, lat, lng float64, description string) (*models.Location, error) {
	loc := models.Location{Latitude: lat, Longitude: lng}
	if description != "" {
		loc.Description = &description
	}
	err := s.db(ctx).
		Where("latitude = ? AND longitude = ?", lat, lng).
		FirstOrCreate(&loc).Error
	if err != nil {
		return nil, fmt.Errorf("find or create location: %w", err)
	}
	return &loc, nil
}

func (s *Service) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return s.db(ctx).Omit(clause.Associations).Create(c).Error
}

func (s *Service) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	return s.db(ctx).Omit(clause.Associations).Save(c).Error
}

// GetComplaint loads a complaint with its owner, category and location.
func (s *Service) GetComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	var c models.Complaint
	err := s.db(ctx).
		Preload("Owner").
		Preload("Category").
		Preload("Location").
		First(&c, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// DeleteComplaint removes the complaint and its history.
func (s *Service) DeleteComplaint(ctx context.Context, id uint) error {
	return s.InTx(ctx, func(st Storage) error {
		tx := st.(*Service).db(ctx)
		if err := tx.Where("complaint_id = ?", id).Delete(&models.HistoryEntry{}).Error; err != nil {
			return fmt.Errorf("delete complaint history: %w", err)
		}
		res := tx.Delete(&models.Complaint{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListComplaints returns complaints newest first.
func (s *Service) ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error) {
	q := s.db(ctx).Model(&models.Complaint{}).
		Preload("Owner").
		Preload("Category").
		Preload("Location")

	if f.OwnerID != nil {
		q = q.Where("owner_id = ?", *f.OwnerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", string(f.Priority))
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []models.Complaint
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		s.Log.Error("list complaints", zap.Error(err))
		return nil, err
	}
	return out, nil
}
