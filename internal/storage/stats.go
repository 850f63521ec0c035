package storage

import (
	"context"

	"github.com/bquezada-bit/Silvacentinel/internal/models"
)

// NamedCount is one row of a top-N ranking.
type NamedCount struct {
	Name  string `json:"nombre"`
	Total int64  `json:"total"`
}

func (s *Service) CountComplaints(ctx context.Context, ownerID *uint) (int64, error) {
	var n int64
	q := s.db(ctx).Model(&models.Complaint{})
	if ownerID != nil {
		q = q.Where("owner_id = ?", *ownerID)
	}
	err := q.Count(&n).Error
	return n, err
}

// CountComplaintsByStatus always returns an entry for every status.
func (s *Service) CountComplaintsByStatus(ctx context.Context, ownerID *uint) (map[models.Status]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	q := s.db(ctx).Model(&models.Complaint{}).Select("status, COUNT(*) AS total")
	if ownerID != nil {
		q = q.Where("owner_id = ?", *ownerID)
	}
	if err := q.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[models.Status]int64, len(models.Statuses))
	for _, st := range models.Statuses {
		out[st] = 0
	}
	for _, r := range rows {
		out[models.Status(r.Status)] = r.Total
	}
	return out, nil
}

func (s *Service) CountComplaintsByPriority(ctx context.Context) (map[models.Priority]int64, error) {
	var rows []struct {
		Priority string
		Total    int64
	}
	err := s.db(ctx).Model(&models.Complaint{}).
		Select("priority, COUNT(*) AS total").
		Group("priority").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[models.Priority]int64, len(models.Priorities))
	for _, p := range models.Priorities {
		out[p] = 0
	}
	for _, r := range rows {
		out[models.Priority(r.Priority)] = r.Total
	}
	return out, nil
}

func (s *Service) CountAccountsByRole(ctx context.Context) (map[models.Role]int64, error) {
	var rows []struct {
		Role  string
		Total int64
	}
	err := s.db(ctx).Model(&models.Account{}).
		Select("role, COUNT(*) AS total").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[models.Role]int64, len(models.Roles))
	for _, r := range models.Roles {
		out[r] = 0
	}
	for _, r := range rows {
		out[models.Role(r.Role)] = r.Total
	}
	return out, nil
}

func (s *Service) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	err := s.db(ctx).Model(&models.Category{}).Count(&n).Error
	return n, err
}

// TopCategories ranks categories by complaint count, skipping empty ones.
// Ties are broken by name.
func (s *Service) TopCategories(ctx context.Context, n int) ([]NamedCount, error) {
	var out []NamedCount
	err := s.db(ctx).Table("categorias").
		Select("categorias.name AS name, COUNT(denuncias.id) AS total").
		Joins("JOIN denuncias ON denuncias.category_id = categorias.id").
		Group("categorias.id, categorias.name").
		Order("total DESC, categorias.name ASC").
		Limit(n).
		Scan(&out).Error
	if out == nil {
		out = []NamedCount{}
	}
	return out, err
}

// TopReporters ranks accounts by how many complaints they filed.
func (s *Service) TopReporters(ctx context.Context, n int) ([]NamedCount, error) {
	var out []NamedCount
	err := s.db(ctx).Table("usuarios").
		Select("usuarios.username AS name, COUNT(denuncias.id) AS total").
		Joins("JOIN denuncias ON denuncias.owner_id = usuarios.id").
		Group("usuarios.id, usuarios.username").
		Order("total DESC, usuarios.username ASC").
		Limit(n).
		Scan(&out).Error
	if out == nil {
		out = []NamedCount{}
	}
	return out, err
}
