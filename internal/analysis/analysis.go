// Package analysis computes the read-only rollups shown on the admin
// dashboard, the public index, the profile page and the JSON stats endpoint.
// Nothing is cached: every call reads the current rows.
package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"
)

// StatusCount is one row of the per-status breakdown.
type StatusCount struct {
	Status  models.Status `json:"estado"`
	Label   string        `json:"label"`
	Total   int64         `json:"total"`
	Percent float64       `json:"porcentaje"`
}

type PriorityCount struct {
	Priority models.Priority `json:"prioridad"`
	Label    string          `json:"label"`
	Total    int64           `json:"total"`
}

type RoleCount struct {
	Role  models.Role `json:"rol"`
	Label string      `json:"label"`
	Total int64       `json:"total"`
}

// Dashboard is the admin statistics page.
type Dashboard struct {
	TotalComplaints int64                `json:"total_denuncias"`
	TotalAccounts   int64                `json:"total_usuarios"`
	TotalCategories int64                `json:"total_categorias"`
	ByStatus        []StatusCount        `json:"por_estado"`
	ByPriority      []PriorityCount      `json:"por_prioridad"`
	ByRole          []RoleCount          `json:"por_rol"`
	TopCategories   []storage.NamedCount `json:"top_categorias"`
	TopReporters    []storage.NamedCount `json:"usuarios_activos"`
	Recent          []models.Complaint   `json:"denuncias_recientes"`
}

// Percent returns part/total as a percentage rounded to one decimal, or 0
// when total is 0.
func Percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

// BuildDashboard reads every figure of the admin dashboard.
func BuildDashboard(ctx context.Context, s storage.Storage) (*Dashboard, error) {
	d := &Dashboard{}

	var err error
	if d.TotalComplaints, err = s.CountComplaints(ctx, nil); err != nil {
		return nil, fmt.Errorf("count complaints: %w", err)
	}

	byStatus, err := s.CountComplaintsByStatus(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	for _, st := range models.Statuses {
		d.ByStatus = append(d.ByStatus, StatusCount{
			Status:  st,
			Label:   st.Label(),
			Total:   byStatus[st],
			Percent: Percent(byStatus[st], d.TotalComplaints),
		})
	}

	byPriority, err := s.CountComplaintsByPriority(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by priority: %w", err)
	}
	for _, p := range models.Priorities {
		d.ByPriority = append(d.ByPriority, PriorityCount{Priority: p, Label: p.Label(), Total: byPriority[p]})
	}

	byRole, err := s.CountAccountsByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by role: %w", err)
	}
	for _, r := range models.Roles {
		d.ByRole = append(d.ByRole, RoleCount{Role: r, Label: r.Label(), Total: byRole[r]})
		d.TotalAccounts += byRole[r]
	}

	if d.TotalCategories, err = s.CountCategories(ctx); err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	if d.TopCategories, err = s.TopCategories(ctx, config.DashboardTopN); err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	if d.TopReporters, err = s.TopReporters(ctx, config.DashboardTopN); err != nil {
		return nil, fmt.Errorf("top reporters: %w", err)
	}
	if d.Recent, err = s.ListComplaints(ctx, storage.ComplaintFilter{Limit: config.DashboardRecent}); err != nil {
		return nil, fmt.Errorf("recent complaints: %w", err)
	}
	return d, nil
}

// Counters is the small status summary used by the index and profile pages.
type Counters struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pendientes"`
	InProgress int64 `json:"en_proceso"`
	Resolved   int64 `json:"resueltas"`
	Rejected   int64 `json:"rechazadas"`
}

// PublicCounters counts every complaint.
func PublicCounters(ctx context.Context, s storage.Storage) (Counters, error) {
	return counters(ctx, s, nil)
}

// AccountCounters counts the complaints owned by one account.
func AccountCounters(ctx context.Context, s storage.Storage, ownerID uint) (Counters, error) {
	return counters(ctx, s, &ownerID)
}

func counters(ctx context.Context, s storage.Storage, ownerID *uint) (Counters, error) {
	byStatus, err := s.CountComplaintsByStatus(ctx, ownerID)
	if err != nil {
		return Counters{}, fmt.Errorf("count by status: %w", err)
	}
	c := Counters{
		Pending:    byStatus[models.StatusPending],
		InProgress: byStatus[models.StatusInProgress],
		Resolved:   byStatus[models.StatusResolved],
		Rejected:   byStatus[models.StatusRejected],
	}
	c.Total = c.Pending + c.InProgress + c.Resolved + c.Rejected
	return c, nil
}

// APIStats is the body of GET /api/denuncias/estadisticas/.
type APIStats struct {
	Total      int64            `json:"total_denuncias"`
	ByStatus   APIStatusCount   `json:"por_estado"`
	ByPriority APIPriorityCount `json:"por_prioridad"`
}

type APIStatusCount struct {
	Pending    int64 `json:"pendientes"`
	InProgress int64 `json:"en_proceso"`
	Resolved   int64 `json:"resueltas"`
	Rejected   int64 `json:"rechazadas"`
}

type APIPriorityCount struct {
	Low    int64 `json:"baja"`
	Medium int64 `json:"media"`
	High   int64 `json:"alta"`
}

func BuildAPIStats(ctx context.Context, s storage.Storage) (*APIStats, error) {
	c, err := PublicCounters(ctx, s)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.CountComplaintsByPriority(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by priority: %w", err)
	}
	return &APIStats{
		Total: c.Total,
		ByStatus: APIStatusCount{
			Pending:    c.Pending,
			InProgress: c.InProgress,
			Resolved:   c.Resolved,
			Rejected:   c.Rejected,
		},
		ByPriority: APIPriorityCount{
			Low:    byPriority[models.PriorityLow],
			Medium: byPriority[models.PriorityMedium],
			High:   byPriority[models.PriorityHigh],
		},
	}, nil
}
