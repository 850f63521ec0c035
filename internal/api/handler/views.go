package handler

import (
	"net/http"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/models"

	"github.com/gin-gonic/gin"
)

// render writes a view model with the current account and the pending
// notices.
func (h *Handler) render(c *gin.Context, view gin.H) {
	view["usuario_actual"] = accountSummary(CurrentAccount(c))
	view["notices"] = takeNotices(c)
	c.JSON(http.StatusOK, view)
}

type accountView struct {
	ID        uint    `json:"id"`
	Username  string  `json:"username"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     *string `json:"telefono,omitempty"`
	Role      string  `json:"rol"`
	RoleLabel string  `json:"rol_display"`
	Active    bool    `json:"activo"`
}

func accountSummary(a *models.Account) *accountView {
	if a == nil {
		return nil
	}
	return &accountView{
		ID:        a.ID,
		Username:  a.Username,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Phone:     a.Phone,
		Role:      string(a.Role),
		RoleLabel: a.Role.Label(),
		Active:    a.Active,
	}
}

type complaintView struct {
	ID            uint             `json:"id"`
	Title         string           `json:"titulo"`
	Description   string           `json:"descripcion"`
	CategoryID    *uint            `json:"categoria_id,omitempty"`
	Category      string           `json:"categoria"`
	Status        models.Status    `json:"estado"`
	StatusLabel   string           `json:"estado_display"`
	Priority      models.Priority  `json:"prioridad"`
	PriorityLabel string           `json:"prioridad_display"`
	Owner         string           `json:"usuario,omitempty"`
	Location      *models.Location `json:"ubicacion,omitempty"`
	EvidenceFile  string           `json:"evidencia,omitempty"`
	EvidenceURL   string           `json:"evidencia_url,omitempty"`
	Editable      bool             `json:"editable"`
	CreatedAt     time.Time        `json:"fecha_creacion"`
	UpdatedAt     time.Time        `json:"fecha_actualizacion"`
}

func (h *Handler) complaintView(c *models.Complaint) complaintView {
	v := complaintView{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		CategoryID:    c.CategoryID,
		Category:      c.CategoryName(),
		Status:        c.Status,
		StatusLabel:   c.Status.Label(),
		Priority:      c.Priority,
		PriorityLabel: c.Priority.Label(),
		Location:      c.Location,
		Editable:      c.Status == models.StatusPending,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.Owner != nil {
		v.Owner = c.Owner.Username
	}
	if c.EvidenceFile != nil && *c.EvidenceFile != "" && h.Evidence != nil {
		v.EvidenceFile = h.Evidence.URL(*c.EvidenceFile)
	}
	if c.EvidenceURL != nil {
		v.EvidenceURL = *c.EvidenceURL
	}
	return v
}

func (h *Handler) complaintViews(list []models.Complaint) []complaintView {
	out := make([]complaintView, 0, len(list))
	for i := range list {
		out = append(out, h.complaintView(&list[i]))
	}
	return out
}

type choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func statusChoices() []choice {
	out := make([]choice, 0, len(models.Statuses))
	for _, s := range models.Statuses {
		out = append(out, choice{Value: string(s), Label: s.Label()})
	}
	return out
}

func priorityChoices() []choice {
	out := make([]choice, 0, len(models.Priorities))
	for _, p := range models.Priorities {
		out = append(out, choice{Value: string(p), Label: p.Label()})
	}
	return out
}

func roleChoices() []choice {
	out := make([]choice, 0, len(models.Roles))
	for _, r := range models.Roles {
		out = append(out, choice{Value: string(r), Label: r.Label()})
	}
	return out
}
