package handler

import (
	"net/http"

	"github.com/bquezada-bit/Silvacentinel/internal/analysis"
	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// apiComplaint is one row of the public JSON listings.
type apiComplaint struct {
	ID          uint   `json:"id"`
	Title       string `json:"titulo"`
	Category    string `json:"categoria"`
	Description string `json:"descripcion"`
	Status      string `json:"estado"`
	Priority    string `json:"prioridad"`
	Owner       string `json:"usuario"`
	CreatedAt   string `json:"fecha_creacion"`
}

func toAPIComplaints(list []models.Complaint) []apiComplaint {
	out := make([]apiComplaint, 0, len(list))
	for _, c := range list {
		row := apiComplaint{
			ID:          c.ID,
			Title:       c.Title,
			Category:    c.CategoryName(),
			Description: truncate(c.Description, config.SummaryDescription),
			Status:      c.Status.Label(),
			Priority:    c.Priority.Label(),
			CreatedAt:   c.CreatedAt.Format(dateTimeLayout),
		}
		if c.Owner != nil {
			row.Owner = c.Owner.Username
		}
		out = append(out, row)
	}
	return out
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// APIList returns every complaint, newest first.
func (h *Handler) APIList(c *gin.Context) {
	h.apiComplaints(c, storage.ComplaintFilter{})
}

// APIRecent returns the most recent complaints.
func (h *Handler) APIRecent(c *gin.Context) {
	h.apiComplaints(c, storage.ComplaintFilter{Limit: config.PublicRecentLimit})
}

func (h *Handler) apiComplaints(c *gin.Context, f storage.ComplaintFilter) {
	list, err := h.Storage.ListComplaints(c.Request.Context(), f)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAPIComplaints(list))
}

func (h *Handler) APIStats(c *gin.Context) {
	stats, err := analysis.BuildAPIStats(c.Request.Context(), h.Storage)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) apiError(c *gin.Context, err error) {
	requestLog(c).Error("api request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": h.text(c, "generic_error")})
}
