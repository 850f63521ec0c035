package handler

import (
	"net/http"
	"strconv"

	"github.com/bquezada-bit/Silvacentinel/internal/account"
	"github.com/bquezada-bit/Silvacentinel/internal/analysis"
	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"

	"github.com/gin-gonic/gin"
)

// Index shows the public counters and the latest complaints.
func (h *Handler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	counters, err := analysis.PublicCounters(ctx, h.Storage)
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	recent, err := h.Storage.ListComplaints(ctx, storage.ComplaintFilter{Limit: config.PublicRecentLimit})
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, gin.H{
		"contadores": counters,
		"recientes":  toAPIComplaints(recent),
	})
}

// Biodiversity looks up flora and fauna observed around a place. Upstream
// failures are reported inside the result, never as an HTTP error.
func (h *Handler) Biodiversity(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	res := h.Observations.Search(c.Request.Context(), c.Query("ubicacion"), page)
	h.render(c, gin.H{"resultado": res})
}

func (h *Handler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	a := CurrentAccount(c)
	counters, err := analysis.AccountCounters(ctx, h.Storage, a.ID)
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	recent, err := h.Storage.ListComplaints(ctx, storage.ComplaintFilter{OwnerID: &a.ID, Limit: config.PublicRecentLimit})
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, gin.H{
		"perfil":     accountSummary(a),
		"contadores": counters,
		"recientes":  h.complaintViews(recent),
	})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var in account.ProfileInput
	if err := c.ShouldBind(&in); err != nil {
		h.fail(c, err, "/perfil/")
		return
	}
	if _, err := h.Accounts.UpdateProfile(c.Request.Context(), actor(c), in); err != nil {
		h.fail(c, err, "/perfil/")
		return
	}
	redirectWith(c, "/perfil/", LevelSuccess, h.text(c, "profile_updated"))
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"redis":  h.Storage.RedisEnabled(),
	})
}
