package handler

import (
	"strconv"

	"github.com/bquezada-bit/Silvacentinel/internal/complaint"
	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"

	"github.com/gin-gonic/gin"
)

const manageComplaints = "/gestion-denuncias/"

// ManageComplaints is the staff listing. Unknown filter values are ignored.
func (h *Handler) ManageComplaints(c *gin.Context) {
	ctx := c.Request.Context()
	f := storage.ComplaintFilter{Query: c.Query("q")}
	if s, ok := models.ParseStatus(c.Query("estado")); ok {
		f.Status = s
	}
	if p, ok := models.ParsePriority(c.Query("prioridad")); ok {
		f.Priority = p
	}
	if id, err := strconv.ParseUint(c.Query("categoria"), 10, 64); err == nil && id > 0 {
		cid := uint(id)
		f.CategoryID = &cid
	}

	list, err := h.Complaints.ListAll(ctx, actor(c), f)
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	categories, err := h.Storage.ListCategories(ctx)
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, gin.H{
		"denuncias":   h.complaintViews(list),
		"categorias":  categories,
		"estados":     statusChoices(),
		"prioridades": priorityChoices(),
		"filtros": gin.H{
			"estado":    string(f.Status),
			"prioridad": string(f.Priority),
			"categoria": f.CategoryID,
			"q":         f.Query,
		},
	})
}

func (h *Handler) EditComplaintPage(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	cm, err := h.Complaints.Get(ctx, actor(c), id)
	if err != nil {
		h.fail(c, err, manageComplaints)
		return
	}
	categories, err := h.Storage.ListCategories(ctx)
	if err != nil {
		h.fail(c, err, manageComplaints)
		return
	}
	h.render(c, gin.H{
		"denuncia":    h.complaintView(cm),
		"categorias":  categories,
		"estados":     statusChoices(),
		"prioridades": priorityChoices(),
	})
}

func (h *Handler) EditComplaint(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	in := complaint.StaffEditInput{
		Title:       c.PostForm("titulo"),
		Description: c.PostForm("descripcion"),
		Status:      c.PostForm("estado"),
		Priority:    c.PostForm("prioridad"),
	}
	var err error
	if in.CategoryID, err = optionalUint(c, "categoria"); err != nil {
		h.fail(c, err, manageComplaints)
		return
	}
	if _, err := h.Complaints.StaffEdit(c.Request.Context(), actor(c), id, in); err != nil {
		h.fail(c, err, manageComplaints)
		return
	}
	redirectWith(c, manageComplaints, LevelSuccess, h.text(c, "complaint_updated"))
}

// ChangeStatus is the quick status switch of the management listing.
func (h *Handler) ChangeStatus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	cm, err := h.Complaints.ChangeStatus(c.Request.Context(), actor(c), id, c.PostForm("estado"))
	if err != nil {
		h.fail(c, err, manageComplaints)
		return
	}
	redirectWith(c, manageComplaints, LevelSuccess, h.text(c, "status_changed", cm.Status.Label()))
}

func (h *Handler) ComplaintHistory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	cm, entries, err := h.Complaints.History(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err, manageComplaints)
		return
	}

	type historyView struct {
		ID          uint   `json:"id"`
		Action      string `json:"tipo_accion"`
		ActionLabel string `json:"tipo_accion_display"`
		Description string `json:"cambio_descripcion"`
		Actor       string `json:"usuario"`
		At          string `json:"fecha"`
	}
	history := make([]historyView, 0, len(entries))
	for _, e := range entries {
		v := historyView{
			ID:          e.ID,
			Action:      string(e.Action),
			ActionLabel: e.Action.Label(),
			Description: e.Description,
			At:          e.CreatedAt.Format(dateTimeLayout),
		}
		if e.Actor != nil {
			v.Actor = e.Actor.Username
		}
		history = append(history, v)
	}
	h.render(c, gin.H{
		"denuncia":  h.complaintView(cm),
		"historial": history,
	})
}
