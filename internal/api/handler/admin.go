package handler

import (
	"strconv"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/analysis"
	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"

	"github.com/gin-gonic/gin"
)

const manageAccounts = "/gestionar-usuarios/"

func (h *Handler) ManageAccounts(c *gin.Context) {
	f := storage.AccountFilter{Query: c.Query("q")}
	if r, ok := models.ParseRole(c.Query("rol")); ok {
		f.Role = r
	}
	rows, err := h.Accounts.List(c.Request.Context(), actor(c), f)
	if err != nil {
		h.fail(c, err, "/")
		return
	}

	type accountRow struct {
		*accountView
		Joined     time.Time  `json:"date_joined"`
		LastLogin  *time.Time `json:"last_login,omitempty"`
		Complaints int64      `json:"denuncias_count"`
	}
	accounts := make([]accountRow, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, accountRow{
			accountView: accountSummary(&rows[i].Account),
			Joined:      rows[i].CreatedAt,
			LastLogin:   rows[i].LastLoginAt,
			Complaints:  rows[i].ComplaintCount,
		})
	}
	h.render(c, gin.H{
		"usuarios": accounts,
		"roles":    roleChoices(),
		"filtros":  gin.H{"rol": string(f.Role), "q": f.Query},
	})
}

func (h *Handler) ChangeRole(c *gin.Context) {
	id, ok := h.idParam(c, "account_not_found")
	if !ok {
		return
	}
	a, err := h.Accounts.ChangeRole(c.Request.Context(), actor(c), id, c.PostForm("rol"))
	if err != nil {
		h.fail(c, err, manageAccounts)
		return
	}
	redirectWith(c, manageAccounts, LevelSuccess, h.text(c, "role_changed", a.Username, a.Role.Label()))
}

func (h *Handler) ToggleActive(c *gin.Context) {
	id, ok := h.idParam(c, "account_not_found")
	if !ok {
		return
	}
	a, err := h.Accounts.ToggleActive(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err, manageAccounts)
		return
	}
	key := "account_deactivated"
	if a.Active {
		key = "account_activated"
	}
	redirectWith(c, manageAccounts, LevelSuccess, h.text(c, key, a.Username))
}

// ActivityLog lists the newest log entries, optionally for one account
// (usuario=<id>) and one day (fecha=YYYY-MM-DD).
func (h *Handler) ActivityLog(c *gin.Context) {
	ctx := c.Request.Context()
	var f storage.ActivityFilter
	if id, err := strconv.ParseUint(c.Query("usuario"), 10, 64); err == nil && id > 0 {
		uid := uint(id)
		f.ActorID = &uid
	}
	if d, err := time.Parse(dateLayout, c.Query("fecha")); err == nil {
		f.Date = &d
	}

	entries, err := h.Storage.ListActivity(ctx, f)
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	accounts, err := h.Accounts.List(ctx, actor(c), storage.AccountFilter{})
	if err != nil {
		h.fail(c, err, "/")
		return
	}

	type logView struct {
		ID     uint   `json:"id"`
		Actor  string `json:"usuario"`
		Action string `json:"accion"`
		IP     string `json:"ip_origen"`
		At     string `json:"fecha"`
	}
	logs := make([]logView, 0, len(entries))
	for _, e := range entries {
		v := logView{ID: e.ID, Action: e.Action, IP: e.IP, At: e.CreatedAt.Format(dateTimeLayout)}
		if e.Actor != nil {
			v.Actor = e.Actor.Username
		}
		logs = append(logs, v)
	}
	users := make([]choice, 0, len(accounts))
	for _, a := range accounts {
		users = append(users, choice{Value: strconv.FormatUint(uint64(a.ID), 10), Label: a.Username})
	}

	filters := gin.H{"usuario": f.ActorID, "fecha": ""}
	if f.Date != nil {
		filters["fecha"] = f.Date.Format(dateLayout)
	}
	h.render(c, gin.H{
		"logs":     logs,
		"usuarios": users,
		"filtros":  filters,
		"en_vivo":  h.Hub != nil,
	})
}

// Statistics is the admin dashboard.
func (h *Handler) Statistics(c *gin.Context) {
	d, err := analysis.BuildDashboard(c.Request.Context(), h.Storage)
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, gin.H{
		"estadisticas":        d,
		"denuncias_recientes": h.complaintViews(d.Recent),
	})
}
