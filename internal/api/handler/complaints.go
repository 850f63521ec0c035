package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bquezada-bit/Silvacentinel/internal/analysis"
	"github.com/bquezada-bit/Silvacentinel/internal/complaint"
	"github.com/bquezada-bit/Silvacentinel/internal/evidence"
	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/validation"

	"github.com/gin-gonic/gin"
)

const myComplaints = "/mis-denuncias/"

func (h *Handler) CreateComplaintPage(c *gin.Context) {
	categories, err := h.Storage.ListCategories(c.Request.Context())
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, gin.H{"categorias": categories})
}

func (h *Handler) CreateComplaint(c *gin.Context) {
	in := complaint.CreateInput{
		Title:               c.PostForm("titulo"),
		Description:         c.PostForm("descripcion"),
		LocationDescription: c.PostForm("ubicacion_descripcion"),
		EvidenceURL:         c.PostForm("evidencia_url"),
	}
	var err error
	if in.CategoryID, err = optionalUint(c, "categoria"); err != nil {
		h.fail(c, err, "/crear-denuncia/")
		return
	}
	if in.Latitude, err = optionalFloat(c, "latitud"); err != nil {
		h.fail(c, err, "/crear-denuncia/")
		return
	}
	if in.Longitude, err = optionalFloat(c, "longitud"); err != nil {
		h.fail(c, err, "/crear-denuncia/")
		return
	}
	upload, closeUpload, err := formUpload(c, "evidencia")
	if err != nil {
		h.fail(c, err, "/crear-denuncia/")
		return
	}
	defer closeUpload()
	in.Evidence = upload

	if _, err := h.Complaints.Create(c.Request.Context(), actor(c), in); err != nil {
		h.fail(c, err, "/crear-denuncia/")
		return
	}
	redirectWith(c, myComplaints, LevelSuccess, h.text(c, "complaint_created"))
}

// MyComplaints lists the caller's complaints with their status counters.
func (h *Handler) MyComplaints(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.Complaints.ListOwn(ctx, actor(c))
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	counters, err := analysis.AccountCounters(ctx, h.Storage, CurrentAccount(c).ID)
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, gin.H{
		"denuncias":  h.complaintViews(list),
		"contadores": counters,
	})
}

func (h *Handler) EditMyComplaintPage(c *gin.Context) {
	cm, ok := h.ownComplaint(c)
	if !ok {
		return
	}
	if cm.Status != models.StatusPending {
		redirectWith(c, myComplaints, LevelError, h.text(c, "complaint_not_pending_edit"))
		return
	}
	categories, err := h.Storage.ListCategories(c.Request.Context())
	if err != nil {
		h.fail(c, err, myComplaints)
		return
	}
	h.render(c, gin.H{
		"denuncia":   h.complaintView(cm),
		"categorias": categories,
	})
}

func (h *Handler) EditMyComplaint(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	in := complaint.OwnerEditInput{
		Title:       c.PostForm("titulo"),
		Description: c.PostForm("descripcion"),
		EvidenceURL: c.PostForm("evidencia_url"),
	}
	var err error
	if in.CategoryID, err = optionalUint(c, "categoria"); err != nil {
		h.fail(c, err, myComplaints)
		return
	}
	upload, closeUpload, err := formUpload(c, "evidencia")
	if err != nil {
		h.fail(c, err, myComplaints)
		return
	}
	defer closeUpload()
	in.Evidence = upload

	if _, err := h.Complaints.OwnerEdit(c.Request.Context(), actor(c), id, in); err != nil {
		h.fail(c, err, myComplaints)
		return
	}
	redirectWith(c, myComplaints, LevelSuccess, h.text(c, "complaint_updated"))
}

// DeleteMyComplaintPage is the confirmation step.
func (h *Handler) DeleteMyComplaintPage(c *gin.Context) {
	cm, ok := h.ownComplaint(c)
	if !ok {
		return
	}
	if cm.Status != models.StatusPending {
		redirectWith(c, myComplaints, LevelError, h.text(c, "complaint_not_pending_delete"))
		return
	}
	h.render(c, gin.H{"denuncia": h.complaintView(cm)})
}

func (h *Handler) DeleteMyComplaint(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	err := h.Complaints.OwnerDelete(c.Request.Context(), actor(c), id)
	if errors.Is(err, complaint.ErrNotPending) {
		redirectWith(c, myComplaints, LevelError, h.text(c, "complaint_not_pending_delete"))
		return
	}
	if err != nil {
		h.fail(c, err, myComplaints)
		return
	}
	redirectWith(c, myComplaints, LevelSuccess, h.text(c, "complaint_deleted"))
}

// ownComplaint loads the :id complaint when the caller owns it. Staff do not
// get to see other people's complaints through the owner pages.
func (h *Handler) ownComplaint(c *gin.Context) (*models.Complaint, bool) {
	id, ok := h.pathID(c)
	if !ok {
		return nil, false
	}
	cm, err := h.Complaints.Get(c.Request.Context(), actor(c), id)
	if err == nil && cm.OwnerID != CurrentAccount(c).ID {
		err = complaint.ErrNotFound
	}
	if err != nil {
		h.fail(c, err, myComplaints)
		return nil, false
	}
	return cm, true
}

func (h *Handler) pathID(c *gin.Context) (uint, bool) {
	return h.idParam(c, "complaint_not_found")
}

// idParam parses :id, answering 404 with the notFoundKey message when it is
// not a positive integer.
func (h *Handler) idParam(c *gin.Context, notFoundKey string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		h.notFound(c, notFoundKey)
		return 0, false
	}
	return uint(id), true
}

// optionalUint reads a numeric form field; an empty value is nil.
func optionalUint(c *gin.Context, field string) (*uint, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, validation.Field(field, "Opción inválida.")
	}
	u := uint(v)
	return &u, nil
}

func optionalFloat(c *gin.Context, field string) (*float64, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return nil, validation.Field(field, "Ingresa un número válido.")
	}
	return &v, nil
}

// formUpload opens the uploaded file in field, if any. The returned func
// closes it and is always safe to call.
func formUpload(c *gin.Context, field string) (*evidence.Upload, func(), error) {
	noop := func() {}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, fmt.Errorf("read upload %s: %w", field, err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open upload %s: %w", field, err)
	}
	return &evidence.Upload{Name: fh.Filename, Size: fh.Size, Body: f}, func() { _ = f.Close() }, nil
}
