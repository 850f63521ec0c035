// Package complaint implements the complaint (denuncia) lifecycle: who may
// create, edit, delete or move a complaint through its states, and the
// history and activity records every change leaves behind.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bquezada-bit/Silvacentinel/internal/evidence"
	"github.com/bquezada-bit/Silvacentinel/internal/metrics"
	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"
	"github.com/bquezada-bit/Silvacentinel/internal/validation"

	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("denuncia no encontrada")
	ErrForbidden       = errors.New("no tienes permisos para esta acción")
	ErrNotPending      = errors.New("la denuncia ya fue procesada")
	ErrInvalidStatus   = errors.New("estado inválido")
	ErrInvalidPriority = errors.New("prioridad inválida")
	ErrNoChanges       = errors.New("no hay cambios que guardar")
)

// Notifier is told about committed lifecycle events. Implementations must
// not block for long; errors are theirs to log.
type Notifier interface {
	ComplaintCreated(ctx context.Context, c *models.Complaint, owner *models.Account)
	StatusChanged(ctx context.Context, c *models.Complaint, from, to models.Status, actor *models.Account)
}

// Service handles the business logic for complaints.
type Service struct {
	Storage  storage.Storage
	Evidence evidence.Store
	Notifier Notifier
	Log      *zap.Logger
}

// NewService creates a new complaint service. ev and n may be nil.
func NewService(s storage.Storage, ev evidence.Store, n Notifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Storage: s, Evidence: ev, Notifier: n, Log: log}
}

// CreateInput is the citizen complaint form.
type CreateInput struct {
	Title               string           `form:"titulo" validate:"required,min=10,max=200"`
	Description         string           `form:"descripcion" validate:"required,min=20"`
	CategoryID          *uint            `form:"categoria"`
	Latitude            *float64         `form:"latitud" validate:"omitempty,min=-90,max=90"`
	Longitude           *float64         `form:"longitud" validate:"omitempty,min=-180,max=180"`
	LocationDescription string           `form:"ubicacion_descripcion" validate:"max=500"`
	EvidenceURL         string           `form:"evidencia_url" validate:"omitempty,url,max=255"`
	Evidence            *evidence.Upload `form:"-"`
}

func (in *CreateInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.LocationDescription = strings.TrimSpace(in.LocationDescription)
	in.EvidenceURL = strings.TrimSpace(in.EvidenceURL)
}

// OwnerEditInput is what a citizen may change on their own pending
// complaint. A nil CategoryID, nil Evidence or empty EvidenceURL keeps the
// current value.
type OwnerEditInput struct {
	Title       string           `form:"titulo" validate:"required,min=10,max=200"`
	Description string           `form:"descripcion" validate:"required,min=20"`
	CategoryID  *uint            `form:"categoria"`
	EvidenceURL string           `form:"evidencia_url" validate:"omitempty,url,max=255"`
	Evidence    *evidence.Upload `form:"-"`
}

func (in *OwnerEditInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.EvidenceURL = strings.TrimSpace(in.EvidenceURL)
}

// StaffEditInput is the full management form. A nil CategoryID keeps the
// current category.
type StaffEditInput struct {
	Title       string `form:"titulo" validate:"required,min=10,max=200"`
	Description string `form:"descripcion" validate:"required,min=20,max=2000"`
	CategoryID  *uint  `form:"categoria"`
	Status      string `form:"estado" validate:"required"`
	Priority    string `form:"prioridad" validate:"required"`
}

func (in *StaffEditInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
}

// Create files a new complaint for actor. It always starts pending with
// medium priority.
func (s *Service) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.Complaint, error) {
	if !actor.Can(models.CapAuthenticated) {
		return nil, ErrForbidden
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, validation.Field("latitud", "Debes indicar latitud y longitud.")
	}
	if err := evidence.Check(in.Evidence); err != nil {
		return nil, err
	}

	c := &models.Complaint{
		OwnerID:     actor.Account.ID,
		Title:       in.Title,
		Description: in.Description,
		Status:      models.StatusPending,
		Priority:    models.PriorityMedium,
	}
	if in.EvidenceURL != "" {
		c.EvidenceURL = &in.EvidenceURL
	}

	stored, err := s.saveEvidence(ctx, in.Evidence)
	if err != nil {
		return nil, err
	}
	c.EvidenceFile = stored

	err = s.Storage.InTx(ctx, func(tx storage.Storage) error {
		if err := s.applyCategory(ctx, tx, c, in.CategoryID); err != nil {
			return err
		}
		if in.Latitude != nil && in.Longitude != nil {
			loc, err := tx.FindOrCreateLocation(ctx, *in.Latitude, *in.Longitude, in.LocationDescription)
			if err != nil {
				return err
			}
			c.LocationID = &loc.ID
			c.Location = loc
		}

		if err := tx.CreateComplaint(ctx, c); err != nil {
			return fmt.Errorf("create complaint: %w", err)
		}
		return s.audit(ctx, tx, actor, c, models.ActionCreation,
			"Denuncia creada: "+c.Title,
			"Creó denuncia: "+c.Title)
	})
	if err != nil {
		s.discardEvidence(ctx, stored)
		return nil, err
	}

	metrics.ComplaintEventsTotal.WithLabelValues(string(models.ActionCreation)).Inc()
	s.Log.Info("complaint created", zap.Uint("complaint_id", c.ID), zap.Uint("owner_id", c.OwnerID))
	if s.Notifier != nil {
		s.Notifier.ComplaintCreated(ctx, c, actor.Account)
	}
	return c, nil
}

// Get returns a complaint the actor may see: their own, or any for staff.
func (s *Service) Get(ctx context.Context, actor models.Actor, id uint) (*models.Complaint, error) {
	if !actor.Can(models.CapAuthenticated) {
		return nil, ErrForbidden
	}
	c, err := s.Storage.GetComplaint(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if c.OwnerID != actor.Account.ID && !actor.Can(models.CapManageComplaints) {
		return nil, ErrNotFound
	}
	return c, nil
}

// ListOwn returns the actor's complaints, newest first.
func (s *Service) ListOwn(ctx context.Context, actor models.Actor) ([]models.Complaint, error) {
	if !actor.Can(models.CapAuthenticated) {
		return nil, ErrForbidden
	}
	return s.Storage.ListComplaints(ctx, storage.ComplaintFilter{OwnerID: actor.ID()})
}

// ListAll is the staff management listing.
func (s *Service) ListAll(ctx context.Context, actor models.Actor, f storage.ComplaintFilter) ([]models.Complaint, error) {
	if !actor.Can(models.CapManageComplaints) {
		return nil, ErrForbidden
	}
	return s.Storage.ListComplaints(ctx, f)
}

// OwnerEdit lets a citizen correct their own complaint while it is still
// pending. Status and priority are not theirs to change.
func (s *Service) OwnerEdit(ctx context.Context, actor models.Actor, id uint, in OwnerEditInput) (*models.Complaint, error) {
	if !actor.Can(models.CapAuthenticated) {
		return nil, ErrForbidden
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := evidence.Check(in.Evidence); err != nil {
		return nil, err
	}

	stored, err := s.saveEvidence(ctx, in.Evidence)
	if err != nil {
		return nil, err
	}

	var c *models.Complaint
	err = s.Storage.InTx(ctx, func(tx storage.Storage) error {
		var err error
		c, err = loadOwnPending(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		var changed []string
		if c.Title != in.Title {
			c.Title = in.Title
			changed = append(changed, "título")
		}
		if c.Description != in.Description {
			c.Description = in.Description
			changed = append(changed, "descripción")
		}
		if in.CategoryID != nil && (c.CategoryID == nil || *c.CategoryID != *in.CategoryID) {
			if err := s.applyCategory(ctx, tx, c, in.CategoryID); err != nil {
				return err
			}
			changed = append(changed, "categoría")
		}
		if stored != nil {
			c.EvidenceFile = stored
			changed = append(changed, "evidencia")
		}
		if in.EvidenceURL != "" && (c.EvidenceURL == nil || *c.EvidenceURL != in.EvidenceURL) {
			u := in.EvidenceURL
			c.EvidenceURL = &u
			changed = append(changed, "URL de evidencia")
		}
		if len(changed) == 0 {
			return ErrNoChanges
		}

		if err := tx.SaveComplaint(ctx, c); err != nil {
			return fmt.Errorf("save complaint: %w", err)
		}
		return s.audit(ctx, tx, actor, c, models.ActionEdit,
			"Usuario editó su denuncia: "+strings.Join(changed, ", "),
			fmt.Sprintf("Editó su denuncia #%d: %s", c.ID, c.Title))
	})
	if err != nil {
		s.discardEvidence(ctx, stored)
		return nil, err
	}

	metrics.ComplaintEventsTotal.WithLabelValues(string(models.ActionEdit)).Inc()
	return c, nil
}

// OwnerDelete removes the actor's own pending complaint and its history.
func (s *Service) OwnerDelete(ctx context.Context, actor models.Actor, id uint) error {
	if !actor.Can(models.CapAuthenticated) {
		return ErrForbidden
	}

	err := s.Storage.InTx(ctx, func(tx storage.Storage) error {
		c, err := loadOwnPending(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteComplaint(ctx, c.ID); err != nil {
			return fmt.Errorf("delete complaint: %w", err)
		}
		return tx.AppendActivity(ctx, logEntry(actor, "Eliminó su denuncia: "+c.Title))
	})
	if err != nil {
		return err
	}

	metrics.ComplaintEventsTotal.WithLabelValues("eliminacion").Inc()
	return nil
}

// StaffEdit applies the management form. Every changed field is listed in
// a single history entry as "Campo: antes → después".
func (s *Service) StaffEdit(ctx context.Context, actor models.Actor, id uint, in StaffEditInput) (*models.Complaint, error) {
	if !actor.Can(models.CapManageComplaints) {
		return nil, ErrForbidden
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	status, ok := models.ParseStatus(in.Status)
	if !ok {
		return nil, ErrInvalidStatus
	}
	priority, ok := models.ParsePriority(in.Priority)
	if !ok {
		return nil, ErrInvalidPriority
	}

	var (
		c         *models.Complaint
		oldStatus models.Status
	)
	err := s.Storage.InTx(ctx, func(tx storage.Storage) error {
		var err error
		c, err = tx.GetComplaint(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		oldStatus = c.Status

		var changes []string
		if c.Title != in.Title {
			changes = append(changes, change("Título", c.Title, in.Title))
			c.Title = in.Title
		}
		if c.Description != in.Description {
			changes = append(changes, change("Descripción", c.Description, in.Description))
			c.Description = in.Description
		}
		if in.CategoryID != nil && !sameCategory(c.CategoryID, in.CategoryID) {
			before := c.CategoryName()
			if err := s.applyCategory(ctx, tx, c, in.CategoryID); err != nil {
				return err
			}
			changes = append(changes, change("Categoría", before, c.CategoryName()))
		}
		if c.Status != status {
			changes = append(changes, change("Estado", string(c.Status), string(status)))
			c.Status = status
		}
		if c.Priority != priority {
			changes = append(changes, change("Prioridad", string(c.Priority), string(priority)))
			c.Priority = priority
		}
		if len(changes) == 0 {
			return ErrNoChanges
		}

		if err := tx.SaveComplaint(ctx, c); err != nil {
			return fmt.Errorf("save complaint: %w", err)
		}
		return s.audit(ctx, tx, actor, c, models.ActionEdit,
			strings.Join(changes, ", "),
			fmt.Sprintf("Editó denuncia #%d: %s", c.ID, c.Title))
	})
	if err != nil {
		return nil, err
	}

	metrics.ComplaintEventsTotal.WithLabelValues(string(models.ActionEdit)).Inc()
	if oldStatus != c.Status && s.Notifier != nil {
		s.Notifier.StatusChanged(ctx, c, oldStatus, c.Status, actor.Account)
	}
	return c, nil
}

// ChangeStatus is the quick status switch of the management list. raw must
// be one of the persisted status values.
func (s *Service) ChangeStatus(ctx context.Context, actor models.Actor, id uint, raw string) (*models.Complaint, error) {
	if !actor.Can(models.CapManageComplaints) {
		return nil, ErrForbidden
	}
	next, ok := models.ParseStatus(raw)
	if !ok {
		return nil, ErrInvalidStatus
	}

	var (
		c    *models.Complaint
		prev models.Status
	)
	err := s.Storage.InTx(ctx, func(tx storage.Storage) error {
		var err error
		c, err = tx.GetComplaint(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		prev = c.Status
		if prev == next {
			return ErrNoChanges
		}

		c.Status = next
		if err := tx.SaveComplaint(ctx, c); err != nil {
			return fmt.Errorf("save complaint: %w", err)
		}
		return s.audit(ctx, tx, actor, c, models.ActionStatusChange,
			change("Estado", string(prev), string(next)),
			fmt.Sprintf("Cambió estado de denuncia #%d a %s", c.ID, next))
	})
	if err != nil {
		return nil, err
	}

	metrics.ComplaintEventsTotal.WithLabelValues(string(models.ActionStatusChange)).Inc()
	s.Log.Info("complaint status changed",
		zap.Uint("complaint_id", c.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
		zap.Uint("actor_id", actor.Account.ID))
	if s.Notifier != nil {
		s.Notifier.StatusChanged(ctx, c, prev, next, actor.Account)
	}
	return c, nil
}

// History returns the complaint and its history, newest first. Staff only.
func (s *Service) History(ctx context.Context, actor models.Actor, id uint) (*models.Complaint, []models.HistoryEntry, error) {
	if !actor.Can(models.CapManageComplaints) {
		return nil, nil, ErrForbidden
	}
	c, err := s.Storage.GetComplaint(ctx, id)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	entries, err := s.Storage.ListHistory(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return c, entries, nil
}

func loadOwnPending(ctx context.Context, tx storage.Storage, actor models.Actor, id uint) (*models.Complaint, error) {
	c, err := tx.GetComplaint(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if c.OwnerID != actor.Account.ID {
		return nil, ErrNotFound
	}
	if c.Status != models.StatusPending {
		return nil, ErrNotPending
	}
	return c, nil
}

// applyCategory sets the category, checking it exists. nil clears it.
func (s *Service) applyCategory(ctx context.Context, tx storage.Storage, c *models.Complaint, id *uint) error {
	if id == nil {
		c.CategoryID = nil
		c.Category = nil
		return nil
	}
	cat, err := tx.GetCategory(ctx, *id)
	if errors.Is(err, storage.ErrNotFound) {
		return validation.Field("categoria", "Selecciona una categoría válida.")
	}
	if err != nil {
		return err
	}
	c.CategoryID = &cat.ID
	c.Category = cat
	return nil
}

// audit appends the history entry and the activity log entry of one change.
func (s *Service) audit(ctx context.Context, tx storage.Storage, actor models.Actor, c *models.Complaint, kind models.ActionKind, history, activity string) error {
	if err := tx.AppendHistory(ctx, &models.HistoryEntry{
		ComplaintID: c.ID,
		ActorID:     actor.ID(),
		Action:      kind,
		Description: history,
	}); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	if err := tx.AppendActivity(ctx, logEntry(actor, activity)); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func logEntry(actor models.Actor, action string) *models.ActivityLogEntry {
	return &models.ActivityLogEntry{
		ActorID: actor.ID(),
		Actor:   actor.Account,
		Action:  action,
		IP:      actor.IP,
	}
}

func (s *Service) saveEvidence(ctx context.Context, up *evidence.Upload) (*string, error) {
	if up == nil {
		return nil, nil
	}
	if s.Evidence == nil {
		return nil, validation.Field("evidencia", "La carga de archivos no está disponible.")
	}
	ref, err := s.Evidence.Save(ctx, up)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (s *Service) discardEvidence(ctx context.Context, ref *string) {
	if ref == nil || s.Evidence == nil {
		return
	}
	if err := s.Evidence.Delete(ctx, *ref); err != nil {
		s.Log.Warn("discard evidence", zap.String("ref", *ref), zap.Error(err))
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func change(field, before, after string) string {
	return field + ": " + before + " → " + after
}

func sameCategory(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
