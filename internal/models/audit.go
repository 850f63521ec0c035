package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// ActionKind classifies a history entry.
type ActionKind string

const (
	ActionCreation     ActionKind = "creacion"
	ActionEdit         ActionKind = "edicion"
	ActionStatusChange ActionKind = "cambio_estado"
	ActionComment      ActionKind = "comentario"
	ActionAssignment   ActionKind = "asignacion"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionCreation, ActionEdit, ActionStatusChange, ActionComment, ActionAssignment:
		return true
	}
	return false
}

func (k ActionKind) Label() string {
	switch k {
	case ActionCreation:
		return "Creación"
	case ActionEdit:
		return "Edición"
	case ActionStatusChange:
		return "Cambio de Estado"
	case ActionComment:
		return "Comentario"
	case ActionAssignment:
		return "Asignación"
	}
	return string(k)
}

func (k ActionKind) Value() (driver.Value, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid action kind %q", string(k))
	}
	return string(k), nil
}

// HistoryEntry is an append-only record of something that happened to one
// complaint. ActorID becomes nil when the acting account is deleted.
type HistoryEntry struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ComplaintID uint       `gorm:"not null;index" json:"denuncia_id"`
	Complaint   *Complaint `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ActorID     *uint      `gorm:"index" json:"usuario_id"`
	Actor       *Account   `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Action      ActionKind `gorm:"size:50;not null" json:"tipo_accion"`
	Description string     `gorm:"type:text" json:"cambio_descripcion"`
	CreatedAt   time.Time  `gorm:"index" json:"fecha"`
}

func (HistoryEntry) TableName() string { return "historial_denuncias" }

// ActivityLogEntry is an append-only record of a security-relevant action.
type ActivityLogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   *uint     `gorm:"index" json:"usuario_id"`
	Actor     *Account  `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Action    string    `gorm:"size:255;not null" json:"accion"`
	IP        string    `gorm:"size:50" json:"ip_origen"`
	CreatedAt time.Time `gorm:"index" json:"fecha"`
}

func (ActivityLogEntry) TableName() string { return "logs_actividad" }

// All returns every persisted model, in migration order.
func All() []any {
	return []any{
		&Account{},
		&Category{},
		&Location{},
		&Complaint{},
		&HistoryEntry{},
		&ActivityLogEntry{},
	}
}
