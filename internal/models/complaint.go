package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusPending    Status = "pendiente"
	StatusInProgress Status = "en_proceso"
	StatusResolved   Status = "resuelta"
	StatusRejected   Status = "rechazada"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved, StatusRejected}

func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pendiente"
	case StatusInProgress:
		return "En Proceso"
	case StatusResolved:
		return "Resuelta"
	case StatusRejected:
		return "Rechazada"
	}
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %q", string(s))
	}
	return string(s), nil
}

// Priority is the triage level of a complaint.
type Priority string

const (
	PriorityLow    Priority = "baja"
	PriorityMedium Priority = "media"
	PriorityHigh   Priority = "alta"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func ParsePriority(raw string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	return p, p.Valid()
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Baja"
	case PriorityMedium:
		return "Media"
	case PriorityHigh:
		return "Alta"
	}
	return string(p)
}

func (p Priority) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid priority %q", string(p))
	}
	return string(p), nil
}

// Complaint (denuncia) is a citizen report. OwnerID never changes after
// creation.
type Complaint struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OwnerID      uint      `gorm:"not null;index" json:"usuario_id"`
	Owner        *Account  `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	CategoryID   *uint     `gorm:"index" json:"categoria_id,omitempty"`
	Category     *Category `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	LocationID   *uint     `json:"ubicacion_id,omitempty"`
	Location     *Location `gorm:"constraint:OnDelete:SET NULL" json:"ubicacion,omitempty"`
	Title        string    `gorm:"size:200;not null" json:"titulo"`
	Description  string    `gorm:"type:text;not null" json:"descripcion"`
	EvidenceFile *string   `gorm:"size:255" json:"evidencia,omitempty"`
	EvidenceURL  *string   `gorm:"size:255" json:"evidencia_url,omitempty"`
	Status       Status    `gorm:"size:50;not null;index" json:"estado"`
	Priority     Priority  `gorm:"size:20;not null" json:"prioridad"`
	CreatedAt    time.Time `gorm:"index" json:"fecha_creacion"`
	UpdatedAt    time.Time `json:"fecha_actualizacion"`
}

func (Complaint) TableName() string { return "denuncias" }

// BeforeCreate fills the lifecycle defaults when the caller left them empty.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.Status == "" {
		c.Status = StatusPending
	}
	if c.Priority == "" {
		c.Priority = PriorityMedium
	}
	return
}

// HasEvidence reports whether a file or a URL was attached.
func (c *Complaint) HasEvidence() bool {
	return (c.EvidenceFile != nil && *c.EvidenceFile != "") || (c.EvidenceURL != nil && *c.EvidenceURL != "")
}

// CategoryName returns the category name or "Sin categoría".
func (c *Complaint) CategoryName() string {
	if c.Category == nil {
		return "Sin categoría"
	}
	return c.Category.Name
}

// Location is a GPS point, deduplicated by exact coordinate pair.
type Location struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Latitude    float64   `gorm:"not null;uniqueIndex:idx_ubicacion_coords" json:"latitud"`
	Longitude   float64   `gorm:"not null;uniqueIndex:idx_ubicacion_coords" json:"longitud"`
	Description *string   `gorm:"type:text" json:"descripcion,omitempty"`
	CreatedAt   time.Time `json:"fecha_registro"`
}

func (Location) TableName() string { return "ubicaciones" }

// Category is one entry of the fixed complaint taxonomy.
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"nombre"`
	Slug        string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"descripcion,omitempty"`
}

func (Category) TableName() string { return "categorias" }
