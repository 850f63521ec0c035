// Package evidence stores files attached to complaints, on local disk or in
// an S3 bucket. References are relative keys of the form
// evidencias/YYYY/MM/DD/<uuid>.<ext>.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/validation"

	"github.com/google/uuid"
)

// Upload is a file received from a form, not yet stored.
type Upload struct {
	Name string    `form:"evidencia" validate:"evidence_ext"`
	Size int64     `form:"-"`
	Body io.Reader `form:"-" validate:"-"`
}

// Store persists evidence and resolves references to URLs.
type Store interface {
	Save(ctx context.Context, up *Upload) (string, error)
	Delete(ctx context.Context, ref string) error
	URL(ref string) string
}

// Check enforces the size limit and the extension allow-list. Failures are
// reported on the "evidencia" form field.
func Check(up *Upload) error {
	if up == nil {
		return nil
	}
	if up.Size > config.EvidenceMaxBytes {
		return validation.Field("evidencia", "El archivo no debe superar 10MB.")
	}
	return validation.Struct(up)
}

// NewKey builds a unique reference for a file uploaded at t.
func NewKey(name string, t time.Time) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return path.Join("evidencias", t.Format("2006/01/02"), uuid.NewString()+"."+ext)
}

// New returns the store selected by cfg.Backend.
func New(cfg config.EvidenceConfig) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.MediaRoot, "/media"), nil
	case "s3":
		return NewS3Store(cfg)
	}
	return nil, fmt.Errorf("unknown evidence backend %q", cfg.Backend)
}

var errOutsideRoot = errors.New("evidence: reference escapes media root")
