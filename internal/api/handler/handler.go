// Package handler exposes SilvaSentinel over HTTP with gin. View endpoints
// answer with the JSON view model a template would render, plus the pending
// notices; form endpoints redirect with a notice on success.
package handler

import (
	"context"

	"github.com/bquezada-bit/Silvacentinel/internal/account"
	"github.com/bquezada-bit/Silvacentinel/internal/complaint"
	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/evidence"
	"github.com/bquezada-bit/Silvacentinel/internal/inaturalist"
	"github.com/bquezada-bit/Silvacentinel/internal/livefeed"
	"github.com/bquezada-bit/Silvacentinel/internal/localization"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"

	"go.uber.org/zap"
)

// ObservationSearcher is the flora and fauna lookup.
type ObservationSearcher interface {
	Search(ctx context.Context, query string, page int) *inaturalist.Result
}

// Handler holds the services every route needs.
type Handler struct {
	Storage      storage.Storage
	Accounts     *account.Service
	Complaints   *complaint.Service
	Evidence     evidence.Store
	Observations ObservationSearcher
	Hub          *livefeed.Hub
	Localizer    *localization.Localizer
	Sessions     *Sessions
	Log          *zap.Logger
}

// Deps are the collaborators of NewHandler. Hub may be nil when Redis is
// disabled.
type Deps struct {
	Storage      storage.Storage
	Evidence     evidence.Store
	Notifier     complaint.Notifier
	Observations ObservationSearcher
	Hub          *livefeed.Hub
	Session      config.SessionConfig
	Log          *zap.Logger
}

func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Storage:      d.Storage,
		Accounts:     account.NewService(d.Storage, log),
		Complaints:   complaint.NewService(d.Storage, d.Evidence, d.Notifier, log),
		Evidence:     d.Evidence,
		Observations: d.Observations,
		Hub:          d.Hub,
		Localizer:    localization.Default(),
		Sessions:     NewSessions(d.Session),
		Log:          log,
	}
}
