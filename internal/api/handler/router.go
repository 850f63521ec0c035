package handler

import (
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions are the HTTP settings that do not belong to Handler.
type RouterOptions struct {
	CORSOrigins []string
	// MediaRoot is served under /media when evidence is stored locally.
	MediaRoot string
}

// NewRouter mounts every route on a new gin engine.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.RequestLogger(), h.Authenticate())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.MediaRoot != "" {
		r.Static("/media", opts.MediaRoot)
	}

	api := r.Group("/api/denuncias")
	api.Use(apiCORS(opts.CORSOrigins))
	api.GET("/lista/", h.APIList)
	api.GET("/estadisticas/", h.APIStats)
	api.GET("/recientes/", h.APIRecent)

	// Public pages
	r.GET("/", h.Index)
	r.GET("/pagina3/", h.Biodiversity)
	r.GET("/login/", h.LoginPage)
	r.POST("/login/", h.Login)
	r.POST("/logout/", h.Logout)
	r.GET("/registro/", h.RegisterPage)
	r.POST("/registro/", h.Register)

	citizen := r.Group("/", h.Guard(models.CapAuthenticated))
	citizen.GET("/crear-denuncia/", h.CreateComplaintPage)
	citizen.POST("/crear-denuncia/", h.CreateComplaint)
	citizen.GET("/mis-denuncias/", h.MyComplaints)
	citizen.GET("/editar-mi-denuncia/:id/", h.EditMyComplaintPage)
	citizen.POST("/editar-mi-denuncia/:id/", h.EditMyComplaint)
	citizen.GET("/eliminar-mi-denuncia/:id/", h.DeleteMyComplaintPage)
	citizen.POST("/eliminar-mi-denuncia/:id/", h.DeleteMyComplaint)
	citizen.GET("/perfil/", h.Profile)
	citizen.POST("/perfil/", h.UpdateProfile)

	staff := r.Group("/", h.Guard(models.CapManageComplaints))
	staff.GET("/gestion-denuncias/", h.ManageComplaints)
	staff.GET("/editar-denuncia/:id/", h.EditComplaintPage)
	staff.POST("/editar-denuncia/:id/", h.EditComplaint)
	staff.POST("/cambiar-estado/:id/", h.ChangeStatus)
	staff.GET("/historial-denuncia/:id/", h.ComplaintHistory)

	admin := r.Group("/", h.Guard(models.CapManageUsers))
	admin.GET("/gestionar-usuarios/", h.ManageAccounts)
	admin.POST("/cambiar-rol/:id/", h.ChangeRole)
	admin.POST("/activar-desactivar/:id/", h.ToggleActive)
	admin.GET("/logs/", h.ActivityLog)
	admin.GET("/estadisticas/", h.Statistics)
	admin.GET("/ws/actividad/", h.ActivityFeed)

	return r
}

func apiCORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Cache-Control", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			break
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = origins
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cors.New(cfg)
}
