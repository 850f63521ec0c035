package handler

import (
	"errors"
	"net/http"

	"github.com/bquezada-bit/Silvacentinel/internal/account"
	"github.com/bquezada-bit/Silvacentinel/internal/complaint"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"
	"github.com/bquezada-bit/Silvacentinel/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// noticeKeys maps the recoverable service errors to the localized notice
// shown after redirecting back.
var noticeKeys = []struct {
	err   error
	key   string
	level string
}{
	{complaint.ErrNotPending, "complaint_not_pending_edit", LevelError},
	{complaint.ErrInvalidStatus, "invalid_status", LevelError},
	{complaint.ErrInvalidPriority, "invalid_priority", LevelError},
	{complaint.ErrNoChanges, "no_changes", LevelInfo},
	{account.ErrInvalidRole, "invalid_role", LevelError},
	{account.ErrSelfDeactivate, "self_deactivate", LevelError},
}

// fail answers err. back is where recoverable errors redirect to.
func (h *Handler) fail(c *gin.Context, err error, back string) {
	if ve, ok := validation.As(err); ok {
		addNotice(c, LevelError, h.text(c, "form_invalid"))
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"errores": ve.Fields,
			"notices": takeNotices(c),
		})
		return
	}

	switch {
	case errors.Is(err, complaint.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		h.notFound(c, "complaint_not_found")
		return
	case errors.Is(err, account.ErrNotFound):
		h.notFound(c, "account_not_found")
		return
	case errors.Is(err, complaint.ErrForbidden), errors.Is(err, account.ErrForbidden):
		addNotice(c, LevelError, h.text(c, "permission_denied"))
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	for _, n := range noticeKeys {
		if errors.Is(err, n.err) {
			addNotice(c, n.level, h.text(c, n.key))
			c.Redirect(http.StatusSeeOther, back)
			return
		}
	}

	requestLog(c).Error("request error", zap.Error(err), zap.String("path", c.Request.URL.Path))
	addNotice(c, LevelError, h.text(c, "generic_error"))
	c.JSON(http.StatusInternalServerError, gin.H{"error": h.text(c, "generic_error"), "notices": takeNotices(c)})
}

func (h *Handler) notFound(c *gin.Context, key string) {
	c.JSON(http.StatusNotFound, gin.H{"error": h.text(c, key), "notices": takeNotices(c)})
}

// redirectWith queues a notice and sends the browser to location.
func redirectWith(c *gin.Context, location, level, message string) {
	addNotice(c, level, message)
	c.Redirect(http.StatusSeeOther, location)
}
