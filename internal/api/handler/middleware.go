package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/logger"
	"github.com/bquezada-bit/Silvacentinel/internal/metrics"
	"github.com/bquezada-bit/Silvacentinel/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	accountKey = "silva.account"
	sessionKey = "silva.session"
	loggerKey  = "silva.logger"
)

// RequestLogger tags the request with an id, logs it once done and feeds
// the HTTP metrics.
func (h *Handler) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		log := logger.WithRequestID(h.Log, requestID)
		c.Set(loggerKey, log)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("ip", c.ClientIP()),
		}
		if a := CurrentAccount(c); a != nil {
			fields = append(fields, zap.Uint("account_id", a.ID))
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// Authenticate resolves the session cookie into the current account. It
// never rejects; Guard does.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}

		a, sess, err := h.resolveSession(c, token)
		if err != nil {
			requestLog(c).Debug("session rejected", zap.Error(err))
			h.clearSession(c)
			c.Next()
			return
		}
		c.Set(accountKey, a)
		c.Set(sessionKey, sess)
		c.Set(loggerKey, logger.WithAccount(requestLog(c), a.ID, a.Username))
		c.Next()
	}
}

var errSessionInactive = errors.New("session account is inactive")

func (h *Handler) resolveSession(c *gin.Context, token string) (*models.Account, *Session, error) {
	ctx := c.Request.Context()
	sess, err := h.Sessions.Parse(token)
	if err != nil {
		return nil, nil, err
	}
	revoked, err := h.Storage.IsSessionRevoked(ctx, sess.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, errors.New("session revoked")
	}
	a, err := h.Storage.GetAccountByID(ctx, sess.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if !a.Active {
		return nil, nil, errSessionInactive
	}
	return a, sess, nil
}

// Guard lets the request through only when the current account holds cap.
// Anonymous visitors go to the login page, others back to the index.
func (h *Handler) Guard(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := CurrentAccount(c)
		if a == nil {
			addNotice(c, LevelWarning, h.text(c, "login_required"))
			c.Redirect(http.StatusSeeOther, "/login/")
			c.Abort()
			return
		}
		if !a.Can(capability) {
			requestLog(c).Info("permission denied",
				zap.String("capability", capability.String()),
				zap.String("path", c.Request.URL.Path))
			addNotice(c, LevelError, h.text(c, "permission_denied"))
			c.Redirect(http.StatusSeeOther, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentAccount is the account loaded by Authenticate, or nil.
func CurrentAccount(c *gin.Context) *models.Account {
	if v, ok := c.Get(accountKey); ok {
		a, _ := v.(*models.Account)
		return a
	}
	return nil
}

func currentSession(c *gin.Context) *Session {
	if v, ok := c.Get(sessionKey); ok {
		s, _ := v.(*Session)
		return s
	}
	return nil
}

func actor(c *gin.Context) models.Actor {
	return models.Actor{Account: CurrentAccount(c), IP: c.ClientIP()}
}

func requestLog(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

func (h *Handler) lang(c *gin.Context) string {
	return h.Localizer.Lang(c.GetHeader("Accept-Language"))
}

func (h *Handler) text(c *gin.Context, key string, args ...any) string {
	if len(args) == 0 {
		return h.Localizer.GetString(h.lang(c), key)
	}
	return h.Localizer.Format(h.lang(c), key, args...)
}

func (h *Handler) setSession(c *gin.Context, token string, sess *Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, maxAge, "/", "", h.Sessions.secure, true)
}

func (h *Handler) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", h.Sessions.secure, true)
}

// revokeSession denylists the current token until it would have expired.
func (h *Handler) revokeSession(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil || !h.Storage.RedisEnabled() {
		return
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if err := h.Storage.RevokeSession(c.Request.Context(), sess.ID, ttl); err != nil {
		requestLog(c).Warn("revoke session", zap.Error(err))
	}
}
