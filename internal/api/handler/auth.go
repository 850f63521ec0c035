package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bquezada-bit/Silvacentinel/internal/account"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginPage shows the login form; signed-in visitors go to the index.
func (h *Handler) LoginPage(c *gin.Context) {
	if CurrentAccount(c) != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	h.render(c, gin.H{"next": safeNext(c.Query("next"))})
}

// Login checks the credentials and starts a session.
func (h *Handler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	remember := checkbox(c.PostForm("remember_me"))

	a, err := h.Accounts.Login(c.Request.Context(), username, password, c.ClientIP())
	if err != nil {
		var status int
		var key string
		switch {
		case errors.Is(err, account.ErrInvalidCredentials):
			status, key = http.StatusUnauthorized, "invalid_credentials"
		case errors.Is(err, account.ErrInactive):
			status, key = http.StatusForbidden, "account_inactive"
		case errors.Is(err, account.ErrTooManyAttempts):
			status, key = http.StatusTooManyRequests, "too_many_attempts"
		default:
			h.fail(c, err, "/login/")
			return
		}
		addNotice(c, LevelError, h.text(c, key))
		c.JSON(status, gin.H{"username": username, "notices": takeNotices(c)})
		return
	}

	token, sess, err := h.Sessions.Issue(a.ID, remember)
	if err != nil {
		h.fail(c, err, "/login/")
		return
	}
	h.setSession(c, token, sess)

	name := a.FirstName
	if name == "" {
		name = a.Username
	}
	redirectWith(c, safeNext(c.PostForm("next")), LevelSuccess, h.text(c, "welcome", name))
}

// Logout ends the session. Without Redis the token stays valid until it
// expires; only the cookie is cleared.
func (h *Handler) Logout(c *gin.Context) {
	a := CurrentAccount(c)
	if a == nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if err := h.Accounts.Logout(c.Request.Context(), actor(c)); err != nil {
		requestLog(c).Warn("log logout", zap.Error(err))
	}
	h.revokeSession(c)
	h.clearSession(c)
	redirectWith(c, "/", LevelInfo, h.text(c, "goodbye", a.Username))
}

func (h *Handler) RegisterPage(c *gin.Context) {
	if CurrentAccount(c) != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	h.render(c, gin.H{})
}

func (h *Handler) Register(c *gin.Context) {
	var in account.RegisterInput
	if err := c.ShouldBind(&in); err != nil {
		h.fail(c, err, "/registro/")
		return
	}
	if _, err := h.Accounts.Register(c.Request.Context(), in, c.ClientIP()); err != nil {
		h.fail(c, err, "/registro/")
		return
	}
	redirectWith(c, "/login/", LevelSuccess, h.text(c, "registered"))
}

// safeNext only allows local absolute paths.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	return next
}

func checkbox(v string) bool {
	switch strings.ToLower(v) {
	case "on", "1", "true", "yes":
		return true
	}
	return false
}
