package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const flashCookie = "silva_flash"

// Notice levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notice is a one-shot message shown on the next rendered view.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

const noticesKey = "silva.notices"

// addNotice queues n for the next view. Notices added during the request
// are also returned by takeNotices if the same request renders a view.
func addNotice(c *gin.Context, level, message string) {
	list := append(pendingNotices(c), Notice{Level: level, Message: message})
	c.Set(noticesKey, list)
	writeFlash(c, list)
}

// takeNotices returns and clears every pending notice.
func takeNotices(c *gin.Context) []Notice {
	list := pendingNotices(c)
	c.Set(noticesKey, []Notice(nil))
	if _, err := c.Cookie(flashCookie); err == nil || len(list) > 0 {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	}
	if list == nil {
		list = []Notice{}
	}
	return list
}

func pendingNotices(c *gin.Context) []Notice {
	if v, ok := c.Get(noticesKey); ok {
		list, _ := v.([]Notice)
		return list
	}
	list := readFlash(c)
	c.Set(noticesKey, list)
	return list
}

func readFlash(c *gin.Context) []Notice {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var list []Notice
	if json.Unmarshal(data, &list) != nil {
		return nil
	}
	return list
}

func writeFlash(c *gin.Context, list []Notice) {
	data, err := json.Marshal(list)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, base64.RawURLEncoding.EncodeToString(data), 0, "/", "", false, true)
}
