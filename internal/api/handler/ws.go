package handler

import (
	"net/http"

	"github.com/bquezada-bit/Silvacentinel/internal/livefeed"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin only; the feed is read by the logs page.
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

// ActivityFeed upgrades to a websocket streaming new activity log entries.
// It is only mounted for admins and answers 404 when the feed is disabled.
func (h *Handler) ActivityFeed(c *gin.Context) {
	if h.Hub == nil {
		h.notFound(c, "live_feed_disabled")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		requestLog(c).Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := livefeed.NewWebSocketClient(uuid.NewString(), conn, h.Hub, requestLog(c))
	if !h.Hub.Register(client) {
		_ = conn.Close()
		return
	}
	client.Run()
}
