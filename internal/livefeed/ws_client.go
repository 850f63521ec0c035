package livefeed

import (
	"encoding/json"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketClient is an admin browser connected to /ws/actividad/.
type WebSocketClient struct {
	ID   string
	Conn *websocket.Conn
	Hub  *Hub
	Send chan models.FeedEvent
	Log  *zap.Logger
}

func NewWebSocketClient(id string, conn *websocket.Conn, hub *Hub, log *zap.Logger) *WebSocketClient {
	return &WebSocketClient{
		ID:   id,
		Conn: conn,
		Hub:  hub,
		Send: make(chan models.FeedEvent, 256),
		Log:  log,
	}
}

func (c *WebSocketClient) GetID() string                           { return c.ID }
func (c *WebSocketClient) GetSendChannel() chan<- models.FeedEvent { return c.Send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump only services control frames; the feed is one-way.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Log.Warn("live feed read error", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
	}
}

// writePump writes one JSON text frame per event.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				c.Log.Error("encode live feed event", zap.Error(err))
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
