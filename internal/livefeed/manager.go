// Package livefeed fans committed activity log entries out to the admins
// watching the live monitor over websockets.
package livefeed

import (
	"context"

	"github.com/bquezada-bit/Silvacentinel/internal/metrics"
	"github.com/bquezada-bit/Silvacentinel/internal/models"

	"go.uber.org/zap"
)

// Hub owns the set of connected clients. All mutations go through its
// channels and happen on the Run goroutine.
type Hub struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	EventsCh     chan models.FeedEvent

	source Subscriber
	log    *zap.Logger
	done   chan struct{}
}

// NewHub creates a hub fed by source. source may be nil, in which case only
// events pushed on EventsCh are delivered.
func NewHub(source Subscriber, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		EventsCh:     make(chan models.FeedEvent, 64),
		source:       source,
		log:          log,
		done:         make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.source != nil {
		go h.listen(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for id, c := range h.Clients {
				h.drop(id, c)
			}
			return

		case c := <-h.RegisterCh:
			h.Clients[c.GetID()] = c
			metrics.LiveFeedClients.Inc()
			h.log.Debug("live feed client registered", zap.String("client_id", c.GetID()))

		case c := <-h.UnregisterCh:
			if existing, ok := h.Clients[c.GetID()]; ok && existing == c {
				h.drop(c.GetID(), c)
			}

		case e := <-h.EventsCh:
			for id, c := range h.Clients {
				select {
				case c.GetSendChannel() <- e:
				default:
					h.log.Warn("live feed client too slow, disconnecting", zap.String("client_id", id))
					h.drop(id, c)
				}
			}
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register adds c unless the hub has already stopped. It reports whether
// the client was accepted.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c unless the hub has already stopped.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

func (h *Hub) drop(id string, c Client) {
	delete(h.Clients, id)
	c.Close()
	metrics.LiveFeedClients.Dec()
}
