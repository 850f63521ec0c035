package livefeed

import (
	"context"
	"encoding/json"

	"github.com/bquezada-bit/Silvacentinel/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Subscriber opens the Redis subscription to the activity channel.
type Subscriber interface {
	SubscribeActivity(ctx context.Context) *redis.PubSub
}

// listen forwards every published activity entry to the hub.
func (h *Hub) listen(ctx context.Context) {
	pubsub := h.source.SubscribeActivity(ctx)
	if pubsub == nil {
		h.log.Warn("live feed has no redis subscription")
		return
	}
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var e models.FeedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				h.log.Error("bad live feed payload", zap.Error(err))
				continue
			}
			select {
			case h.EventsCh <- e:
			case <-ctx.Done():
				return
			}
		}
	}
}
