package livefeed

import "github.com/bquezada-bit/Silvacentinel/internal/models"

// Client is one connected viewer of the activity feed.
type Client interface {
	// GetID returns a value unique among connected clients.
	GetID() string
	// GetSendChannel returns the channel the hub delivers events on.
	GetSendChannel() chan<- models.FeedEvent
	// Run starts the client's read and write pumps.
	Run()
	// Close stops the write pump. The hub calls it exactly once.
	Close()
}
