package models

import "time"

// FeedEvent is what the live activity feed pushes to connected admins.
type FeedEvent struct {
	LogID  uint      `json:"log_id"`
	Actor  string    `json:"usuario"`
	Action string    `json:"accion"`
	IP     string    `json:"ip_origen"`
	At     time.Time `json:"fecha"`
}

// NewFeedEvent builds the event for a committed log entry. actor may be
// empty for anonymous actions.
func NewFeedEvent(e *ActivityLogEntry, actor string) FeedEvent {
	return FeedEvent{
		LogID:  e.ID,
		Actor:  actor,
		Action: e.Action,
		IP:     e.IP,
		At:     e.CreatedAt,
	}
}
