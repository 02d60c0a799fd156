package notify

import (
	"context"
	"log"
	"sync"

	"github.com/rl1809/procurement/internal/core/domain"
)

type LogSink struct{}

func (LogSink) Send(ctx context.Context, n domain.Notification) error {
	if n.ItemID != "" {
		log.Printf("[%s] %s item=%s: %s", n.Level, n.Code, n.ItemID, n.Message)
		return nil
	}
	log.Printf("[%s] %s: %s", n.Level, n.Code, n.Message)
	return nil
}

// RecentSink keeps the last few notifications for polling clients.
type RecentSink struct {
	mu    sync.Mutex
	limit int
	items []domain.Notification
}

func NewRecentSink(limit int) *RecentSink {
	if limit <= 0 {
		limit = 100
	}
	return &RecentSink{limit: limit}
}

func (r *RecentSink) Send(ctx context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	if over := len(r.items) - r.limit; over > 0 {
		r.items = append([]domain.Notification(nil), r.items[over:]...)
	}
	return nil
}

// Recent returns the newest notifications, oldest first.
func (r *RecentSink) Recent() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.items...)
}
