package port

import "github.com/rl1809/procurement/internal/core/domain"

type Notifier interface {
	// Notify must not block the caller
	Notify(n domain.Notification)
}
