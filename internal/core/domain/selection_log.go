package domain

import (
	"sync"
	"time"
)

type SelectionAction string

const (
	ActionSelect   SelectionAction = "select"
	ActionDeselect SelectionAction = "deselect"
)

// VendorSelectionEvent is an immutable record of one toggle.
type VendorSelectionEvent struct {
	ID        string
	ItemID    string
	VendorID  string
	Vendor    VendorOffer
	Action    SelectionAction
	Timestamp time.Time
}

// SelectionLog is an append-only record of vendor toggles. Reads are safe from
// any goroutine.
type SelectionLog struct {
	mu     sync.RWMutex
	events []VendorSelectionEvent
}

func NewSelectionLog() *SelectionLog {
	return &SelectionLog{}
}

func (l *SelectionLog) Append(evt VendorSelectionEvent) {
	l.mu.Lock()
	l.events = append(l.events, evt)
	l.mu.Unlock()
}

func (l *SelectionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Events returns a copy of the log in append order.
func (l *SelectionLog) Events() []VendorSelectionEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]VendorSelectionEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *SelectionLog) ForItem(itemID string) []VendorSelectionEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []VendorSelectionEvent
	for _, e := range l.events {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}
	return out
}

// Replay folds the log into the set of vendor ids left selected per item,
// each in order of first appearance. Items whose selections all cancel out are
// omitted.
func (l *SelectionLog) Replay() map[string][]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	order := make(map[string][]string)
	selected := make(map[string]map[string]bool)
	for _, e := range l.events {
		if selected[e.ItemID] == nil {
			selected[e.ItemID] = make(map[string]bool)
		}
		if _, seen := selected[e.ItemID][e.VendorID]; !seen {
			order[e.ItemID] = append(order[e.ItemID], e.VendorID)
		}
		switch e.Action {
		case ActionSelect:
			selected[e.ItemID][e.VendorID] = true
		case ActionDeselect:
			selected[e.ItemID][e.VendorID] = false
		}
	}

	out := make(map[string][]string)
	for itemID, ids := range order {
		for _, id := range ids {
			if selected[itemID][id] {
				out[itemID] = append(out[itemID], id)
			}
		}
	}
	return out
}
