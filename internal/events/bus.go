// Package events carries domain events from the services to their
// subscribers (the audit trail today).
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/logging"
)

// Actions recorded in the audit trail.
const (
	ActionCreate   = "CREATE"
	ActionUpdate   = "UPDATE"
	ActionDelete   = "DELETE"
	ActionStatus   = "STATUS_CHANGE"
	ActionPayment  = "PAYMENT"
	ActionLogin    = "LOGIN"
	ActionLogout   = "LOGOUT"
	ActionSetup    = "SETUP"
	ActionRestore  = "RESTORE"
	ActionPwdReset = "PASSWORD_RESET"
	ActionSettings = "SETTINGS"
)

// Entities recorded in the audit trail.
const (
	EntityOrganization = "organization"
	EntityUser         = "user"
	EntityClient       = "client"
	EntityRepair       = "repair"
	EntitySettings     = "settings"
)

type Event struct {
	Action         string
	Entity         string
	EntityID       string
	Details        string
	OrganizationID string
	UserID         string
	At             time.Time
}

type Handler func(ctx context.Context, e Event) error

// Bus delivers events synchronously to handlers in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	log      logging.Logger
}

func NewBus(log logging.Logger) *Bus {
	if log == nil {
		log = logging.Nop()
	}
	return &Bus{log: log}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish never fails: handler errors and panics are logged.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := b.call(ctx, h, e); err != nil {
			b.log.Warn(ctx, "event handler failed", "action", e.Action, "entity", e.Entity, "error", err)
		}
	}
}

func (b *Bus) call(ctx context.Context, h Handler, e Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h(ctx, e)
}
