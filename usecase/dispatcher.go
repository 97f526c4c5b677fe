package usecase

import (
	"context"
	"fmt"
	"sync"
)

// RepairHandler replays one journaled operation from its encoded payload.
type RepairHandler func(ctx context.Context, payload []byte) error

// Dispatcher routes journaled operations to the use case that can replay them.
type Dispatcher struct {
	handlers map[string]RepairHandler
	mu       sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]RepairHandler),
	}
}

func (d *Dispatcher) Register(operation string, handler RepairHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[operation] = handler
}

func (d *Dispatcher) Dispatch(ctx context.Context, operation string, payload []byte) error {
	d.mu.RLock()
	handler, ok := d.handlers[operation]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("repair handler %s not registered", operation)
	}
	return handler(ctx, payload)
}
