// Package handler dispatches gateway events to an ordered list of handlers.
package handler

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"emperror.dev/errors"
	"github.com/starshine-sys/greeter/common/log"
)

// Func handles a single event.
// Handlers type switch on the event and return nil for events they aren't interested in.
type Func func(ctx context.Context, ev any) error

// Handler calls every registered handler for each event, in registration order.
// A failing handler never stops the handlers after it.
type Handler struct {
	mu       sync.RWMutex
	handlers []handler
	frozen   bool

	// HandleError is called with every error returned by (or panic recovered from) a handler.
	// If nil, errors are logged.
	HandleError func(name string, ev any, err error)
}

type handler struct {
	name string
	fn   Func
}

// New creates a new Handler.
func New() *Handler {
	return &Handler{}
}

// AddHandler adds the given function handler.
// It panics if called after Freeze.
func (h *Handler) AddHandler(name string, fn Func) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frozen {
		panic(fmt.Sprintf("handler %q added after the handler list was frozen", name))
	}

	h.handlers = append(h.handlers, handler{name: name, fn: fn})
}

// Freeze stops any further handlers from being added.
func (h *Handler) Freeze() {
	h.mu.Lock()
	h.frozen = true
	h.mu.Unlock()
}

// Names returns the registered handler names, in call order.
func (h *Handler) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.handlers))
	for _, hn := range h.handlers {
		names = append(names, hn.name)
	}
	return names
}

// Call calls every handler with the given event.
func (h *Handler) Call(ctx context.Context, ev any) {
	h.mu.RLock()
	handlers := h.handlers
	h.mu.RUnlock()

	for _, hn := range handlers {
		if err := h.call(ctx, hn, ev); err != nil {
			h.handleError(hn.name, ev, err)
		}
	}
}

func (h *Handler) call(ctx context.Context, hn handler, ev any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic in handler %s: %v", hn.name, r)
		}
	}()

	return hn.fn(ctx, ev)
}

func (h *Handler) handleError(name string, ev any, err error) {
	if h.HandleError != nil {
		h.HandleError(name, ev, err)
		return
	}

	log.Errorw("Event handler failed", "handler", name, "event", EventName(ev), "error", err)
}

// Run calls handlers for every event received on events, one event at a time.
// It returns when events is closed or ctx is cancelled.
func (h *Handler) Run(ctx context.Context, events <-chan any) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			h.Call(ctx, ev)
		}
	}
}

// EventName returns the event's type name.
func EventName(ev any) string {
	if ev == nil {
		return "<nil>"
	}

	t := reflect.TypeOf(ev)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
