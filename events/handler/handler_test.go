package handler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	calls  []string
	errors []string
}

func (r *recorder) handler(name string, err error) Func {
	return func(_ context.Context, ev any) error {
		r.mu.Lock()
		r.calls = append(r.calls, name+":"+EventName(ev))
		r.mu.Unlock()
		return err
	}
}

func (r *recorder) handleError(name string, ev any, err error) {
	r.mu.Lock()
	r.errors = append(r.errors, name+":"+EventName(ev)+":"+err.Error())
	r.mu.Unlock()
}

func TestCallOrderWithFailingHandler(t *testing.T) {
	r := &recorder{}
	h := New()
	h.HandleError = r.handleError

	h.AddHandler("first", r.handler("first", nil))
	h.AddHandler("second", r.handler("second", errors.New("boom")))
	h.AddHandler("third", r.handler("third", nil))

	h.Call(context.Background(), &gateway.ReadyEvent{})

	assert.Equal(t, []string{
		"first:ReadyEvent",
		"second:ReadyEvent",
		"third:ReadyEvent",
	}, r.calls)
	assert.Equal(t, []string{"second:ReadyEvent:boom"}, r.errors)
}

func TestCallRecoversPanic(t *testing.T) {
	r := &recorder{}
	h := New()
	h.HandleError = r.handleError

	h.AddHandler("panics", func(context.Context, any) error {
		panic("oh no")
	})
	h.AddHandler("after", r.handler("after", nil))

	assert.NotPanics(t, func() {
		h.Call(context.Background(), &gateway.GuildMemberAddEvent{})
	})

	assert.Equal(t, []string{"after:GuildMemberAddEvent"}, r.calls)
	require.Len(t, r.errors, 1)
	assert.Contains(t, r.errors[0], "panics:GuildMemberAddEvent:panic in handler panics: oh no")
}

func TestCallWithoutErrorHandler(t *testing.T) {
	r := &recorder{}
	h := New()

	h.AddHandler("fails", r.handler("fails", errors.New("boom")))
	h.AddHandler("after", r.handler("after", nil))

	h.Call(context.Background(), &gateway.GuildMemberRemoveEvent{})
	assert.Len(t, r.calls, 2)
}

func TestRunProcessesEventsInOrder(t *testing.T) {
	r := &recorder{}
	h := New()
	h.HandleError = r.handleError

	h.AddHandler("a", r.handler("a", errors.New("boom")))
	h.AddHandler("b", r.handler("b", nil))
	h.Freeze()

	events := make(chan any, 3)
	events <- &gateway.ReadyEvent{}
	events <- &gateway.GuildMemberAddEvent{}
	events <- &gateway.GuildMemberRemoveEvent{}
	close(events)

	done := make(chan struct{})
	go func() {
		h.Run(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the event channel was closed")
	}

	assert.Equal(t, []string{
		"a:ReadyEvent", "b:ReadyEvent",
		"a:GuildMemberAddEvent", "b:GuildMemberAddEvent",
		"a:GuildMemberRemoveEvent", "b:GuildMemberRemoveEvent",
	}, r.calls)
	assert.Len(t, r.errors, 3)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx, make(chan any))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the context was cancelled")
	}
}

func TestAddHandlerAfterFreezePanics(t *testing.T) {
	h := New()
	h.AddHandler("one", func(context.Context, any) error { return nil })
	h.Freeze()

	assert.Panics(t, func() {
		h.AddHandler("two", func(context.Context, any) error { return nil })
	})
	assert.Equal(t, []string{"one"}, h.Names())
}

func TestEventName(t *testing.T) {
	assert.Equal(t, "ReadyEvent", EventName(&gateway.ReadyEvent{}))
	assert.Equal(t, "ReadyEvent", EventName(gateway.ReadyEvent{}))
	assert.Equal(t, "<nil>", EventName(nil))
}

func TestSentryErrorHandlerWithoutHub(t *testing.T) {
	fn := SentryErrorHandler(nil)
	assert.NotPanics(t, func() {
		fn("greet", &gateway.GuildMemberAddEvent{}, errors.New("boom"))
	})
}

func TestSentryErrorHandlerWithHub(t *testing.T) {
	client, err := sentry.NewClient(sentry.ClientOptions{})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())

	fn := SentryErrorHandler(hub)
	assert.NotPanics(t, func() {
		fn("greet", &gateway.GuildMemberAddEvent{}, errors.New("boom"))
	})
}
