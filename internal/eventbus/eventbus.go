package eventbus

import (
	"context"
	"reflect"
	"sync"
)

// Handler processes events of type T.
type Handler[T any] func(context.Context, T)

// Bus is a small in-process event dispatcher. It is passed explicitly to the
// components that publish or subscribe; there is no process-global bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]func(context.Context, any)
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]func(context.Context, any))}
}

// Subscribe registers h for events of type T on b. The returned function
// removes the subscription. A nil bus accepts subscriptions as no-ops.
func Subscribe[T any](b *Bus, h Handler[T]) (unsubscribe func()) {
	if b == nil {
		return func() {}
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	wrapped := func(ctx context.Context, v any) { h(ctx, v.(T)) }

	b.mu.Lock()
	b.handlers[t] = append(b.handlers[t], wrapped)
	idx := len(b.handlers[t]) - 1
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			hs := b.handlers[t]
			if idx < len(hs) {
				b.handlers[t] = append(hs[:idx:idx], hs[idx+1:]...)
			}
		})
	}
}

// Publish dispatches e to every handler registered for its type. Publishing
// on a nil bus is a no-op, so instrumentation can stay optional.
func Publish[T any](ctx context.Context, b *Bus, e T) {
	if b == nil {
		return
	}
	t := reflect.TypeOf(e)
	b.mu.RLock()
	hs := append([](func(context.Context, any))(nil), b.handlers[t]...)
	b.mu.RUnlock()
	for _, h := range hs {
		h(ctx, e)
	}
}
