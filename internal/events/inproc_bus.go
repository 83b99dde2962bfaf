package events

import (
	"context"
	"sync"
)

// inprocBus fans events out to in-process subscribers over buffered
// channels. Used in tests and single-process deployments where Redis is
// not configured.
type inprocBus struct {
	mu          sync.Mutex
	subscribers []chan Event
	closed      bool
}

func NewInProcBus() Bus {
	return &inprocBus{}
}

func (b *inprocBus) Publish(ctx context.Context, evt Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			// a slow subscriber does not block publication; the event is
			// dropped for that subscriber only.
		}
	}
	return nil
}

func (b *inprocBus) StartForwarder(ctx context.Context, onEvent func(Event)) error {
	ch := make(chan Event, 256)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				onEvent(evt)
			}
		}
	}()
	return nil
}

func (b *inprocBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
	return nil
}
