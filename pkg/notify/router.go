package notify

import (
	"context"
	"fmt"
	"sync"
)

// Adapter is a per-transport delivery implementation. Send returns
// confirmed=true only when the transport acknowledged receipt
// synchronously; a nil error with confirmed=false means the message was
// handed off but receipt is unknown. Failures should be classified with
// Transient or Permanent; unclassified errors are treated as transient.
type Adapter interface {
	// Channel reports which transport this adapter serves.
	Channel() Channel

	// Send delivers one notification to its recipient.
	Send(ctx context.Context, n Notification) (confirmed bool, err error)
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc struct {
	Ch Channel
	Fn func(ctx context.Context, n Notification) (bool, error)
}

func (a AdapterFunc) Channel() Channel { return a.Ch }

func (a AdapterFunc) Send(ctx context.Context, n Notification) (bool, error) {
	return a.Fn(ctx, n)
}

// Router maps a record's channel to its transport adapter. It holds no
// channel-specific logic: adding a channel means registering one adapter.
type Router struct {
	mu       sync.RWMutex
	adapters map[Channel]Adapter
}

// NewRouter creates an empty channel router.
func NewRouter() *Router {
	return &Router{adapters: make(map[Channel]Adapter)}
}

// Register installs an adapter for its channel, replacing any previous one.
// Nil adapters are ignored.
func (r *Router) Register(adapters ...Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range adapters {
		if a == nil {
			continue
		}
		r.adapters[a.Channel()] = a
	}
}

// Channels lists the channels that currently have an adapter.
func (r *Router) Channels() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chs := make([]Channel, 0, len(r.adapters))
	for ch := range r.adapters {
		chs = append(chs, ch)
	}
	return chs
}

// Dispatch invokes the adapter matching the record's channel. A missing
// adapter is a permanent failure: retrying cannot conjure one up, and the
// operator can requeue the record once the adapter is deployed.
func (r *Router) Dispatch(ctx context.Context, n Notification) (bool, error) {
	r.mu.RLock()
	adapter, ok := r.adapters[n.Channel]
	r.mu.RUnlock()

	if !ok {
		return false, Permanent(fmt.Errorf("%w: %s", ErrNoAdapter, n.Channel))
	}

	return adapter.Send(ctx, n)
}
