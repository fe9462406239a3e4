// Package identity provides the signed-in user to the wizard and the
// submission pipeline. Instead of ambient global session state, a Provider is
// injected at construction time and consumers subscribe to changes.
package identity

import (
	"context"
	"sync"
)

// Identity is a signed-in user.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Provider exposes the current identity and notifies subscribers of changes.
type Provider interface {
	// CurrentIdentity returns nil when nobody is signed in.
	CurrentIdentity(ctx context.Context) (*Identity, error)
	// Subscribe returns a channel receiving every subsequent change (nil on
	// sign-out) and a function that ends the subscription.
	Subscribe() (<-chan *Identity, func())
}

// Broadcaster is an in-memory Provider whose identity is set explicitly, for
// example by HTTP middleware after verifying a bearer token.
type Broadcaster struct {
	mu      sync.RWMutex
	current *Identity
	nextID  int
	subs    map[int]chan *Identity
}

// NewBroadcaster returns a Broadcaster with nobody signed in.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan *Identity)}
}

// CurrentIdentity implements Provider.
func (b *Broadcaster) CurrentIdentity(ctx context.Context) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.current == nil {
		return nil, nil
	}
	id := *b.current
	return &id, nil
}

// Set replaces the current identity and notifies subscribers when it changed.
func (b *Broadcaster) Set(id *Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if same(b.current, id) {
		return
	}
	if id != nil {
		cp := *id
		id = &cp
	}
	b.current = id
	for _, ch := range b.subs {
		// Subscribers only care about the latest value: drop a stale pending
		// notification rather than block the setter.
		select {
		case <-ch:
		default:
		}
		ch <- id
	}
}

// Subscribe implements Provider.
func (b *Broadcaster) Subscribe() (<-chan *Identity, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := b.nextID
	b.nextID++
	ch := make(chan *Identity, 1)
	b.subs[key] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, key)
			close(ch)
		})
	}
}

func same(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
