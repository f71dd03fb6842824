package channel

import (
	"context"
	"slices"
	"sync"
)

// Broker carries channel traffic between processes.
type Broker interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	// Subscribe returns once the broker has acknowledged the interest.
	Subscribe(ctx context.Context, subject string, fn func(payload []byte)) (Subscription, error)
}

type Subscription interface {
	Unsubscribe() error
}

// LocalBroker fans messages out to subscribers within this process.
type LocalBroker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]*localSubscription
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[string][]*localSubscription)}
}

type localSubscription struct {
	broker  *LocalBroker
	subject string
	id      uint64
	fn      func([]byte)
}

func (b *LocalBroker) Publish(ctx context.Context, subject string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	subs := b.subs[subject]
	b.mu.RUnlock()
	for _, sub := range subs {
		sub.fn(slices.Clone(payload))
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, subject string, fn func([]byte)) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &localSubscription{broker: b, subject: subject, id: b.nextID, fn: fn}
	b.subs[subject] = append(slices.Clone(b.subs[subject]), sub)
	return sub, nil
}

func (s *localSubscription) Unsubscribe() error {
	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[s.subject] = slices.DeleteFunc(slices.Clone(b.subs[s.subject]), func(other *localSubscription) bool {
		return other.id == s.id
	})
	if len(b.subs[s.subject]) == 0 {
		delete(b.subs, s.subject)
	}
	return nil
}
