// Package pubsub is the in-process change fan-out: every stored reading is
// broadcast to live subscribers on a bounded, best-effort channel per record
// type. Publishing never blocks and never fails the writing request.
package pubsub

import (
	"context"
	"sync"

	"homeapi-backend/models"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls further behind loses its oldest unread events, not the publisher.
const subscriberBuffer = 100

type subscriber[T models.Item] struct {
	ch     chan T
	device string
}

// Broker broadcasts records of one type to any number of subscribers.
type Broker[T models.Item] struct {
	mu   sync.RWMutex
	subs map[int]*subscriber[T]
	next int
}

// NewBroker creates an empty broker.
func NewBroker[T models.Item]() *Broker[T] {
	return &Broker[T]{subs: make(map[int]*subscriber[T])}
}

// Publish delivers a record to every current subscriber whose device filter
// matches. With zero subscribers it is a no-op; a full subscriber drops its
// oldest unread event to make room. Publish never blocks.
func (b *Broker[T]) Publish(rec T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.device != "" && sub.device != rec.PK() {
			continue
		}
		select {
		case sub.ch <- rec:
		default:
			// Lagging subscriber: evict the oldest unread event. If the
			// consumer raced us for it, the second send may still lose;
			// delivery is best-effort.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- rec:
			default:
			}
		}
	}
}

// Subscribe registers a new subscriber. When device is non-empty only
// records for that device are delivered; everything else is dropped
// silently. The returned channel is closed when ctx is cancelled; records
// published before Subscribe are never delivered.
func (b *Broker[T]) Subscribe(ctx context.Context, device string) <-chan T {
	sub := &subscriber[T]{
		ch:     make(chan T, subscriberBuffer),
		device: device,
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch
}

// Subscribers reports the current subscriber count.
func (b *Broker[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Hub bundles one broker per record type capable of live updates.
type Hub struct {
	Electricity      *Broker[*models.Electricity]
	FinalElectricity *Broker[*models.FinalElectricity]
	PlaceCondition   *Broker[*models.PlaceCondition]
}

// NewHub creates the three brokers.
func NewHub() *Hub {
	return &Hub{
		Electricity:      NewBroker[*models.Electricity](),
		FinalElectricity: NewBroker[*models.FinalElectricity](),
		PlaceCondition:   NewBroker[*models.PlaceCondition](),
	}
}
