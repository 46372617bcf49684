package pubsub

import (
	"context"
	"testing"
	"time"

	"homeapi-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(device string, sec int) *models.Electricity {
	return &models.Electricity{
		Device:    device,
		Timestamp: time.Date(2024, 6, 1, 12, 0, sec, 0, time.UTC),
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	b := NewBroker[*models.Electricity]()
	assert.NotPanics(t, func() {
		b.Publish(reading("d1", 0))
	})
	assert.Equal(t, 0, b.Subscribers())
}

func TestSubscriberReceivesPublished(t *testing.T) {
	b := NewBroker[*models.Electricity]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, "")
	rec := reading("d1", 0)
	b.Publish(rec)

	select {
	case got := <-ch:
		assert.Equal(t, rec, got)
	case <-time.After(time.Second):
		t.Fatal("expected a delivery")
	}
}

func TestDeviceFilter(t *testing.T) {
	b := NewBroker[*models.Electricity]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	filtered := b.Subscribe(ctx, "d2")
	all := b.Subscribe(ctx, "")

	b.Publish(reading("d1", 0))
	b.Publish(reading("d2", 1))

	got := <-filtered
	assert.Equal(t, "d2", got.Device)
	select {
	case extra := <-filtered:
		t.Fatalf("unexpected extra delivery: %+v", extra)
	default:
	}

	assert.Equal(t, "d1", (<-all).Device)
	assert.Equal(t, "d2", (<-all).Device)
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	b := NewBroker[*models.Electricity]()
	b.Publish(reading("d1", 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx, "")

	select {
	case rec := <-ch:
		t.Fatalf("late subscriber must not see earlier events: %+v", rec)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	b := NewBroker[*models.Electricity]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx, "")

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overfill the buffer without a consumer.
		for i := 0; i < subscriberBuffer*2; i++ {
			b.Publish(reading("d1", i%60))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a lagging subscriber")
	}

	// The subscriber still has a full buffer of the newest events.
	assert.Len(t, ch, subscriberBuffer)
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	b := NewBroker[*models.Electricity]()
	ctx, cancel := context.WithCancel(context.Background())

	ch := b.Subscribe(ctx, "")
	require.Equal(t, 1, b.Subscribers())

	cancel()

	// The channel closes once the cancellation is observed.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				assert.Equal(t, 0, b.Subscribers())
				return
			}
		case <-deadline:
			t.Fatal("channel did not close after cancel")
		}
	}
}

func TestHubHasIndependentBrokers(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	elec := hub.Electricity.Subscribe(ctx, "")
	hub.PlaceCondition.Publish(&models.PlaceCondition{
		Device:    "d1",
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	})

	select {
	case rec := <-elec:
		t.Fatalf("cross-broker delivery: %+v", rec)
	case <-time.After(50 * time.Millisecond):
	}
}
