package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublish_CallsHandlersInOrder(t *testing.T) {
	b := NewBus(nil)
	var got []string
	b.Subscribe(func(ctx context.Context, e Event) error {
		got = append(got, "first:"+e.Action)
		return nil
	})
	b.Subscribe(func(ctx context.Context, e Event) error {
		got = append(got, "second:"+e.Action)
		return nil
	})

	b.Publish(context.Background(), Event{Action: ActionCreate, Entity: EntityClient})

	assert.Equal(t, []string{"first:CREATE", "second:CREATE"}, got)
}

func TestPublish_FailingHandlersDoNotStopDelivery(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	b.Subscribe(func(ctx context.Context, e Event) error {
		calls++
		return errors.New("boom")
	})
	b.Subscribe(func(ctx context.Context, e Event) error {
		calls++
		panic("worse")
	})
	b.Subscribe(func(ctx context.Context, e Event) error {
		calls++
		return nil
	})

	assert.NotPanics(t, func() {
		b.Publish(context.Background(), Event{Action: ActionDelete})
	})
	assert.Equal(t, 3, calls)
}

func TestPublish_NoSubscribers(t *testing.T) {
	assert.NotPanics(t, func() {
		NewBus(nil).Publish(context.Background(), Event{})
	})
}
