package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_OnEmit(t *testing.T) {
	bus := NewEventBus(4, nil)

	var got []Event
	bus.On(NewReservation, func(e Event) error {
		got = append(got, e)
		return nil
	})
	bus.On(NewReservation, func(Event) error { return errors.New("ignored") })

	bus.Emit(NewReservation, "r1")
	bus.Emit(CancelReservation, "r2")

	require.Len(t, got, 1)
	assert.Equal(t, NewReservation, got[0].Type)
	assert.Equal(t, "r1", got[0].Payload)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestEventBus_ConnectSnapshotThenLive(t *testing.T) {
	bus := NewEventBus(4, nil)
	bus.SetSnapshot(func(context.Context) (any, error) {
		return []string{"a", "b"}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, disconnect, err := bus.Connect(ctx)
	require.NoError(t, err)
	defer disconnect()

	first := <-ch
	assert.Equal(t, Snapshot, first.Type)
	assert.Equal(t, []string{"a", "b"}, first.Payload)

	bus.Emit(ConfirmReservation, "r1")
	live := <-ch
	assert.Equal(t, ConfirmReservation, live.Type)
	assert.Equal(t, 1, bus.Observers())
}

func TestEventBus_SnapshotError(t *testing.T) {
	bus := NewEventBus(4, nil)
	bus.SetSnapshot(func(context.Context) (any, error) {
		return nil, errors.New("store down")
	})

	_, _, err := bus.Connect(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, bus.Observers())
}

func TestEventBus_EventDuringSnapshotIsDelivered(t *testing.T) {
	bus := NewEventBus(4, nil)
	bus.SetSnapshot(func(context.Context) (any, error) {
		state := []string{}
		// A write lands after state was read but before the observer is live.
		bus.Emit(NewReservation, "r1")
		return state, nil
	})

	ch, disconnect, err := bus.Connect(context.Background())
	require.NoError(t, err)
	defer disconnect()

	first := <-ch
	assert.Equal(t, Snapshot, first.Type)
	assert.Equal(t, []string{}, first.Payload)

	select {
	case next := <-ch:
		assert.Equal(t, NewReservation, next.Type)
		assert.Equal(t, "r1", next.Payload)
	case <-time.After(time.Second):
		t.Fatal("event published during snapshot was lost")
	}

	bus.Emit(CancelReservation, "r1")
	assert.Equal(t, CancelReservation, (<-ch).Type)
}

func TestEventBus_PendingQueueIsBounded(t *testing.T) {
	bus := NewEventBus(2, nil)
	bus.SetSnapshot(func(context.Context) (any, error) {
		for i := 0; i < 5; i++ {
			bus.Emit(UpdateReservation, i)
		}
		return "state", nil
	})

	ch, disconnect, err := bus.Connect(context.Background())
	require.NoError(t, err)
	defer disconnect()

	assert.Equal(t, Snapshot, (<-ch).Type)
	assert.Equal(t, 0, (<-ch).Payload)
	assert.Equal(t, 1, (<-ch).Payload)
	assert.Equal(t, 0, len(ch))
}

func TestEventBus_BroadcastToAll(t *testing.T) {
	bus := NewEventBus(4, nil)
	ctx := context.Background()

	chA, stopA, err := bus.Connect(ctx)
	require.NoError(t, err)
	defer stopA()
	chB, stopB, err := bus.Connect(ctx)
	require.NoError(t, err)
	defer stopB()

	bus.Emit(UpdateReservation, "r1")
	assert.Equal(t, UpdateReservation, (<-chA).Type)
	assert.Equal(t, UpdateReservation, (<-chB).Type)
}

func TestEventBus_SlowObserverDoesNotBlock(t *testing.T) {
	bus := NewEventBus(1, nil)

	ch, disconnect, err := bus.Connect(context.Background())
	require.NoError(t, err)
	defer disconnect()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Emit(NewReservation, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow observer")
	}
	assert.LessOrEqual(t, len(ch), 2)
}

func TestEventBus_DisconnectOnContextEnd(t *testing.T) {
	bus := NewEventBus(4, nil)
	ctx, cancel := context.WithCancel(context.Background())

	ch, _, err := bus.Connect(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context end")
	}
	assert.Equal(t, 0, bus.Observers())

	// Publishing after disconnect must not panic.
	bus.Emit(NewReservation, "r1")
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, subject string, msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, msg)
	return nil
}

func TestForward(t *testing.T) {
	bus := NewEventBus(4, nil)
	pub := &fakePublisher{}
	Forward(bus, pub, "reservations")

	bus.Emit(NewReservation, map[string]any{"id": "r1"})
	bus.Emit(CancelReservation, map[string]any{"id": "r1"})
	bus.Emit(OrderStatus, map[string]any{"id": "o1"})

	require.Equal(t, []string{"reservations.newReservation", "reservations.cancelReservation"}, pub.subjects)

	var decoded struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, NewReservation, decoded.Type)
	assert.Equal(t, "r1", decoded.Payload["id"])
}
