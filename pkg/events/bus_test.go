package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInRegistrationOrder(t *testing.T) {
	b := NewBus(16)
	b.Initialize(context.Background())
	defer b.Shutdown(context.Background())

	var mu sync.Mutex
	var order []int

	for i := 0; i < 3; i++ {
		i := i
		b.On("chunk.ready", func(ctx context.Context, ev models.Event) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	require.NoError(t, b.Emit(models.Event{Type: "chunk.ready"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestBus_WildcardReceivesEveryEvent(t *testing.T) {
	b := NewBus(16)
	b.Initialize(context.Background())
	defer b.Shutdown(context.Background())

	received := make(chan string, 4)
	b.On(Wildcard, func(ctx context.Context, ev models.Event) error {
		received <- ev.Type
		return nil
	})

	require.NoError(t, b.Emit(models.Event{Type: "message.created"}))
	require.NoError(t, b.Emit(models.Event{Type: "question.ready"}))

	assert.Equal(t, "message.created", <-received)
	assert.Equal(t, "question.ready", <-received)
}

func TestBus_EmitFailsFastOnOverflow(t *testing.T) {
	b := NewBus(1)
	// No Initialize: nothing drains the queue, so the second emit overflows.
	require.NoError(t, b.Emit(models.Event{Type: "x"}))

	err := b.Emit(models.Event{Type: "x"})
	require.Error(t, err)

	var apiErr *models.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, models.ErrKindBusOverflow, apiErr.Kind)
}

func TestBus_HandlerFaultDoesNotBlockSiblings(t *testing.T) {
	b := NewBus(16)
	b.Initialize(context.Background())
	defer b.Shutdown(context.Background())

	called := make(chan struct{}, 1)
	b.On("doc.ready", func(ctx context.Context, ev models.Event) error {
		return errors.New("boom")
	})
	b.On("doc.ready", func(ctx context.Context, ev models.Event) error {
		called <- struct{}{}
		return nil
	})

	require.NoError(t, b.Emit(models.Event{Type: "doc.ready"}))

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("second handler was never invoked")
	}
}

func TestBus_Off_UnregistersHandler(t *testing.T) {
	b := NewBus(16)
	b.Initialize(context.Background())
	defer b.Shutdown(context.Background())

	calls := make(chan struct{}, 2)
	ref := b.On("ping", func(ctx context.Context, ev models.Event) error {
		calls <- struct{}{}
		return nil
	})
	b.Off(ref)

	require.NoError(t, b.Emit(models.Event{Type: "ping"}))

	select {
	case <-calls:
		t.Fatal("handler was called after Off")
	case <-time.After(50 * time.Millisecond):
	}
}
