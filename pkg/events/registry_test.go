package events

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSocket struct{ addr string }

func (f fakeSocket) RemoteAddr() string { return f.addr }

func TestRegistry_DeliversOnlyToSubscribedOriginatingConnection(t *testing.T) {
	b := NewBus(16)
	b.Initialize(context.Background())
	defer b.Shutdown(context.Background())

	r := NewRegistry(8, time.Second)
	r.Attach(b)

	r.Connect("conn-1", "doc-1", models.ScopeDocument, fakeSocket{})
	r.Connect("conn-2", "doc-1", models.ScopeDocument, fakeSocket{})
	r.Subscribe("conn-1", "chunk.ready")
	// conn-2 never subscribes to chunk.ready.

	require.NoError(t, b.Emit(models.Event{
		Type: "chunk.ready", DocumentID: "doc-1", ConnectionID: "conn-1",
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, ok := r.Next(ctx, "conn-1")
	require.True(t, ok)
	assert.Equal(t, "chunk.ready", ev.Type)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	_, ok = r.Next(ctx2, "conn-2")
	assert.False(t, ok, "conn-2 should not receive an event it never subscribed to")
}

func TestRegistry_IgnoresEventsForOtherDocuments(t *testing.T) {
	b := NewBus(16)
	b.Initialize(context.Background())
	defer b.Shutdown(context.Background())

	r := NewRegistry(8, time.Second)
	r.Attach(b)

	r.Connect("conn-1", "doc-1", models.ScopeDocument, fakeSocket{})
	r.Subscribe("conn-1", "chunk.ready")

	require.NoError(t, b.Emit(models.Event{
		Type: "chunk.ready", DocumentID: "doc-2", ConnectionID: "conn-1",
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, ok := r.Next(ctx, "conn-1")
	assert.False(t, ok)
}

func TestRegistry_DisconnectIsIdempotent(t *testing.T) {
	r := NewRegistry(8, time.Second)
	r.Connect("conn-1", "doc-1", models.ScopeDocument, fakeSocket{})

	r.Disconnect("conn-1", "doc-1", models.ScopeDocument)
	assert.NotPanics(t, func() {
		r.Disconnect("conn-1", "doc-1", models.ScopeDocument)
	})
	assert.Equal(t, 0, r.ActiveConnections())
}

func TestRegistry_NextUnblocksOnDisconnect(t *testing.T) {
	r := NewRegistry(8, time.Second)
	r.Connect("conn-1", "doc-1", models.ScopeDocument, fakeSocket{})

	done := make(chan bool, 1)
	go func() {
		_, ok := r.Next(context.Background(), "conn-1")
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	r.Disconnect("conn-1", "doc-1", models.ScopeDocument)

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after Disconnect")
	}
}

func TestRegistry_DropsEventWhenQueueFullAfterPutTimeout(t *testing.T) {
	b := NewBus(16)
	b.Initialize(context.Background())
	defer b.Shutdown(context.Background())

	r := NewRegistry(1, 20*time.Millisecond)
	r.Attach(b)
	r.Connect("conn-1", "doc-1", models.ScopeDocument, fakeSocket{})
	r.Subscribe("conn-1", "chunk.ready")

	// Fill the single-capacity queue without draining it.
	require.NoError(t, b.Emit(models.Event{Type: "chunk.ready", DocumentID: "doc-1", ConnectionID: "conn-1"}))
	require.Eventually(t, func() bool { return len(pendingQueue(r, "conn-1")) == 1 }, time.Second, 5*time.Millisecond)

	// Second emit should be dropped after the put-timeout rather than block forever.
	require.NoError(t, b.Emit(models.Event{Type: "chunk.ready", DocumentID: "doc-1", ConnectionID: "conn-1"}))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, len(pendingQueue(r, "conn-1")))
}

func pendingQueue(r *Registry, connID string) chan models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connections[connID].queue
}
