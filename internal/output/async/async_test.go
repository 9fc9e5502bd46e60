package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/tierlog/internal/model"
)

type mockOutput struct {
	mu     sync.Mutex
	events []model.Event
	closed bool
	err    error         // if set, Write returns this
	delay  time.Duration // if >0, Write sleeps first
}

func (m *mockOutput) Write(_ context.Context, event model.Event) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	return m.err
}

func (m *mockOutput) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func testEvent(name string) model.Event {
	return model.Event{ID: "evt", Group: "test", GroupVersion: 1, Name: name}
}

func TestEventsFlowThroughInOrder(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, a.Write(context.Background(), testEvent(name)))
	}
	require.NoError(t, a.Close())

	require.Len(t, inner.events, 3)
	for i, name := range []string{"a", "b", "c"} {
		assert.Equal(t, name, inner.events[i].Name)
	}
	assert.True(t, inner.closed)
}

func TestBackpressureBlocks(t *testing.T) {
	inner := &mockOutput{delay: 50 * time.Millisecond}
	a := New(inner, WithBufferSize(1))
	defer a.Close()

	require.NoError(t, a.Write(context.Background(), testEvent("first")))

	done := make(chan struct{})
	go func() {
		_ = a.Write(context.Background(), testEvent("second"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Write blocked indefinitely (expected eventual unblock via drain)")
	}
}

func TestWriteHonoursContextWhenFull(t *testing.T) {
	block := make(chan struct{})
	inner := &blockingOutput{release: block}
	a := New(inner, WithBufferSize(0))

	// The drain goroutine takes this one and blocks inside the inner write.
	require.NoError(t, a.Write(context.Background(), testEvent("held")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := a.Write(ctx, testEvent("late"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
	require.NoError(t, a.Close())
}

type blockingOutput struct {
	release chan struct{}
}

func (b *blockingOutput) Write(context.Context, model.Event) error {
	<-b.release
	return nil
}

func (b *blockingOutput) Close() error { return nil }

func TestDropOnFull(t *testing.T) {
	inner := &mockOutput{delay: 100 * time.Millisecond}
	a := New(inner, WithBufferSize(1), WithDropOnFull())

	before := testutil.ToFloat64(droppedEvents.WithLabelValues(t.Name()))
	for i := 0; i < 20; i++ {
		require.NoError(t, a.Write(context.Background(), testEvent(t.Name())))
	}
	require.NoError(t, a.Close())

	delivered := inner.eventCount()
	assert.Less(t, delivered, 20, "expected some events to be dropped")
	assert.Positive(t, delivered)
	dropped := testutil.ToFloat64(droppedEvents.WithLabelValues(t.Name())) - before
	assert.Equal(t, float64(20-delivered), dropped)
}

func TestCloseDrainsRemaining(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(100))

	for i := 0; i < 50; i++ {
		require.NoError(t, a.Write(context.Background(), testEvent("drain")))
	}
	require.NoError(t, a.Close())
	assert.Equal(t, 50, inner.eventCount())
}

func TestErrorCallbackInvoked(t *testing.T) {
	inner := &mockOutput{err: errors.New("write failed")}
	var errorCount atomic.Int64
	a := New(inner, WithBufferSize(16), WithOnError(func(error) { errorCount.Add(1) }))

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Write(context.Background(), testEvent("failing")))
	}
	require.NoError(t, a.Close())
	assert.Equal(t, int64(5), errorCount.Load())
}

func TestNoGoroutineLeakAfterClose(t *testing.T) {
	a := New(&mockOutput{}, WithBufferSize(16))
	require.NoError(t, a.Write(context.Background(), testEvent("leak-check")))
	require.NoError(t, a.Close())

	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("drain goroutine did not exit after Close")
	}
}

func TestCloseIdempotentAndWriteAfterClose(t *testing.T) {
	a := New(&mockOutput{}, WithBufferSize(16))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Write(context.Background(), testEvent("late")), ErrClosed)
}
