package channel

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *recorder) HandleMessage(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *recorder) bodies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	for i, msg := range r.msgs {
		out[i] = msg.Body
	}
	return out
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *LocalBroker) {
	t.Helper()
	broker := NewLocalBroker()
	m := NewManager(broker, append([]Option{WithLogger(zaptest.NewLogger(t)), WithSender("test")}, opts...)...)
	t.Cleanup(m.Cleanup)
	return m, broker
}

func TestUnsubscribeWithoutSubscribeSucceeds(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Unsubscribe(context.Background(), "never-subscribed").Get()

	assert.NoError(t, err)
}

func TestHandlerFanOut(t *testing.T) {
	m, _ := newTestManager(t)
	first, second := &recorder{}, &recorder{}
	m.RegisterHandler("x", first)
	m.RegisterHandler("x", second)

	m.Deliver(Message{Channel: "x", Body: "hello"})

	require.Eventually(t, func() bool { return first.count() == 1 && second.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
}

func TestPublishRoundTripThroughBroker(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	rec := &recorder{}
	m.RegisterHandler("lobby", rec)

	_, err := m.Subscribe(ctx, "lobby").Get()
	require.NoError(t, err)
	_, err = m.Publish(ctx, "lobby", "one").Get()
	require.NoError(t, err)
	_, err = m.Publish(ctx, "lobby", "two").Get()
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"one", "two"}, rec.bodies())
	rec.mu.Lock()
	assert.Equal(t, "test", rec.msgs[0].Sender)
	assert.Equal(t, "lobby", rec.msgs[0].Channel)
	rec.mu.Unlock()
}

func TestSubscribeTwiceKeepsOneBrokerSubscription(t *testing.T) {
	m, broker := newTestManager(t)
	ctx := context.Background()

	_, err := m.Subscribe(ctx, "lobby").Get()
	require.NoError(t, err)
	_, err = m.Subscribe(ctx, "lobby").Get()
	require.NoError(t, err)

	broker.mu.RLock()
	assert.Len(t, broker.subs[DefaultSubjectPrefix+".lobby"], 1)
	broker.mu.RUnlock()
}

func TestUnsubscribeStopsBrokerDelivery(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	rec := &recorder{}
	m.RegisterHandler("lobby", rec)

	_, err := m.Subscribe(ctx, "lobby").Get()
	require.NoError(t, err)
	_, err = m.Unsubscribe(ctx, "lobby").Get()
	require.NoError(t, err)
	_, err = m.Publish(ctx, "lobby", "ignored").Get()
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestCleanupIsIdempotentAndSilencesHandlers(t *testing.T) {
	m, broker := newTestManager(t)
	ctx := context.Background()
	rec := &recorder{}
	m.RegisterHandler("lobby", rec)
	_, err := m.Subscribe(ctx, "lobby").Get()
	require.NoError(t, err)

	m.Cleanup()
	m.Cleanup()

	_, err = m.Publish(ctx, "lobby", "after cleanup").Get()
	require.NoError(t, err)
	m.Deliver(Message{Channel: "lobby", Body: "direct"})

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rec.count())
	broker.mu.RLock()
	assert.Empty(t, broker.subs)
	broker.mu.RUnlock()
}

func TestManagerUsableAfterCleanup(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	m.RegisterHandler("lobby", &recorder{})
	_, err := m.Subscribe(ctx, "lobby").Get()
	require.NoError(t, err)
	m.Cleanup()

	rec := &recorder{}
	m.RegisterHandler("lobby", rec)
	_, err = m.Subscribe(ctx, "lobby").Get()
	require.NoError(t, err)
	_, err = m.Publish(ctx, "lobby", "again").Get()
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"again"}, rec.bodies())
}

func TestSlowHandlerDoesNotStarveOthers(t *testing.T) {
	m, _ := newTestManager(t)
	release := make(chan struct{})
	var slowCalls atomic.Int32
	m.RegisterHandler("x", HandlerFunc(func(Message) {
		slowCalls.Add(1)
		<-release
	}))
	fast := &recorder{}
	m.RegisterHandler("x", fast)
	other := &recorder{}
	m.RegisterHandler("y", other)

	for i := 0; i < 5; i++ {
		m.Deliver(Message{Channel: "x", Body: "x"})
	}
	m.Deliver(Message{Channel: "y", Body: "y"})

	require.Eventually(t, func() bool { return fast.count() == 5 && other.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), slowCalls.Load())
	close(release)
}

func TestSlowHandlerReceivesEveryMessage(t *testing.T) {
	m, _ := newTestManager(t)
	rec := &recorder{}
	m.RegisterHandler("x", HandlerFunc(func(msg Message) {
		time.Sleep(time.Millisecond)
		rec.HandleMessage(msg)
	}))

	want := make([]string, 200)
	for i := range want {
		want[i] = strconv.Itoa(i)
		m.Deliver(Message{Channel: "x", Body: want[i]})
	}

	require.Eventually(t, func() bool { return rec.count() == len(want) }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, want, rec.bodies())
}

func TestDeliverDoesNotBlockOnStalledHandler(t *testing.T) {
	m, _ := newTestManager(t)
	release := make(chan struct{})
	var calls atomic.Int32
	m.RegisterHandler("x", HandlerFunc(func(Message) {
		<-release
		calls.Add(1)
	}))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			m.Deliver(Message{Channel: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("delivery blocked on a stalled handler")
	}
	close(release)
	assert.Eventually(t, func() bool { return calls.Load() == 1000 }, 5*time.Second, 10*time.Millisecond)
}

func TestBacklogWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m, _ := newTestManager(t, WithLogger(zap.New(core)), WithBacklogWarning(3))
	release := make(chan struct{})
	defer close(release)
	m.RegisterHandler("x", HandlerFunc(func(Message) { <-release }))

	for i := 0; i < 10; i++ {
		m.Deliver(Message{Channel: "x"})
	}

	assert.NotZero(t, logs.FilterMessage("channel handler is falling behind").Len())
}

func TestDeliverToStoppedMailboxIsSilent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	m, _ := newTestManager(t, WithLogger(zap.New(core)))
	rec := &recorder{}
	m.RegisterHandler("x", rec)
	m.mu.RLock()
	mb := m.handlers["x"][0]
	m.mu.RUnlock()

	mb.stop()
	_, ok := mb.offer(Message{Channel: "x"})
	m.Deliver(Message{Channel: "x"})

	assert.False(t, ok)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rec.count())
	assert.Zero(t, logs.Len())
}

func TestConcurrentRegisterAndDeliver(t *testing.T) {
	m, _ := newTestManager(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.RegisterHandler("x", &recorder{})
		}()
		go func() {
			defer wg.Done()
			m.Deliver(Message{Channel: "x"})
		}()
	}
	wg.Wait()

	m.mu.RLock()
	assert.Len(t, m.handlers["x"], 8)
	m.mu.RUnlock()
}

func TestUndecodablePayloadIsDropped(t *testing.T) {
	m, broker := newTestManager(t)
	ctx := context.Background()
	rec := &recorder{}
	m.RegisterHandler("lobby", rec)
	_, err := m.Subscribe(ctx, "lobby").Get()
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, DefaultSubjectPrefix+".lobby", []byte{0xff, 0x00}))

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rec.count())
}
