// Package channel implements the named publish/subscribe channel bus.
//
// A Manager keeps a registry of channel name -> handlers and mirrors
// subscriptions onto a Broker (NATS in production, LocalBroker in tests
// and single-process setups). Every handler owns an unbounded mailbox
// drained by its own goroutine, so delivery never blocks on a slow
// handler and no handler misses a message.
package channel

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ShadowFalcon24/atomic-cloud/internal/codec"
	"github.com/ShadowFalcon24/atomic-cloud/internal/future"
)

const (
	DefaultSubjectPrefix  = "atomic.channel"
	DefaultBacklogWarning = 1024
)

var droppedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "atomic_cloud_channel_dropped_messages_total",
	Help: "Channel messages that were not delivered to a handler.",
}, []string{"reason"})

// Message is what handlers receive.
type Message struct {
	Channel string
	Body    string
	Sender  string
	SentAt  time.Time
}

// Envelope is the broker payload of one channel message.
type Envelope struct {
	Channel string    `cbor:"channel"`
	Message string    `cbor:"message"`
	Sender  string    `cbor:"sender,omitempty"`
	SentAt  time.Time `cbor:"sent_at"`
}

type Handler interface {
	HandleMessage(Message)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Message)

func (f HandlerFunc) HandleMessage(msg Message) { f(msg) }

type Option func(*Manager)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSender sets the sender name stamped on published envelopes.
func WithSender(sender string) Option {
	return func(m *Manager) { m.sender = sender }
}

func WithSubjectPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix != "" {
			m.prefix = prefix
		}
	}
}

// WithBacklogWarning sets the number of queued messages at which a
// handler's mailbox logs that the handler is falling behind.
func WithBacklogWarning(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.backlogWarning = n
		}
	}
}

type Manager struct {
	broker         Broker
	logger         *zap.Logger
	sender         string
	prefix         string
	backlogWarning int

	mu       sync.RWMutex
	handlers map[string][]*mailbox

	subMu sync.Mutex
	subs  map[string]Subscription
}

func NewManager(broker Broker, opts ...Option) *Manager {
	m := &Manager{
		broker:         broker,
		logger:         zap.NewNop(),
		prefix:         DefaultSubjectPrefix,
		backlogWarning: DefaultBacklogWarning,
		handlers:       make(map[string][]*mailbox),
		subs:           make(map[string]Subscription),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) subject(channel string) string {
	return m.prefix + "." + channel
}

// Publish hands message to the broker. The future completes once the
// broker accepted it.
func (m *Manager) Publish(ctx context.Context, channel, message string) *future.Future[struct{}] {
	return future.Go(func() (struct{}, error) {
		payload, err := codec.Marshal(Envelope{
			Channel: channel,
			Message: message,
			Sender:  m.sender,
			SentAt:  time.Now().UTC(),
		})
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, m.broker.Publish(ctx, m.subject(channel), payload)
	})
}

// Subscribe registers interest in channel with the broker. Subscribing
// twice is a no-op.
func (m *Manager) Subscribe(ctx context.Context, channel string) *future.Future[struct{}] {
	return future.Go(func() (struct{}, error) {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if _, ok := m.subs[channel]; ok {
			return struct{}{}, nil
		}
		sub, err := m.broker.Subscribe(ctx, m.subject(channel), func(payload []byte) {
			m.receive(channel, payload)
		})
		if err != nil {
			return struct{}{}, err
		}
		m.subs[channel] = sub
		m.logger.Debug("subscribed to channel", zap.String("channel", channel))
		return struct{}{}, nil
	})
}

// Unsubscribe drops the broker subscription for channel. Unsubscribing a
// channel that has no subscription succeeds.
func (m *Manager) Unsubscribe(ctx context.Context, channel string) *future.Future[struct{}] {
	return future.Go(func() (struct{}, error) {
		if err := ctx.Err(); err != nil {
			return struct{}{}, err
		}
		m.subMu.Lock()
		defer m.subMu.Unlock()
		sub, ok := m.subs[channel]
		if !ok {
			return struct{}{}, nil
		}
		delete(m.subs, channel)
		m.logger.Debug("unsubscribed from channel", zap.String("channel", channel))
		return struct{}{}, sub.Unsubscribe()
	})
}

// RegisterHandler attaches h to channel. The handler sees every message
// delivered after registration, in delivery order. Handlers run
// independently, so the order in which different handlers observe the
// same message is unspecified.
func (m *Manager) RegisterHandler(channel string, h Handler) {
	mb := newMailbox(h)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[channel] = append(slices.Clone(m.handlers[channel]), mb)
}

// Deliver routes an inbound message to the handlers of its channel.
func (m *Manager) Deliver(msg Message) {
	m.mu.RLock()
	boxes := m.handlers[msg.Channel]
	m.mu.RUnlock()

	for _, mb := range boxes {
		backlog, ok := mb.offer(msg)
		if !ok {
			// Stopped by a concurrent Cleanup.
			continue
		}
		if backlog == m.backlogWarning {
			m.logger.Warn("channel handler is falling behind",
				zap.String("channel", msg.Channel), zap.Int("backlog", backlog))
		}
	}
}

func (m *Manager) receive(channel string, payload []byte) {
	var env Envelope
	if err := codec.Unmarshal(payload, &env); err != nil {
		droppedMessages.WithLabelValues("decode").Inc()
		m.logger.Warn("dropping undecodable channel message", zap.String("channel", channel), zap.Error(err))
		return
	}
	m.Deliver(Message{Channel: channel, Body: env.Message, Sender: env.Sender, SentAt: env.SentAt})
}

// Cleanup unsubscribes every channel and drops every handler. It is safe
// to call more than once.
func (m *Manager) Cleanup() {
	m.subMu.Lock()
	var errs []error
	for channel, sub := range m.subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
		delete(m.subs, channel)
	}
	m.subMu.Unlock()
	if err := errors.Join(errs...); err != nil {
		m.logger.Warn("channel cleanup could not release every subscription", zap.Error(err))
	}

	m.mu.Lock()
	old := m.handlers
	m.handlers = make(map[string][]*mailbox)
	m.mu.Unlock()
	for _, boxes := range old {
		for _, mb := range boxes {
			mb.stop()
		}
	}
}
