package natsclient

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ShadowFalcon24/atomic-cloud/internal/channel"
)

// flushTimeout bounds the subscription round trip when the caller's
// context has no deadline; nats refuses to flush without one.
const flushTimeout = 5 * time.Second

// Broker is a NATS connection used for channel traffic and lifecycle
// events. It implements channel.Broker.
type Broker struct {
	nc     *nats.Conn
	url    string
	logger *zap.Logger
}

func NewBroker(url, name string, logger *zap.Logger) (*Broker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return &Broker{nc: nc, url: url, logger: logger}, nil
}

func (b *Broker) Publish(ctx context.Context, subject string, payload []byte) error {
	if b.nc == nil || b.nc.IsClosed() {
		return fmt.Errorf("nats not connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.nc.Publish(subject, payload)
}

// Subscribe registers fn on subject and flushes so the server has the
// interest before returning.
func (b *Broker) Subscribe(ctx context.Context, subject string, fn func([]byte)) (channel.Subscription, error) {
	if b.nc == nil || b.nc.IsClosed() {
		return nil, fmt.Errorf("nats not connected")
	}
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := b.nc.FlushWithContext(ctx); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flush subscription %s: %w", subject, err)
	}
	return sub, nil
}

func (b *Broker) Close() {
	if b.nc != nil {
		b.nc.Drain()
		b.nc.Close()
	}
}
