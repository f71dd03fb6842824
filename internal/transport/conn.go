// Package transport is the connection to the controller's manage
// service. It owns everything the facade deliberately does not:
// authentication, retry with backoff, client-side rate limiting,
// tracing and call metrics.
package transport

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/ShadowFalcon24/atomic-cloud/internal/config"
	"github.com/ShadowFalcon24/atomic-cloud/internal/future"
	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const tracerName = "github.com/ShadowFalcon24/atomic-cloud/internal/transport"

// Conn implements manage.Connection over gRPC.
type Conn struct {
	cc      *grpc.ClientConn
	client  *proto.ManageServiceClient
	limiter *rate.Limiter
	tracer  trace.Tracer
	logger  *zap.Logger
	timeout time.Duration
}

type options struct {
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	dialOptions    []grpc.DialOption
}

type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithDialOptions appends raw gRPC dial options, e.g. a bufconn dialer
// in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOptions = append(o.dialOptions, opts...) }
}

// Dial creates the client connection. gRPC connects lazily, so Dial does
// not fail when the controller is down; the first call does.
func Dial(cfg config.ControllerConfig, opts ...Option) (*Conn, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}

	serviceConfig, err := retryServiceConfig(cfg.Retry)
	if err != nil {
		return nil, err
	}

	var transportCreds credentials.TransportCredentials
	if cfg.TLS {
		transportCreds = credentials.NewClientTLSFromCert(nil, "")
	} else {
		transportCreds = insecure.NewCredentials()
	}

	dialOptions := []grpc.DialOption{
		grpc.WithTransportCredentials(transportCreds),
		grpc.WithPerRPCCredentials(tokenCredentials{token: cfg.Token, requireTLS: cfg.TLS}),
		grpc.WithDefaultServiceConfig(serviceConfig),
		grpc.WithUnaryInterceptor(metricsInterceptor),
	}
	dialOptions = append(dialOptions, o.dialOptions...)

	cc, err := grpc.NewClient(cfg.Address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("create controller client for %s: %w", cfg.Address, err)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	o.logger.Debug("controller client created",
		zap.String("address", cfg.Address),
		zap.Bool("tls", cfg.TLS),
		zap.Int("retry_attempts", cfg.Retry.MaxAttempts))

	return &Conn{
		cc:      cc,
		client:  proto.NewManageServiceClient(cc),
		limiter: rate.NewLimiter(limit, burst),
		tracer:  o.tracerProvider.Tracer(tracerName),
		logger:  o.logger,
		timeout: cfg.Timeout,
	}, nil
}

func (c *Conn) Close() error {
	return c.cc.Close()
}

type retryPolicy struct {
	MaxAttempts          int      `json:"maxAttempts"`
	InitialBackoff       string   `json:"initialBackoff"`
	MaxBackoff           string   `json:"maxBackoff"`
	BackoffMultiplier    float64  `json:"backoffMultiplier"`
	RetryableStatusCodes []string `json:"retryableStatusCodes"`
}

type methodConfig struct {
	Name        []map[string]string `json:"name"`
	RetryPolicy *retryPolicy        `json:"retryPolicy,omitempty"`
}

type serviceConfig struct {
	MethodConfig []methodConfig `json:"methodConfig"`
}

func durationString(d time.Duration) string {
	return fmt.Sprintf("%gs", d.Seconds())
}

// retryServiceConfig renders the gRPC service config that retries every
// manage method on UNAVAILABLE.
func retryServiceConfig(cfg config.RetryConfig) (string, error) {
	mc := methodConfig{Name: []map[string]string{{"service": proto.ServiceName}}}
	if cfg.MaxAttempts > 1 {
		mc.RetryPolicy = &retryPolicy{
			MaxAttempts:          cfg.MaxAttempts,
			InitialBackoff:       durationString(cfg.InitialBackoff),
			MaxBackoff:           durationString(cfg.MaxBackoff),
			BackoffMultiplier:    cfg.BackoffMultiplier,
			RetryableStatusCodes: []string{"UNAVAILABLE"},
		}
	}
	data, err := json.Marshal(serviceConfig{MethodConfig: []methodConfig{mc}})
	if err != nil {
		return "", fmt.Errorf("render retry service config: %w", err)
	}
	return string(data), nil
}

// invoke runs one unary call on a new goroutine and returns its future.
func invoke[Resp any](c *Conn, ctx context.Context, method string, req any) *future.Future[*Resp] {
	return future.Go(func() (*Resp, error) {
		if c.timeout > 0 {
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, c.timeout)
				defer cancel()
			}
		}
		ctx, span := c.tracer.Start(ctx, method, trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		if err := c.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, "rate limiter")
			return nil, err
		}

		out := new(Resp)
		if err := c.client.Invoke(ctx, method, req, out); err != nil {
			st, _ := status.FromError(err)
			span.SetAttributes(attribute.String("rpc.grpc.status_code", st.Code().String()))
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, st.Message())
			c.logger.Debug("controller call failed", zap.String("method", method), zap.Error(err))
			return nil, err
		}
		return out, nil
	})
}

func (c *Conn) RequestStop(ctx context.Context) *future.Future[*proto.Empty] {
	return invoke[proto.Empty](c, ctx, proto.MethodRequestStop, &proto.Empty{})
}

func (c *Conn) SetResource(ctx context.Context, req *proto.SetResourceRequest) *future.Future[*proto.Empty] {
	return invoke[proto.Empty](c, ctx, proto.MethodSetResource, req)
}

func (c *Conn) DeleteResource(ctx context.Context, req *proto.DeleteResourceRequest) *future.Future[*proto.Empty] {
	return invoke[proto.Empty](c, ctx, proto.MethodDeleteResource, req)
}

func (c *Conn) CreateNode(ctx context.Context, req *proto.NodeDetail) *future.Future[*proto.Empty] {
	return invoke[proto.Empty](c, ctx, proto.MethodCreateNode, req)
}

func (c *Conn) CreateGroup(ctx context.Context, req *proto.GroupDetail) *future.Future[*proto.Empty] {
	return invoke[proto.Empty](c, ctx, proto.MethodCreateGroup, req)
}

func (c *Conn) ScheduleServer(ctx context.Context, req *proto.ServerProposal) *future.Future[*proto.StringValue] {
	return invoke[proto.StringValue](c, ctx, proto.MethodScheduleServer, req)
}

func (c *Conn) WriteToScreen(ctx context.Context, req *proto.WriteScreenRequest) *future.Future[*proto.Empty] {
	return invoke[proto.Empty](c, ctx, proto.MethodWriteToScreen, req)
}

func (c *Conn) Node(ctx context.Context, name string) *future.Future[*proto.NodeDetail] {
	return invoke[proto.NodeDetail](c, ctx, proto.MethodGetNode, &proto.NameRequest{Name: name})
}

func (c *Conn) Group(ctx context.Context, name string) *future.Future[*proto.GroupDetail] {
	return invoke[proto.GroupDetail](c, ctx, proto.MethodGetGroup, &proto.NameRequest{Name: name})
}

func (c *Conn) Server(ctx context.Context, id string) *future.Future[*proto.ServerDetail] {
	return invoke[proto.ServerDetail](c, ctx, proto.MethodGetServer, &proto.IDRequest{ID: id})
}

func (c *Conn) Nodes(ctx context.Context) *future.Future[*proto.NodeList] {
	return invoke[proto.NodeList](c, ctx, proto.MethodListNodes, &proto.Empty{})
}

func (c *Conn) Groups(ctx context.Context) *future.Future[*proto.GroupList] {
	return invoke[proto.GroupList](c, ctx, proto.MethodListGroups, &proto.Empty{})
}

func (c *Conn) Servers(ctx context.Context) *future.Future[*proto.ServerList] {
	return invoke[proto.ServerList](c, ctx, proto.MethodListServers, &proto.Empty{})
}

func (c *Conn) TransferUsers(ctx context.Context, req *proto.TransferUsersRequest) *future.Future[*proto.UInt32Value] {
	return invoke[proto.UInt32Value](c, ctx, proto.MethodTransferUsers, req)
}
