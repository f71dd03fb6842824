package transport

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomic_cloud_client_calls_total",
		Help: "Controller calls by method and gRPC status code.",
	}, []string{"method", "code"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atomic_cloud_client_call_duration_seconds",
		Help:    "Controller call latency including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

func metricsInterceptor(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	start := time.Now()
	err := invoker(ctx, method, req, reply, cc, opts...)
	callDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	callsTotal.WithLabelValues(method, status.Code(err).String()).Inc()
	return err
}
