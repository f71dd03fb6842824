package transport_test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/ShadowFalcon24/atomic-cloud/internal/config"
	"github.com/ShadowFalcon24/atomic-cloud/internal/manage"
	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
	"github.com/ShadowFalcon24/atomic-cloud/internal/resource"
	"github.com/ShadowFalcon24/atomic-cloud/internal/server"
	"github.com/ShadowFalcon24/atomic-cloud/internal/storage"
	"github.com/ShadowFalcon24/atomic-cloud/internal/transfer"
	"github.com/ShadowFalcon24/atomic-cloud/internal/transport"
)

const token = "test-token"

func controllerConfig(tok string) config.ControllerConfig {
	return config.ControllerConfig{
		Address: "passthrough:///bufnet",
		Token:   tok,
		Timeout: 5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:       4,
			InitialBackoff:    10 * time.Millisecond,
			MaxBackoff:        50 * time.Millisecond,
			BackoffMultiplier: 2,
		},
		Burst: 1,
	}
}

// serve runs svc behind the auth interceptor on an in-memory listener and
// returns a dial option reaching it.
func serve(t *testing.T, svc proto.ManageServiceServer) grpc.DialOption {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := server.NewGRPCServer(token, zaptest.NewLogger(t))
	proto.RegisterManageServiceServer(gs, svc)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func dial(t *testing.T, tok string, dialer grpc.DialOption) *transport.Conn {
	t.Helper()
	conn, err := transport.Dial(controllerConfig(tok),
		transport.WithLogger(zaptest.NewLogger(t)),
		transport.WithDialOptions(dialer))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func simulator(t *testing.T) *server.Server {
	t.Helper()
	store, err := storage.NewInMemoryBadgerStore()
	require.NoError(t, err)
	sim := server.New(store, server.WithStartupDelay(5*time.Millisecond))
	t.Cleanup(func() {
		sim.Close()
		_ = store.Close()
	})
	return sim
}

func TestFacadeAgainstSimulator(t *testing.T) {
	conn := dial(t, token, serve(t, simulator(t)))
	p := manage.New(conn)
	ctx := context.Background()

	maxServers := uint32(8)
	node := resource.NewNode("node-1", "local", resource.Capabilities{MaxServers: &maxServers}, "http://127.0.0.1:8080")
	_, err := p.CreateNode(ctx, node).Await(ctx)
	require.NoError(t, err)

	got, err := p.Node(ctx, node.Simple()).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, node, got)

	group := resource.NewGroup("lobby", []string{"node-1"},
		resource.Constraints{Minimum: 0, Maximum: 2},
		resource.Scaling{}, resource.Resources{Memory: 512}, resource.Specification{Image: "paper"})
	_, err = p.CreateGroup(ctx, group).Await(ctx)
	require.NoError(t, err)
	gotGroup, err := p.Group(ctx, group.Simple()).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"node-1"}, gotGroup.Nodes())

	id, err := p.ScheduleServer(ctx, 5, "hub-1", node.Simple(),
		resource.Resources{Memory: 1024, Ports: 1}, resource.Specification{Image: "paper"}).Await(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	simple := resource.NewSimpleServer(id, "hub-1")
	require.Eventually(t, func() bool {
		srv, err := p.Server(ctx, simple).Await(ctx)
		return err == nil && srv.Ready() && srv.State() == resource.StateRunning
	}, 2*time.Second, 10*time.Millisecond)

	srv, err := p.Server(ctx, simple).Await(ctx)
	require.NoError(t, err)
	_, hasGroup := srv.Group()
	assert.False(t, hasGroup)
	assert.Equal(t, "node-1", srv.Node())

	_, err = p.WriteToScreen(ctx, simple, []byte("stop\n")).Await(ctx)
	require.NoError(t, err)

	user := uuid.New()
	moved, err := p.Transfers().TransferUsers(ctx, []uuid.UUID{user}, transfer.ToServer(simple)).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), moved)

	servers, err := p.Servers(ctx).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []resource.SimpleServer{simple}, servers)

	_, err = p.SetResource(ctx, node.Simple(), false).Await(ctx)
	require.NoError(t, err)
	_, err = p.DeleteResource(ctx, simple).Await(ctx)
	require.NoError(t, err)

	_, err = p.Server(ctx, simple).Await(ctx)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestWrongTokenRejected(t *testing.T) {
	conn := dial(t, "wrong", serve(t, simulator(t)))
	ctx := context.Background()

	_, err := manage.New(conn).Nodes(ctx).Await(ctx)

	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

type flakyService struct {
	proto.UnimplementedManageServiceServer
	failures int32
	calls    atomic.Int32
}

func (f *flakyService) ListNodes(context.Context, *proto.Empty) (*proto.NodeList, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, status.Error(codes.Unavailable, "warming up")
	}
	return &proto.NodeList{Names: []string{"node-1"}}, nil
}

func TestRetriesUnavailable(t *testing.T) {
	svc := &flakyService{failures: 2}
	conn := dial(t, token, serve(t, svc))
	ctx := context.Background()

	nodes, err := manage.New(conn).Nodes(ctx).Await(ctx)

	require.NoError(t, err)
	assert.Equal(t, []resource.SimpleNode{{Name: "node-1"}}, nodes)
	assert.Equal(t, int32(3), svc.calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	svc := &flakyService{failures: 10}
	conn := dial(t, token, serve(t, svc))
	ctx := context.Background()

	_, err := manage.New(conn).Nodes(ctx).Await(ctx)

	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, int32(4), svc.calls.Load())
}

func TestUnimplementedPassesThrough(t *testing.T) {
	conn := dial(t, token, serve(t, &flakyService{}))
	ctx := context.Background()

	_, err := manage.New(conn).StopController(ctx).Await(ctx)

	assert.Equal(t, codes.Unimplemented, status.Code(err))
}
