package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ShadowFalcon24/atomic-cloud/internal/models"
	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
	"github.com/ShadowFalcon24/atomic-cloud/internal/storage"
)

// DefaultStartupDelay is how long a scheduled server stays Starting.
const DefaultStartupDelay = 500 * time.Millisecond

// maxScreenBytes bounds each server's screen buffer; older output is
// dropped first.
const maxScreenBytes = 64 << 10

// Server implements the manage service and simulates a controller.
type Server struct {
	proto.UnimplementedManageServiceServer
	store        storage.Store
	logger       *zap.Logger
	events       Publisher
	chaos        *Chaos
	startupDelay time.Duration
	stopHook     func()
	ports        atomic.Uint32

	mu sync.RWMutex
	// in-memory cache of servers to avoid hot DB on reads; persisted in store.
	cache map[string]*models.Server
	// operations mutex per resource key
	opMu sync.Map

	screenMu sync.Mutex
	screens  map[string][]byte

	background sync.WaitGroup
	closed     chan struct{}
	closeOnce  sync.Once
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithEvents publishes lifecycle events through p.
func WithEvents(p Publisher) Option {
	return func(s *Server) { s.events = p }
}

func WithChaos(c *Chaos) Option {
	return func(s *Server) { s.chaos = c }
}

func WithStartupDelay(d time.Duration) Option {
	return func(s *Server) { s.startupDelay = d }
}

// WithStopHook registers what RequestStop triggers. It runs on its own
// goroutine after the response is produced.
func WithStopHook(fn func()) Option {
	return func(s *Server) { s.stopHook = fn }
}

// New creates a new server instance.
func New(store storage.Store, opts ...Option) *Server {
	s := &Server{
		store:        store,
		logger:       zap.NewNop(),
		chaos:        NewChaos(),
		startupDelay: DefaultStartupDelay,
		cache:        make(map[string]*models.Server),
		screens:      make(map[string][]byte),
		closed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterGRPC registers the gRPC handlers.
func (s *Server) RegisterGRPC(gs *grpc.Server) {
	proto.RegisterManageServiceServer(gs, s)
}

// Chaos exposes the fault injection controls.
func (s *Server) Chaos() *Chaos { return s.chaos }

// Close stops pending startup transitions and waits for them to exit.
// The store is owned by the caller.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
	s.background.Wait()
}

func (s *Server) RequestStop(ctx context.Context, _ *proto.Empty) (*proto.Empty, error) {
	s.logger.Info("stop requested")
	s.emit(ctx, Event{Event: EventControllerStop})
	if s.stopHook != nil {
		go s.stopHook()
	}
	return &proto.Empty{}, nil
}

// getServerCached returns a server (from cache or store).
func (s *Server) getServerCached(ctx context.Context, id string) (*models.Server, error) {
	s.mu.RLock()
	if m, ok := s.cache[id]; ok {
		s.mu.RUnlock()
		return m.Clone(), nil
	}
	s.mu.RUnlock()

	m, err := s.store.GetServer(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[id] = m.Clone()
	s.mu.Unlock()

	return m, nil
}

// saveServer persists m and refreshes the cache.
func (s *Server) saveServer(ctx context.Context, m *models.Server) error {
	m.Version++
	m.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveServer(ctx, m); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache[m.ID()] = m.Clone()
	s.mu.Unlock()
	return nil
}

func (s *Server) forgetServer(id string) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
	s.screenMu.Lock()
	delete(s.screens, id)
	s.screenMu.Unlock()
}

// acquireOpLock ensures only one op per resource at a time.
func (s *Server) acquireOpLock(key string) *sync.Mutex {
	v, _ := s.opMu.LoadOrStore(key, &sync.Mutex{})
	mtx := v.(*sync.Mutex)
	mtx.Lock()
	return mtx
}

// releaseOpLock releases the op lock.
func (s *Server) releaseOpLock(key string) {
	v, ok := s.opMu.Load(key)
	if !ok {
		return
	}
	mtx := v.(*sync.Mutex)
	mtx.Unlock()
}

func nodeKey(name string) string { return "node:" + name }
func groupKey(name string) string { return "group:" + name }
func serverKey(id string) string { return "server:" + id }

// storeError maps store failures onto gRPC status codes.
func storeError(err error, kind, key string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return status.Errorf(codes.NotFound, "%s %q not found", kind, key)
	}
	return status.Errorf(codes.Internal, "%s %q: %v", kind, key, err)
}
