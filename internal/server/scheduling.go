package server

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ShadowFalcon24/atomic-cloud/internal/models"
	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
	"github.com/ShadowFalcon24/atomic-cloud/internal/resource"
)

// basePort is the first port handed out in allocations.
const basePort = 30000

type placement struct {
	name      string
	node      string
	group     *string
	priority  int32
	resources proto.Resources
	spec      proto.Specification
}

// ScheduleServer places a server on the requested node and returns its id.
func (s *Server) ScheduleServer(ctx context.Context, req *proto.ServerProposal) (*proto.StringValue, error) {
	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "server name required")
	}
	if req.Node == "" {
		return nil, status.Error(codes.InvalidArgument, "node required")
	}
	m, err := s.schedule(ctx, placement{
		name:      req.Name,
		node:      req.Node,
		priority:  req.Priority,
		resources: req.Resources,
		spec:      req.Specification,
	})
	if err != nil {
		return nil, err
	}
	return &proto.StringValue{Value: m.ID()}, nil
}

func (s *Server) schedule(ctx context.Context, p placement) (*models.Server, error) {
	if s.chaos.Partitioned(p.node) {
		return nil, status.Errorf(codes.Unavailable, "node %q is partitioned", p.node)
	}
	if delay := s.chaos.Latency(p.node); delay > 0 {
		select {
		case <-ctx.Done():
			return nil, status.FromContextError(ctx.Err()).Err()
		case <-time.After(delay):
		}
	}

	_ = s.acquireOpLock(nodeKey(p.node))
	defer s.releaseOpLock(nodeKey(p.node))

	node, err := s.store.GetNode(ctx, p.node)
	if err != nil {
		return nil, storeError(err, "node", p.node)
	}
	if !node.Active {
		return nil, status.Errorf(codes.FailedPrecondition, "node %q is disabled", p.node)
	}
	if limit := node.Detail.Capabilities.MaxServers; limit != nil {
		hosted, err := s.serversWhere(ctx, func(m *models.Server) bool { return m.Detail.Node == p.node })
		if err != nil {
			return nil, status.Errorf(codes.Internal, "list servers: %v", err)
		}
		if uint32(len(hosted)) >= *limit {
			return nil, status.Errorf(codes.ResourceExhausted, "node %q is full (%d servers)", p.node, *limit)
		}
	}

	host := nodeHost(node.Detail.ControllerAddress)
	ports := make([]proto.Address, p.resources.Ports)
	for i := range ports {
		ports[i] = proto.Address{Host: host, Port: basePort + s.ports.Add(1) - 1}
	}

	now := time.Now().UTC()
	m := &models.Server{
		Detail: proto.ServerDetail{
			Name:  p.name,
			ID:    uuid.NewString(),
			Group: p.group,
			Node:  p.node,
			Allocation: proto.Allocation{
				Ports:         ports,
				Resources:     p.resources,
				Specification: p.spec,
			},
			Token: uuid.NewString(),
			State: int32(resource.StateStarting),
		},
		Priority:  p.priority,
		CreatedAt: now,
	}
	if err := s.saveServer(ctx, m); err != nil {
		return nil, storeError(err, "server", m.ID())
	}
	serversScheduled.Inc()
	s.logger.Info("server scheduled",
		zap.String("id", m.ID()),
		zap.String("name", p.name),
		zap.String("node", p.node))
	s.emit(ctx, Event{Event: EventServerScheduled, ID: m.ID(), Name: p.name, Node: p.node})

	// spawn background startup routine
	s.background.Add(1)
	go s.transitionToRunning(m.ID())

	return m, nil
}

// transitionToRunning simulates a server boot process.
func (s *Server) transitionToRunning(id string) {
	defer s.background.Done()

	select {
	case <-s.closed:
		return
	case <-time.After(s.startupDelay):
	}

	_ = s.acquireOpLock(serverKey(id))
	defer s.releaseOpLock(serverKey(id))

	ctx := context.Background()
	m, err := s.store.GetServer(ctx, id)
	if err != nil {
		// deleted while starting
		return
	}
	if m.Detail.State != int32(resource.StateStarting) {
		return
	}

	m.Detail.State = int32(resource.StateRunning)
	m.Detail.Ready = true
	if err := s.saveServer(ctx, m); err != nil {
		s.logger.Warn("mark server running", zap.String("id", id), zap.Error(err))
		return
	}
	s.emit(ctx, Event{Event: EventServerRunning, ID: id, Name: m.Detail.Name, Node: m.Detail.Node})
}

// ensureMinimum starts servers until an active group has at least its
// minimum count, spreading them round robin over the group's nodes.
func (s *Server) ensureMinimum(ctx context.Context, g *models.Group) {
	if !g.Active || g.Detail.Constraints.Minimum == 0 || len(g.Detail.Nodes) == 0 {
		return
	}
	name := g.Name()
	members, err := s.serversWhere(ctx, func(m *models.Server) bool {
		return m.Detail.Group != nil && *m.Detail.Group == name
	})
	if err != nil {
		s.logger.Warn("list group servers", zap.String("group", name), zap.Error(err))
		return
	}
	for i := len(members); i < int(g.Detail.Constraints.Minimum); i++ {
		group := name
		_, err := s.schedule(ctx, placement{
			name:      fmt.Sprintf("%s-%d", name, i+1),
			node:      g.Detail.Nodes[i%len(g.Detail.Nodes)],
			group:     &group,
			priority:  g.Detail.Constraints.Priority,
			resources: g.Detail.Resources,
			spec:      g.Detail.Specification,
		})
		if err != nil {
			s.logger.Warn("start group server", zap.String("group", name), zap.Error(err))
		}
	}
}

func nodeHost(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return "127.0.0.1"
}

// WriteToScreen appends data to the server's screen buffer.
func (s *Server) WriteToScreen(ctx context.Context, req *proto.WriteScreenRequest) (*proto.Empty, error) {
	if _, err := s.getServerCached(ctx, req.ID); err != nil {
		return nil, storeError(err, "server", req.ID)
	}

	s.screenMu.Lock()
	screen := append(s.screens[req.ID], req.Data...)
	if over := len(screen) - maxScreenBytes; over > 0 {
		screen = append([]byte(nil), screen[over:]...)
	}
	s.screens[req.ID] = screen
	s.screenMu.Unlock()

	return &proto.Empty{}, nil
}

// Screen returns a copy of everything written to the server's screen.
func (s *Server) Screen(id string) []byte {
	s.screenMu.Lock()
	defer s.screenMu.Unlock()
	return append([]byte(nil), s.screens[id]...)
}

// TransferUsers moves users onto a ready server, or onto the least
// loaded ready server of a group. A group without ready servers moves
// nobody.
func (s *Server) TransferUsers(ctx context.Context, req *proto.TransferUsersRequest) (*proto.UInt32Value, error) {
	for _, user := range req.Users {
		if _, err := uuid.Parse(user); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "user %q is not a uuid", user)
		}
	}

	var targetID string
	switch req.Target.Type {
	case proto.TargetServer:
		targetID = req.Target.Target
	case proto.TargetGroup:
		if _, err := s.store.GetGroup(ctx, req.Target.Target); err != nil {
			return nil, storeError(err, "group", req.Target.Target)
		}
		ready, err := s.serversWhere(ctx, func(m *models.Server) bool {
			return m.Detail.Ready && m.Detail.Group != nil && *m.Detail.Group == req.Target.Target
		})
		if err != nil {
			return nil, status.Errorf(codes.Internal, "list servers: %v", err)
		}
		if len(ready) == 0 {
			return &proto.UInt32Value{}, nil
		}
		least := ready[0]
		for _, m := range ready[1:] {
			if m.Detail.Users < least.Detail.Users {
				least = m
			}
		}
		targetID = least.ID()
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown transfer target type %d", req.Target.Type)
	}

	_ = s.acquireOpLock(serverKey(targetID))
	defer s.releaseOpLock(serverKey(targetID))

	m, err := s.getServerCached(ctx, targetID)
	if err != nil {
		return nil, storeError(err, "server", targetID)
	}
	if !m.Detail.Ready {
		return nil, status.Errorf(codes.FailedPrecondition, "server %q is not ready", targetID)
	}
	moved := uint32(len(req.Users))
	if moved == 0 {
		return &proto.UInt32Value{}, nil
	}
	m.Detail.Users += moved
	if err := s.saveServer(ctx, m); err != nil {
		return nil, storeError(err, "server", targetID)
	}
	usersTransferred.Add(float64(moved))
	s.emit(ctx, Event{Event: EventUsersMoved, ID: targetID, Count: moved})
	return &proto.UInt32Value{Value: moved}, nil
}
