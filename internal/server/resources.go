package server

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ShadowFalcon24/atomic-cloud/internal/models"
	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
	"github.com/ShadowFalcon24/atomic-cloud/internal/storage"
)

// CreateNode registers a node. New nodes are active.
func (s *Server) CreateNode(ctx context.Context, req *proto.NodeDetail) (*proto.Empty, error) {
	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "node name required")
	}
	_ = s.acquireOpLock(nodeKey(req.Name))
	defer s.releaseOpLock(nodeKey(req.Name))

	if _, err := s.store.GetNode(ctx, req.Name); err == nil {
		return nil, status.Errorf(codes.AlreadyExists, "node %q already exists", req.Name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, storeError(err, "node", req.Name)
	}

	now := time.Now().UTC()
	n := &models.Node{Detail: *req, Active: true, Version: 1, CreatedAt: now, UpdatedAt: now}
	if err := s.store.SaveNode(ctx, n); err != nil {
		return nil, storeError(err, "node", req.Name)
	}
	s.logger.Info("node created", zap.String("node", req.Name), zap.String("plugin", req.Plugin))
	s.emit(ctx, Event{Event: EventNodeCreated, Name: req.Name})
	return &proto.Empty{}, nil
}

// CreateGroup registers a group over existing nodes and starts its
// minimum number of servers.
func (s *Server) CreateGroup(ctx context.Context, req *proto.GroupDetail) (*proto.Empty, error) {
	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "group name required")
	}
	if req.Constraints.Maximum > 0 && req.Constraints.Minimum > req.Constraints.Maximum {
		return nil, status.Errorf(codes.InvalidArgument, "group %q: minimum %d exceeds maximum %d",
			req.Name, req.Constraints.Minimum, req.Constraints.Maximum)
	}
	for _, node := range req.Nodes {
		if _, err := s.store.GetNode(ctx, node); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, status.Errorf(codes.FailedPrecondition, "group %q: node %q does not exist", req.Name, node)
			}
			return nil, storeError(err, "node", node)
		}
	}

	_ = s.acquireOpLock(groupKey(req.Name))
	defer s.releaseOpLock(groupKey(req.Name))

	if _, err := s.store.GetGroup(ctx, req.Name); err == nil {
		return nil, status.Errorf(codes.AlreadyExists, "group %q already exists", req.Name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, storeError(err, "group", req.Name)
	}

	now := time.Now().UTC()
	detail := *req
	detail.Nodes = append([]string{}, req.Nodes...)
	g := &models.Group{Detail: detail, Active: true, Version: 1, CreatedAt: now, UpdatedAt: now}
	if err := s.store.SaveGroup(ctx, g); err != nil {
		return nil, storeError(err, "group", req.Name)
	}
	s.logger.Info("group created", zap.String("group", req.Name), zap.Strings("nodes", req.Nodes))
	s.emit(ctx, Event{Event: EventGroupCreated, Name: req.Name})

	s.ensureMinimum(ctx, g)
	return &proto.Empty{}, nil
}

// SetResource toggles a node or group. Servers cannot be toggled.
func (s *Server) SetResource(ctx context.Context, req *proto.SetResourceRequest) (*proto.Empty, error) {
	active := req.Active
	switch req.Category {
	case proto.CategoryNode:
		_ = s.acquireOpLock(nodeKey(req.ID))
		defer s.releaseOpLock(nodeKey(req.ID))

		n, err := s.store.GetNode(ctx, req.ID)
		if err != nil {
			return nil, storeError(err, "node", req.ID)
		}
		if n.Active != active {
			n.Active = active
			n.Version++
			n.UpdatedAt = time.Now().UTC()
			if err := s.store.SaveNode(ctx, n); err != nil {
				return nil, storeError(err, "node", req.ID)
			}
		}
		s.emit(ctx, Event{Event: EventNodeToggled, Name: req.ID, Active: &active})
	case proto.CategoryGroup:
		_ = s.acquireOpLock(groupKey(req.ID))
		defer s.releaseOpLock(groupKey(req.ID))

		g, err := s.store.GetGroup(ctx, req.ID)
		if err != nil {
			return nil, storeError(err, "group", req.ID)
		}
		if g.Active != active {
			g.Active = active
			g.Version++
			g.UpdatedAt = time.Now().UTC()
			if err := s.store.SaveGroup(ctx, g); err != nil {
				return nil, storeError(err, "group", req.ID)
			}
		}
		s.emit(ctx, Event{Event: EventGroupToggled, Name: req.ID, Active: &active})
		s.ensureMinimum(ctx, g)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "%s resources cannot be toggled", req.Category)
	}
	return &proto.Empty{}, nil
}

// DeleteResource removes a node, group or server. A node that still
// hosts servers cannot be deleted.
func (s *Server) DeleteResource(ctx context.Context, req *proto.DeleteResourceRequest) (*proto.Empty, error) {
	switch req.Category {
	case proto.CategoryNode:
		_ = s.acquireOpLock(nodeKey(req.ID))
		defer s.releaseOpLock(nodeKey(req.ID))

		if _, err := s.store.GetNode(ctx, req.ID); err != nil {
			return nil, storeError(err, "node", req.ID)
		}
		hosted, err := s.serversWhere(ctx, func(m *models.Server) bool { return m.Detail.Node == req.ID })
		if err != nil {
			return nil, status.Errorf(codes.Internal, "list servers: %v", err)
		}
		if len(hosted) > 0 {
			return nil, status.Errorf(codes.FailedPrecondition, "node %q still hosts %d servers", req.ID, len(hosted))
		}
		if err := s.store.DeleteNode(ctx, req.ID); err != nil {
			return nil, storeError(err, "node", req.ID)
		}
		s.emit(ctx, Event{Event: EventNodeDeleted, Name: req.ID})
	case proto.CategoryGroup:
		_ = s.acquireOpLock(groupKey(req.ID))
		defer s.releaseOpLock(groupKey(req.ID))

		if err := s.store.DeleteGroup(ctx, req.ID); err != nil {
			return nil, storeError(err, "group", req.ID)
		}
		s.emit(ctx, Event{Event: EventGroupDeleted, Name: req.ID})
	case proto.CategoryServer:
		_ = s.acquireOpLock(serverKey(req.ID))
		defer s.releaseOpLock(serverKey(req.ID))

		if err := s.store.DeleteServer(ctx, req.ID); err != nil {
			return nil, storeError(err, "server", req.ID)
		}
		s.forgetServer(req.ID)
		s.emit(ctx, Event{Event: EventServerDeleted, ID: req.ID})
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown category %d", req.Category)
	}
	s.logger.Info("resource deleted", zap.Stringer("category", req.Category), zap.String("id", req.ID))
	return &proto.Empty{}, nil
}

func (s *Server) GetNode(ctx context.Context, req *proto.NameRequest) (*proto.NodeDetail, error) {
	n, err := s.store.GetNode(ctx, req.Name)
	if err != nil {
		return nil, storeError(err, "node", req.Name)
	}
	return &n.Detail, nil
}

func (s *Server) GetGroup(ctx context.Context, req *proto.NameRequest) (*proto.GroupDetail, error) {
	g, err := s.store.GetGroup(ctx, req.Name)
	if err != nil {
		return nil, storeError(err, "group", req.Name)
	}
	if g.Detail.Nodes == nil {
		g.Detail.Nodes = []string{}
	}
	return &g.Detail, nil
}

func (s *Server) GetServer(ctx context.Context, req *proto.IDRequest) (*proto.ServerDetail, error) {
	m, err := s.getServerCached(ctx, req.ID)
	if err != nil {
		return nil, storeError(err, "server", req.ID)
	}
	return &m.Detail, nil
}

func (s *Server) ListNodes(ctx context.Context, _ *proto.Empty) (*proto.NodeList, error) {
	nodes, err := s.store.ListNodes(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list nodes: %v", err)
	}
	out := &proto.NodeList{Names: make([]string, 0, len(nodes))}
	for _, n := range nodes {
		out.Names = append(out.Names, n.Name())
	}
	return out, nil
}

func (s *Server) ListGroups(ctx context.Context, _ *proto.Empty) (*proto.GroupList, error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list groups: %v", err)
	}
	out := &proto.GroupList{Names: make([]string, 0, len(groups))}
	for _, g := range groups {
		out.Names = append(out.Names, g.Name())
	}
	return out, nil
}

func (s *Server) ListServers(ctx context.Context, _ *proto.Empty) (*proto.ServerList, error) {
	servers, err := s.store.ListServers(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list servers: %v", err)
	}
	out := &proto.ServerList{Servers: make([]proto.ServerRef, 0, len(servers))}
	for _, m := range servers {
		out.Servers = append(out.Servers, proto.ServerRef{ID: m.ID(), Name: m.Detail.Name})
	}
	return out, nil
}

// serversWhere lists stored servers matching keep.
func (s *Server) serversWhere(ctx context.Context, keep func(*models.Server) bool) ([]*models.Server, error) {
	servers, err := s.store.ListServers(ctx)
	if err != nil {
		return nil, err
	}
	out := servers[:0]
	for _, m := range servers {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out, nil
}
