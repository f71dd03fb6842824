// Package manage translates typed fleet operations into manage service
// requests and maps the responses back into resource values.
//
// Privileged holds nothing but its connection and is safe to share
// between goroutines. Every operation returns immediately with a
// future; failures from the connection are passed through untouched.
package manage

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/ShadowFalcon24/atomic-cloud/internal/future"
	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
	"github.com/ShadowFalcon24/atomic-cloud/internal/resource"
	"github.com/ShadowFalcon24/atomic-cloud/internal/transfer"
)

// Connection is the transport the facade delegates to. Implementations
// own retries, reconnection and authentication.
type Connection interface {
	transfer.Connection

	RequestStop(ctx context.Context) *future.Future[*proto.Empty]
	SetResource(ctx context.Context, req *proto.SetResourceRequest) *future.Future[*proto.Empty]
	DeleteResource(ctx context.Context, req *proto.DeleteResourceRequest) *future.Future[*proto.Empty]
	CreateNode(ctx context.Context, req *proto.NodeDetail) *future.Future[*proto.Empty]
	CreateGroup(ctx context.Context, req *proto.GroupDetail) *future.Future[*proto.Empty]
	ScheduleServer(ctx context.Context, req *proto.ServerProposal) *future.Future[*proto.StringValue]
	WriteToScreen(ctx context.Context, req *proto.WriteScreenRequest) *future.Future[*proto.Empty]
	Node(ctx context.Context, name string) *future.Future[*proto.NodeDetail]
	Group(ctx context.Context, name string) *future.Future[*proto.GroupDetail]
	Server(ctx context.Context, id string) *future.Future[*proto.ServerDetail]
	Nodes(ctx context.Context) *future.Future[*proto.NodeList]
	Groups(ctx context.Context) *future.Future[*proto.GroupList]
	Servers(ctx context.Context) *future.Future[*proto.ServerList]
}

type Privileged struct {
	conn Connection
}

func New(conn Connection) *Privileged {
	return &Privileged{conn: conn}
}

// Transfers returns a transfer accessor bound to the same connection.
func (p *Privileged) Transfers() *transfer.Transfers {
	return transfer.New(p.conn)
}

// StopController asks the controller to shut down. The connection may be
// unusable afterwards.
func (p *Privileged) StopController(ctx context.Context) *future.Future[struct{}] {
	return future.Discard(p.conn.RequestStop(ctx))
}

// SetResource enables or disables a node or group. Servers are rejected
// locally with ErrUnsupportedResource.
func (p *Privileged) SetResource(ctx context.Context, r resource.Resource, active bool) *future.Future[struct{}] {
	addr := addressing{operation: "set resource", allowServer: false}
	if err := r.Accept(&addr); err != nil {
		return future.Failed[struct{}](err)
	}
	return future.Discard(p.conn.SetResource(ctx, &proto.SetResourceRequest{
		Category: addr.category,
		ID:       addr.id,
		Active:   active,
	}))
}

// DeleteResource deletes a node, group or server.
func (p *Privileged) DeleteResource(ctx context.Context, r resource.Resource) *future.Future[struct{}] {
	addr := addressing{operation: "delete resource", allowServer: true}
	if err := r.Accept(&addr); err != nil {
		return future.Failed[struct{}](err)
	}
	return future.Discard(p.conn.DeleteResource(ctx, &proto.DeleteResourceRequest{
		Category: addr.category,
		ID:       addr.id,
	}))
}

func (p *Privileged) CreateNode(ctx context.Context, node resource.Node) *future.Future[struct{}] {
	return future.Discard(p.conn.CreateNode(ctx, nodeToWire(node)))
}

// CreateGroup sends the member nodes in the order the group lists them.
// A group without members is valid.
func (p *Privileged) CreateGroup(ctx context.Context, group resource.Group) *future.Future[struct{}] {
	return future.Discard(p.conn.CreateGroup(ctx, groupToWire(group)))
}

// ScheduleServer proposes a new server on node and resolves to the id the
// controller assigned. priority is forwarded to the controller's
// scheduler as is.
func (p *Privileged) ScheduleServer(
	ctx context.Context,
	priority int32,
	name string,
	node resource.SimpleNode,
	resources resource.Resources,
	specification resource.Specification,
) *future.Future[uuid.UUID] {
	proposal := &proto.ServerProposal{
		Priority:      priority,
		Name:          name,
		Node:          node.Name,
		Resources:     resourcesToWire(resources),
		Specification: specificationToWire(specification),
	}
	return future.Then(p.conn.ScheduleServer(ctx, proposal), func(resp *proto.StringValue) (uuid.UUID, error) {
		id, err := uuid.Parse(resp.Value)
		if err != nil {
			return uuid.Nil, &ProtocolError{Operation: "schedule server", Field: "id", Value: resp.Value, Err: err}
		}
		return id, nil
	})
}

// WriteToScreen forwards data unmodified to the server's screen.
func (p *Privileged) WriteToScreen(ctx context.Context, server resource.SimpleServer, data []byte) *future.Future[struct{}] {
	return future.Discard(p.conn.WriteToScreen(ctx, &proto.WriteScreenRequest{
		ID:   server.ID.String(),
		Data: slices.Clone(data),
	}))
}

func (p *Privileged) Node(ctx context.Context, node resource.SimpleNode) *future.Future[resource.Node] {
	return future.Then(p.conn.Node(ctx, node.Name), func(d *proto.NodeDetail) (resource.Node, error) {
		return nodeFromWire(d), nil
	})
}

func (p *Privileged) Group(ctx context.Context, group resource.SimpleGroup) *future.Future[resource.Group] {
	return future.Then(p.conn.Group(ctx, group.Name), func(d *proto.GroupDetail) (resource.Group, error) {
		return groupFromWire(d), nil
	})
}

// Server fetches the server by id. The group is set only when the
// response carries one.
func (p *Privileged) Server(ctx context.Context, server resource.SimpleServer) *future.Future[resource.Server] {
	return future.Then(p.conn.Server(ctx, server.ID.String()), func(d *proto.ServerDetail) (resource.Server, error) {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return resource.Server{}, &ProtocolError{Operation: "get server", Field: "id", Value: d.ID, Err: err}
		}
		attrs := resource.ServerAttributes{
			Name:       d.Name,
			ID:         id,
			Node:       d.Node,
			Allocation: allocationFromWire(d.Allocation),
			Users:      d.Users,
			Token:      d.Token,
			State:      resource.State(d.State),
			Ready:      d.Ready,
		}
		if d.HasGroup() {
			attrs.Group = d.Group
		}
		return resource.NewServer(attrs), nil
	})
}

func (p *Privileged) Nodes(ctx context.Context) *future.Future[[]resource.SimpleNode] {
	return future.Then(p.conn.Nodes(ctx), func(list *proto.NodeList) ([]resource.SimpleNode, error) {
		out := make([]resource.SimpleNode, len(list.Names))
		for i, name := range list.Names {
			out[i] = resource.NewSimpleNode(name)
		}
		return out, nil
	})
}

func (p *Privileged) Groups(ctx context.Context) *future.Future[[]resource.SimpleGroup] {
	return future.Then(p.conn.Groups(ctx), func(list *proto.GroupList) ([]resource.SimpleGroup, error) {
		out := make([]resource.SimpleGroup, len(list.Names))
		for i, name := range list.Names {
			out[i] = resource.NewSimpleGroup(name)
		}
		return out, nil
	})
}

func (p *Privileged) Servers(ctx context.Context) *future.Future[[]resource.SimpleServer] {
	return future.Then(p.conn.Servers(ctx), func(list *proto.ServerList) ([]resource.SimpleServer, error) {
		out := make([]resource.SimpleServer, len(list.Servers))
		for i, ref := range list.Servers {
			id, err := uuid.Parse(ref.ID)
			if err != nil {
				return nil, &ProtocolError{Operation: "list servers", Field: "id", Value: ref.ID, Err: err}
			}
			out[i] = resource.NewSimpleServer(id, ref.Name)
		}
		return out, nil
	})
}

// addressing resolves a resource into its wire category and identifier.
type addressing struct {
	operation   string
	allowServer bool

	category proto.Category
	id       string
}

func (a *addressing) VisitNode(n resource.SimpleNode) error {
	a.category, a.id = proto.CategoryNode, n.Name
	return nil
}

func (a *addressing) VisitGroup(g resource.SimpleGroup) error {
	a.category, a.id = proto.CategoryGroup, g.Name
	return nil
}

func (a *addressing) VisitServer(s resource.SimpleServer) error {
	if !a.allowServer {
		return &UnsupportedResourceError{Operation: a.operation, Kind: resource.KindServer}
	}
	a.category, a.id = proto.CategoryServer, s.ID.String()
	return nil
}
