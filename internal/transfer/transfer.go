// Package transfer exposes bulk user transfer operations scoped to one
// controller connection.
package transfer

import (
	"context"

	"github.com/google/uuid"

	"github.com/ShadowFalcon24/atomic-cloud/internal/future"
	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
	"github.com/ShadowFalcon24/atomic-cloud/internal/resource"
)

// Connection is the part of the transport the transfer accessor uses.
type Connection interface {
	TransferUsers(ctx context.Context, req *proto.TransferUsersRequest) *future.Future[*proto.UInt32Value]
}

// Target is where transferred users end up: a specific server or any
// server of a group.
type Target struct {
	kind proto.TargetType
	id   string
}

func ToServer(server resource.SimpleServer) Target {
	return Target{kind: proto.TargetServer, id: server.ID.String()}
}

func ToGroup(group resource.SimpleGroup) Target {
	return Target{kind: proto.TargetGroup, id: group.Name}
}

// Transfers is stateless; creating one has no effect on the connection.
type Transfers struct {
	conn Connection
}

func New(conn Connection) *Transfers {
	return &Transfers{conn: conn}
}

// TransferUsers moves users to target and resolves to the number of users
// the controller actually moved.
func (t *Transfers) TransferUsers(ctx context.Context, users []uuid.UUID, target Target) *future.Future[uint32] {
	ids := make([]string, len(users))
	for i, user := range users {
		ids[i] = user.String()
	}
	req := &proto.TransferUsersRequest{
		Users:  ids,
		Target: proto.TransferTarget{Type: target.kind, Target: target.id},
	}
	return future.Then(t.conn.TransferUsers(ctx, req), func(resp *proto.UInt32Value) (uint32, error) {
		return resp.Value, nil
	})
}
