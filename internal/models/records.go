package models

import (
	"time"

	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
)

// Node is a persisted node. Shared between the server and storage layers.
type Node struct {
	Detail    proto.NodeDetail `json:"detail"`
	Active    bool             `json:"active"`
	Version   int64            `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (n *Node) Name() string { return n.Detail.Name }

// Group is a persisted group.
type Group struct {
	Detail    proto.GroupDetail `json:"detail"`
	Active    bool              `json:"active"`
	Version   int64             `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (g *Group) Name() string { return g.Detail.Name }

// Server is a persisted server together with the priority it was
// scheduled with.
type Server struct {
	Detail    proto.ServerDetail `json:"detail"`
	Priority  int32              `json:"priority"`
	Version   int64              `json:"version"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (s *Server) ID() string { return s.Detail.ID }

// Clone returns a deep copy so cached records can be handed out without
// sharing slices.
func (s *Server) Clone() *Server {
	out := *s
	if s.Detail.Group != nil {
		group := *s.Detail.Group
		out.Detail.Group = &group
	}
	out.Detail.Allocation.Ports = append([]proto.Address(nil), s.Detail.Allocation.Ports...)
	return &out
}
