package resource

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies one of the closed set of cloud resource variants.
type Kind int

const (
	KindNode Kind = iota
	KindGroup
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindGroup:
		return "group"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Resource is something identifiable and addressable within the fleet.
// The set of implementations is closed: SimpleNode, SimpleGroup and
// SimpleServer. Code that needs to branch on the variant goes through
// Accept so a new variant breaks every dispatcher at compile time.
type Resource interface {
	Kind() Kind
	Accept(v Visitor) error
	sealed()
}

// Visitor handles each resource variant.
type Visitor interface {
	VisitNode(SimpleNode) error
	VisitGroup(SimpleGroup) error
	VisitServer(SimpleServer) error
}

// SimpleNode identifies a node by name.
type SimpleNode struct {
	Name string
}

func NewSimpleNode(name string) SimpleNode { return SimpleNode{Name: name} }

func (SimpleNode) Kind() Kind { return KindNode }
func (n SimpleNode) Accept(v Visitor) error { return v.VisitNode(n) }
func (SimpleNode) sealed() {}

// SimpleGroup identifies a group by name.
type SimpleGroup struct {
	Name string
}

func NewSimpleGroup(name string) SimpleGroup { return SimpleGroup{Name: name} }

func (SimpleGroup) Kind() Kind { return KindGroup }
func (g SimpleGroup) Accept(v Visitor) error { return v.VisitGroup(g) }
func (SimpleGroup) sealed() {}

// SimpleServer identifies a server by the UUID the controller assigned.
// Name is a best-effort display value; it is not unique across a
// server's lifecycle.
type SimpleServer struct {
	ID   uuid.UUID
	Name string
}

func NewSimpleServer(id uuid.UUID, name string) SimpleServer {
	return SimpleServer{ID: id, Name: name}
}

// ParseSimpleServer builds a SimpleServer from a string identifier.
func ParseSimpleServer(id, name string) (SimpleServer, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return SimpleServer{}, fmt.Errorf("parse server id %q: %w", id, err)
	}
	return SimpleServer{ID: parsed, Name: name}, nil
}

func (SimpleServer) Kind() Kind { return KindServer }
func (s SimpleServer) Accept(v Visitor) error { return v.VisitServer(s) }
func (SimpleServer) sealed() {}

func (s SimpleServer) String() string {
	if s.Name == "" {
		return s.ID.String()
	}
	return fmt.Sprintf("%s (%s)", s.Name, s.ID)
}
