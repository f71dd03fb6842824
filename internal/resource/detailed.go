package resource

import (
	"slices"

	"github.com/google/uuid"
)

// Node is the full description of a node.
type Node struct {
	name              string
	plugin            string
	capabilities      Capabilities
	controllerAddress string
}

func NewNode(name, plugin string, capabilities Capabilities, controllerAddress string) Node {
	return Node{
		name:              name,
		plugin:            plugin,
		capabilities:      capabilities,
		controllerAddress: controllerAddress,
	}
}

func (n Node) Name() string { return n.name }
func (n Node) Plugin() string { return n.plugin }
func (n Node) Capabilities() Capabilities { return n.capabilities }
func (n Node) ControllerAddress() string { return n.controllerAddress }
func (n Node) Simple() SimpleNode { return SimpleNode{Name: n.name} }

// Group is the full description of a scheduling domain. The member node
// list keeps the order the controller reported.
type Group struct {
	name          string
	nodes         []string
	constraints   Constraints
	scaling       Scaling
	resources     Resources
	specification Specification
}

func NewGroup(name string, nodes []string, constraints Constraints, scaling Scaling, resources Resources, specification Specification) Group {
	return Group{
		name:          name,
		nodes:         slices.Clone(nodes),
		constraints:   constraints,
		scaling:       scaling,
		resources:     resources,
		specification: specification,
	}
}

func (g Group) Name() string { return g.name }

// Nodes returns a copy of the member node names.
func (g Group) Nodes() []string { return slices.Clone(g.nodes) }

func (g Group) Constraints() Constraints { return g.constraints }
func (g Group) Scaling() Scaling { return g.scaling }
func (g Group) Resources() Resources { return g.resources }
func (g Group) Specification() Specification { return g.specification }
func (g Group) Simple() SimpleGroup { return SimpleGroup{Name: g.name} }

// Server is the full description of a running workload.
type Server struct {
	name       string
	id         uuid.UUID
	group      *string
	node       string
	allocation Allocation
	users      uint32
	token      string
	state      State
	ready      bool
}

// ServerAttributes carries the fields of a detailed server. Group is nil
// when the server was scheduled outside any group.
type ServerAttributes struct {
	Name       string
	ID         uuid.UUID
	Group      *string
	Node       string
	Allocation Allocation
	Users      uint32
	Token      string
	State      State
	Ready      bool
}

func NewServer(attrs ServerAttributes) Server {
	s := Server{
		name:       attrs.Name,
		id:         attrs.ID,
		node:       attrs.Node,
		allocation: attrs.Allocation,
		users:      attrs.Users,
		token:      attrs.Token,
		state:      attrs.State,
		ready:      attrs.Ready,
	}
	if attrs.Group != nil {
		group := *attrs.Group
		s.group = &group
	}
	return s
}

func (s Server) Name() string { return s.name }
func (s Server) ID() uuid.UUID { return s.id }

// Group reports the parent group, if the server has one.
func (s Server) Group() (string, bool) {
	if s.group == nil {
		return "", false
	}
	return *s.group, true
}

func (s Server) Node() string { return s.node }
func (s Server) Allocation() Allocation { return s.allocation }
func (s Server) Users() uint32 { return s.users }
func (s Server) Token() string { return s.token }
func (s Server) State() State { return s.state }
func (s Server) Ready() bool { return s.ready }
func (s Server) Simple() SimpleServer { return SimpleServer{ID: s.id, Name: s.name} }
