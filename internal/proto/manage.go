// Package proto defines the wire messages of the manage service.
//
// Messages travel as CBOR (see internal/codec). Field keys are short and
// stable; renaming a Go field is safe, changing a tag is a wire break.
package proto

// Category selects the resource table a request addresses.
type Category int32

const (
	CategoryNode Category = iota
	CategoryGroup
	CategoryServer
)

func (c Category) String() string {
	switch c {
	case CategoryNode:
		return "NODE"
	case CategoryGroup:
		return "GROUP"
	case CategoryServer:
		return "SERVER"
	default:
		return "UNKNOWN"
	}
}

type Empty struct{}

type StringValue struct {
	Value string `cbor:"value"`
}

type UInt32Value struct {
	Value uint32 `cbor:"value"`
}

type SetResourceRequest struct {
	Category Category `cbor:"category"`
	ID       string   `cbor:"id"`
	Active   bool     `cbor:"active"`
}

type DeleteResourceRequest struct {
	Category Category `cbor:"category"`
	ID       string   `cbor:"id"`
}

type Capabilities struct {
	Memory     *uint32 `cbor:"memory,omitempty"`
	MaxServers *uint32 `cbor:"max_servers,omitempty"`
	Child      *string `cbor:"child,omitempty"`
}

type NodeDetail struct {
	Name              string       `cbor:"name"`
	Plugin            string       `cbor:"plugin"`
	Capabilities      Capabilities `cbor:"capabilities"`
	ControllerAddress string       `cbor:"ctrl_addr"`
}

type Constraints struct {
	Minimum  uint32 `cbor:"min"`
	Maximum  uint32 `cbor:"max"`
	Priority int32  `cbor:"prio"`
}

type Scaling struct {
	Enabled        bool    `cbor:"enabled"`
	StartThreshold float32 `cbor:"start_threshold"`
	StopEmpty      bool    `cbor:"stop_empty"`
}

type Resources struct {
	Memory uint32 `cbor:"memory"`
	Swap   uint32 `cbor:"swap"`
	CPU    uint32 `cbor:"cpu"`
	IO     uint32 `cbor:"io"`
	Disk   uint32 `cbor:"disk"`
	Ports  uint32 `cbor:"ports"`
}

type KeyValue struct {
	Key   string `cbor:"key"`
	Value string `cbor:"value"`
}

type Fallback struct {
	Enabled  bool  `cbor:"enabled"`
	Priority int32 `cbor:"prio"`
}

type Specification struct {
	Image         string     `cbor:"img"`
	Settings      []KeyValue `cbor:"settings,omitempty"`
	Environment   []KeyValue `cbor:"env,omitempty"`
	DiskRetention int32      `cbor:"retention"`
	Fallback      *Fallback  `cbor:"fallback,omitempty"`
}

type GroupDetail struct {
	Name          string        `cbor:"name"`
	Nodes         []string      `cbor:"nodes"`
	Constraints   Constraints   `cbor:"constraints"`
	Scaling       Scaling       `cbor:"scaling"`
	Resources     Resources     `cbor:"resources"`
	Specification Specification `cbor:"spec"`
}

type ServerProposal struct {
	Priority      int32         `cbor:"prio"`
	Name          string        `cbor:"name"`
	Node          string        `cbor:"node"`
	Resources     Resources     `cbor:"resources"`
	Specification Specification `cbor:"spec"`
}

type Address struct {
	Host string `cbor:"host"`
	Port uint32 `cbor:"port"`
}

type Allocation struct {
	Ports         []Address     `cbor:"ports"`
	Resources     Resources     `cbor:"resources"`
	Specification Specification `cbor:"spec"`
}

// ServerDetail describes a server. Group is absent (nil) when the server
// is not part of a group; an empty string is a present, empty group.
type ServerDetail struct {
	Name       string     `cbor:"name"`
	ID         string     `cbor:"id"`
	Group      *string    `cbor:"group,omitempty"`
	Node       string     `cbor:"node"`
	Allocation Allocation `cbor:"allocation"`
	Users      uint32     `cbor:"users"`
	Token      string     `cbor:"token"`
	State      int32      `cbor:"state"`
	Ready      bool       `cbor:"ready"`
}

// HasGroup reports whether the group presence flag is set.
func (d *ServerDetail) HasGroup() bool { return d != nil && d.Group != nil }

type WriteScreenRequest struct {
	ID   string `cbor:"id"`
	Data []byte `cbor:"data"`
}

type NameRequest struct {
	Name string `cbor:"name"`
}

type IDRequest struct {
	ID string `cbor:"id"`
}

type NodeList struct {
	Names []string `cbor:"names"`
}

type GroupList struct {
	Names []string `cbor:"names"`
}

type ServerRef struct {
	ID   string `cbor:"id"`
	Name string `cbor:"name"`
}

type ServerList struct {
	Servers []ServerRef `cbor:"servers"`
}

// TargetType selects what a user transfer moves users to.
type TargetType int32

const (
	TargetServer TargetType = iota
	TargetGroup
)

type TransferTarget struct {
	Type   TargetType `cbor:"type"`
	Target string     `cbor:"target"`
}

type TransferUsersRequest struct {
	Users  []string       `cbor:"users"`
	Target TransferTarget `cbor:"target"`
}
