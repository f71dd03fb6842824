package resource

import "fmt"

// Capabilities are opaque to the client; the controller and the node's
// plugin interpret them.
type Capabilities struct {
	Memory     *uint32 `json:"memory,omitempty" yaml:"memory,omitempty"`
	MaxServers *uint32 `json:"max_servers,omitempty" yaml:"max_servers,omitempty"`
	Child      *string `json:"child,omitempty" yaml:"child,omitempty"`
}

// Constraints bound how many servers a group keeps and how it is
// prioritised against other groups.
type Constraints struct {
	Minimum  uint32 `json:"minimum" yaml:"minimum"`
	Maximum  uint32 `json:"maximum" yaml:"maximum"`
	Priority int32  `json:"priority" yaml:"priority"`
}

type Scaling struct {
	Enabled        bool    `json:"enabled" yaml:"enabled"`
	StartThreshold float32 `json:"start_threshold" yaml:"start_threshold"`
	StopEmpty      bool    `json:"stop_empty" yaml:"stop_empty"`
}

// Resources is the allocation a server asks a node for.
type Resources struct {
	Memory uint32 `json:"memory" yaml:"memory"`
	Swap   uint32 `json:"swap" yaml:"swap"`
	CPU    uint32 `json:"cpu" yaml:"cpu"`
	IO     uint32 `json:"io" yaml:"io"`
	Disk   uint32 `json:"disk" yaml:"disk"`
	Ports  uint32 `json:"ports" yaml:"ports"`
}

type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Retention controls whether a server's disk survives a stop.
type Retention int32

const (
	RetentionTemporary Retention = iota
	RetentionPermanent
)

func (r Retention) String() string {
	switch r {
	case RetentionTemporary:
		return "temporary"
	case RetentionPermanent:
		return "permanent"
	default:
		return fmt.Sprintf("retention(%d)", int32(r))
	}
}

// Fallback marks a group's servers as fallback targets for user transfers.
type Fallback struct {
	Enabled  bool  `json:"enabled" yaml:"enabled"`
	Priority int32 `json:"priority" yaml:"priority"`
}

// Specification describes the workload a server runs.
type Specification struct {
	Image         string     `json:"image" yaml:"image"`
	Settings      []KeyValue `json:"settings,omitempty" yaml:"settings,omitempty"`
	Environment   []KeyValue `json:"environment,omitempty" yaml:"environment,omitempty"`
	DiskRetention Retention  `json:"disk_retention" yaml:"disk_retention"`
	Fallback      *Fallback  `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

type Address struct {
	Host string `json:"host" yaml:"host"`
	Port uint32 `json:"port" yaml:"port"`
}

func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Allocation is what a node actually granted a server.
type Allocation struct {
	Ports         []Address     `json:"ports,omitempty" yaml:"ports,omitempty"`
	Resources     Resources     `json:"resources" yaml:"resources"`
	Specification Specification `json:"specification" yaml:"specification"`
}

// State is a server's lifecycle state as reported by the controller.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateRestarting
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateRestarting:
		return "restarting"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
