package manage

import (
	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
	"github.com/ShadowFalcon24/atomic-cloud/internal/resource"
)

func capabilitiesToWire(c resource.Capabilities) proto.Capabilities {
	return proto.Capabilities{Memory: c.Memory, MaxServers: c.MaxServers, Child: c.Child}
}

func capabilitiesFromWire(c proto.Capabilities) resource.Capabilities {
	return resource.Capabilities{Memory: c.Memory, MaxServers: c.MaxServers, Child: c.Child}
}

func resourcesToWire(r resource.Resources) proto.Resources {
	return proto.Resources{Memory: r.Memory, Swap: r.Swap, CPU: r.CPU, IO: r.IO, Disk: r.Disk, Ports: r.Ports}
}

func resourcesFromWire(r proto.Resources) resource.Resources {
	return resource.Resources{Memory: r.Memory, Swap: r.Swap, CPU: r.CPU, IO: r.IO, Disk: r.Disk, Ports: r.Ports}
}

func keyValuesToWire(kvs []resource.KeyValue) []proto.KeyValue {
	if kvs == nil {
		return nil
	}
	out := make([]proto.KeyValue, len(kvs))
	for i, kv := range kvs {
		out[i] = proto.KeyValue{Key: kv.Key, Value: kv.Value}
	}
	return out
}

func keyValuesFromWire(kvs []proto.KeyValue) []resource.KeyValue {
	if kvs == nil {
		return nil
	}
	out := make([]resource.KeyValue, len(kvs))
	for i, kv := range kvs {
		out[i] = resource.KeyValue{Key: kv.Key, Value: kv.Value}
	}
	return out
}

func specificationToWire(s resource.Specification) proto.Specification {
	spec := proto.Specification{
		Image:         s.Image,
		Settings:      keyValuesToWire(s.Settings),
		Environment:   keyValuesToWire(s.Environment),
		DiskRetention: int32(s.DiskRetention),
	}
	if s.Fallback != nil {
		spec.Fallback = &proto.Fallback{Enabled: s.Fallback.Enabled, Priority: s.Fallback.Priority}
	}
	return spec
}

func specificationFromWire(s proto.Specification) resource.Specification {
	spec := resource.Specification{
		Image:         s.Image,
		Settings:      keyValuesFromWire(s.Settings),
		Environment:   keyValuesFromWire(s.Environment),
		DiskRetention: resource.Retention(s.DiskRetention),
	}
	if s.Fallback != nil {
		spec.Fallback = &resource.Fallback{Enabled: s.Fallback.Enabled, Priority: s.Fallback.Priority}
	}
	return spec
}

func allocationFromWire(a proto.Allocation) resource.Allocation {
	var ports []resource.Address
	if a.Ports != nil {
		ports = make([]resource.Address, len(a.Ports))
		for i, p := range a.Ports {
			ports[i] = resource.Address{Host: p.Host, Port: p.Port}
		}
	}
	return resource.Allocation{
		Ports:         ports,
		Resources:     resourcesFromWire(a.Resources),
		Specification: specificationFromWire(a.Specification),
	}
}

func nodeToWire(n resource.Node) *proto.NodeDetail {
	return &proto.NodeDetail{
		Name:              n.Name(),
		Plugin:            n.Plugin(),
		Capabilities:      capabilitiesToWire(n.Capabilities()),
		ControllerAddress: n.ControllerAddress(),
	}
}

func nodeFromWire(d *proto.NodeDetail) resource.Node {
	return resource.NewNode(d.Name, d.Plugin, capabilitiesFromWire(d.Capabilities), d.ControllerAddress)
}

func groupToWire(g resource.Group) *proto.GroupDetail {
	c, s := g.Constraints(), g.Scaling()
	nodes := g.Nodes()
	if nodes == nil {
		nodes = []string{}
	}
	return &proto.GroupDetail{
		Name:          g.Name(),
		Nodes:         nodes,
		Constraints:   proto.Constraints{Minimum: c.Minimum, Maximum: c.Maximum, Priority: c.Priority},
		Scaling:       proto.Scaling{Enabled: s.Enabled, StartThreshold: s.StartThreshold, StopEmpty: s.StopEmpty},
		Resources:     resourcesToWire(g.Resources()),
		Specification: specificationToWire(g.Specification()),
	}
}

func groupFromWire(d *proto.GroupDetail) resource.Group {
	return resource.NewGroup(
		d.Name,
		d.Nodes,
		resource.Constraints{Minimum: d.Constraints.Minimum, Maximum: d.Constraints.Maximum, Priority: d.Constraints.Priority},
		resource.Scaling{Enabled: d.Scaling.Enabled, StartThreshold: d.Scaling.StartThreshold, StopEmpty: d.Scaling.StopEmpty},
		resourcesFromWire(d.Resources),
		specificationFromWire(d.Specification),
	)
}
