package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ShadowFalcon24/atomic-cloud/internal/resource"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// printResource writes v in the format chosen by --output.
func printResource(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	return encode(cmd.OutOrStdout(), format, v)
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "table":
		t, ok := v.(tabular)
		if !ok {
			return fmt.Errorf("%T cannot be shown as a table", v)
		}
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		for _, row := range t.rows() {
			fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (want json, yaml or table)", format)
	}
}

type tabular interface {
	rows() [][2]string
}

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

func optional[T any](p *T) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

func keyValues(kvs []resource.KeyValue) string {
	if len(kvs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		parts = append(parts, kv.Key+"="+kv.Value)
	}
	return strings.Join(parts, ",")
}

type nodeView struct {
	Name              string                `json:"name" yaml:"name"`
	Plugin            string                `json:"plugin" yaml:"plugin"`
	Capabilities      resource.Capabilities `json:"capabilities" yaml:"capabilities"`
	ControllerAddress string                `json:"controller_address" yaml:"controller_address"`
}

func viewNode(n resource.Node) nodeView {
	return nodeView{
		Name:              n.Name(),
		Plugin:            n.Plugin(),
		Capabilities:      n.Capabilities(),
		ControllerAddress: n.ControllerAddress(),
	}
}

type groupView struct {
	Name          string                 `json:"name" yaml:"name"`
	Nodes         []string               `json:"nodes" yaml:"nodes"`
	Constraints   resource.Constraints   `json:"constraints" yaml:"constraints"`
	Scaling       resource.Scaling       `json:"scaling" yaml:"scaling"`
	Resources     resource.Resources     `json:"resources" yaml:"resources"`
	Specification resource.Specification `json:"specification" yaml:"specification"`
}

func (n nodeView) rows() [][2]string {
	return [][2]string{
		{"NAME", bold(n.Name)},
		{"PLUGIN", n.Plugin},
		{"MEMORY", optional(n.Capabilities.Memory)},
		{"MAX SERVERS", optional(n.Capabilities.MaxServers)},
		{"CHILD", optional(n.Capabilities.Child)},
		{"CONTROLLER", n.ControllerAddress},
	}
}

func viewGroup(g resource.Group) groupView {
	return groupView{
		Name:          g.Name(),
		Nodes:         g.Nodes(),
		Constraints:   g.Constraints(),
		Scaling:       g.Scaling(),
		Resources:     g.Resources(),
		Specification: g.Specification(),
	}
}

func (g groupView) rows() [][2]string {
	nodes := "-"
	if len(g.Nodes) > 0 {
		nodes = strings.Join(g.Nodes, ",")
	}
	return [][2]string{
		{"NAME", bold(g.Name)},
		{"NODES", nodes},
		{"MIN/MAX", fmt.Sprintf("%d/%d", g.Constraints.Minimum, g.Constraints.Maximum)},
		{"PRIORITY", strconv.Itoa(int(g.Constraints.Priority))},
		{"SCALING", strconv.FormatBool(g.Scaling.Enabled)},
		{"IMAGE", g.Specification.Image},
		{"ENV", keyValues(g.Specification.Environment)},
	}
}

type serverView struct {
	Name       string              `json:"name" yaml:"name"`
	ID         string              `json:"id" yaml:"id"`
	Group      *string             `json:"group,omitempty" yaml:"group,omitempty"`
	Node       string              `json:"node" yaml:"node"`
	Allocation resource.Allocation `json:"allocation" yaml:"allocation"`
	Users      uint32              `json:"users" yaml:"users"`
	State      string              `json:"state" yaml:"state"`
	Ready      bool                `json:"ready" yaml:"ready"`
}

func viewServer(s resource.Server) serverView {
	view := serverView{
		Name:       s.Name(),
		ID:         s.ID().String(),
		Node:       s.Node(),
		Allocation: s.Allocation(),
		Users:      s.Users(),
		State:      s.State().String(),
		Ready:      s.Ready(),
	}
	if group, ok := s.Group(); ok {
		view.Group = &group
	}
	return view
}

func (s serverView) rows() [][2]string {
	ports := make([]string, 0, len(s.Allocation.Ports))
	for _, p := range s.Allocation.Ports {
		ports = append(ports, p.String())
	}
	if len(ports) == 0 {
		ports = append(ports, "-")
	}
	ready := red("no")
	if s.Ready {
		ready = green("yes")
	}
	return [][2]string{
		{"NAME", bold(s.Name)},
		{"ID", s.ID},
		{"GROUP", optional(s.Group)},
		{"NODE", cyan(s.Node)},
		{"PORTS", strings.Join(ports, ",")},
		{"USERS", strconv.FormatUint(uint64(s.Users), 10)},
		{"STATE", colorState(s.State)},
		{"READY", ready},
	}
}

func colorState(state string) string {
	switch state {
	case resource.StateRunning.String():
		return green(state)
	case resource.StateStopping.String():
		return red(state)
	default:
		return yellow(state)
	}
}
