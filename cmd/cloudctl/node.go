package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ShadowFalcon24/atomic-cloud/internal/manage"
	"github.com/ShadowFalcon24/atomic-cloud/internal/permission"
	"github.com/ShadowFalcon24/atomic-cloud/internal/resource"
)

func newNodeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Inspect and manage nodes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List node names",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPrivileged(cmd, v, permission.CloudCommand, func(ctx context.Context, p *manage.Privileged) error {
					nodes, err := p.Nodes(ctx).Await(ctx)
					if err != nil {
						return err
					}
					for _, n := range nodes {
						fmt.Fprintln(cmd.OutOrStdout(), n.Name)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get NAME",
			Short: "Show a node",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPrivileged(cmd, v, permission.CloudCommand, func(ctx context.Context, p *manage.Privileged) error {
					node, err := p.Node(ctx, resource.NewSimpleNode(args[0])).Await(ctx)
					if err != nil {
						return err
					}
					return printResource(cmd, viewNode(node))
				})
			},
		},
		newNodeCreateCmd(v),
		newToggleCmd(v, "enable", true, func(name string) resource.Resource { return resource.NewSimpleNode(name) }),
		newToggleCmd(v, "disable", false, func(name string) resource.Resource { return resource.NewSimpleNode(name) }),
		newDeleteCmd(v, "NAME", func(name string) (resource.Resource, error) { return resource.NewSimpleNode(name), nil }),
	)
	return cmd
}

func newNodeCreateCmd(v *viper.Viper) *cobra.Command {
	var (
		plugin     string
		address    string
		memory     uint32
		maxServers uint32
		child      string
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Register a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var caps resource.Capabilities
			if cmd.Flags().Changed("memory") {
				caps.Memory = &memory
			}
			if cmd.Flags().Changed("max-servers") {
				caps.MaxServers = &maxServers
			}
			if cmd.Flags().Changed("child") {
				caps.Child = &child
			}
			node := resource.NewNode(args[0], plugin, caps, address)
			return runPrivileged(cmd, v, permission.CloudCommand, func(ctx context.Context, p *manage.Privileged) error {
				if _, err := p.CreateNode(ctx, node).Await(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "node %s created\n", node.Name())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&plugin, "plugin", "local", "plugin driving the node")
	cmd.Flags().StringVar(&address, "address", "", "address servers use to reach the controller")
	cmd.Flags().Uint32Var(&memory, "memory", 0, "memory the node offers in MiB")
	cmd.Flags().Uint32Var(&maxServers, "max-servers", 0, "maximum servers on the node")
	cmd.Flags().StringVar(&child, "child", "", "child node name for plugins that nest nodes")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

// newToggleCmd enables or disables the resource named by the argument.
func newToggleCmd(v *viper.Viper, use string, active bool, target func(string) resource.Resource) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: fmt.Sprintf("%s a resource", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := target(args[0])
			return runPrivileged(cmd, v, permission.CloudCommand, func(ctx context.Context, p *manage.Privileged) error {
				if _, err := p.SetResource(ctx, r, active).Await(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %sd\n", r.Kind(), args[0], use)
				return nil
			})
		},
	}
}

// newDeleteCmd deletes the resource named by the argument. Deleting needs
// the dispose permission.
func newDeleteCmd(v *viper.Viper, argName string, target func(string) (resource.Resource, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "delete " + argName,
		Short: "Delete a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := target(args[0])
			if err != nil {
				return err
			}
			return runPrivileged(cmd, v, permission.DisposeCommand, func(ctx context.Context, p *manage.Privileged) error {
				if _, err := p.DeleteResource(ctx, r).Await(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s deleted\n", r.Kind(), args[0])
				return nil
			})
		},
	}
}
