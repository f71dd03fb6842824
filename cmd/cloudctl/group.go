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

func newGroupCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Inspect and manage groups",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List group names",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPrivileged(cmd, v, permission.CloudCommand, func(ctx context.Context, p *manage.Privileged) error {
					groups, err := p.Groups(ctx).Await(ctx)
					if err != nil {
						return err
					}
					for _, g := range groups {
						fmt.Fprintln(cmd.OutOrStdout(), g.Name)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get NAME",
			Short: "Show a group",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPrivileged(cmd, v, permission.CloudCommand, func(ctx context.Context, p *manage.Privileged) error {
					group, err := p.Group(ctx, resource.NewSimpleGroup(args[0])).Await(ctx)
					if err != nil {
						return err
					}
					return printResource(cmd, viewGroup(group))
				})
			},
		},
		newGroupCreateCmd(v),
		newToggleCmd(v, "enable", true, func(name string) resource.Resource { return resource.NewSimpleGroup(name) }),
		newToggleCmd(v, "disable", false, func(name string) resource.Resource { return resource.NewSimpleGroup(name) }),
		newDeleteCmd(v, "NAME", func(name string) (resource.Resource, error) { return resource.NewSimpleGroup(name), nil }),
	)
	return cmd
}

func newGroupCreateCmd(v *viper.Viper) *cobra.Command {
	var (
		nodes       []string
		constraints resource.Constraints
		scaling     resource.Scaling
		res         resourceFlags
		spec        specFlags
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a group over existing nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specification, err := spec.specification()
			if err != nil {
				return err
			}
			group := resource.NewGroup(args[0], nodes, constraints, scaling, res.resources(), specification)
			return runPrivileged(cmd, v, permission.CloudCommand, func(ctx context.Context, p *manage.Privileged) error {
				if _, err := p.CreateGroup(ctx, group).Await(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "group %s created\n", group.Name())
				return nil
			})
		},
	}
	fs := cmd.Flags()
	fs.StringArrayVar(&nodes, "node", nil, "node the group may use (repeatable, order kept)")
	fs.Uint32Var(&constraints.Minimum, "min", 0, "minimum servers")
	fs.Uint32Var(&constraints.Maximum, "max", 1, "maximum servers")
	fs.Int32Var(&constraints.Priority, "priority", 0, "start priority")
	fs.BoolVar(&scaling.Enabled, "scaling", false, "enable automatic scaling")
	fs.Float32Var(&scaling.StartThreshold, "start-threshold", 0.8, "fill ratio that starts another server")
	fs.BoolVar(&scaling.StopEmpty, "stop-empty", false, "stop servers without users")
	res.register(fs)
	spec.register(fs)
	return cmd
}
