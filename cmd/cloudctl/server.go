package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ShadowFalcon24/atomic-cloud/internal/manage"
	"github.com/ShadowFalcon24/atomic-cloud/internal/permission"
	"github.com/ShadowFalcon24/atomic-cloud/internal/resource"
)

// serverRef addresses a server by id; the name is unknown on the command
// line and not needed by the controller.
func serverRef(id string) (resource.SimpleServer, error) {
	return resource.ParseSimpleServer(id, "")
}

func newServerCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Inspect and manage servers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List servers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPrivileged(cmd, v, permission.CloudCommand, func(ctx context.Context, p *manage.Privileged) error {
					servers, err := p.Servers(ctx).Await(ctx)
					if err != nil {
						return err
					}
					for _, s := range servers {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.ID, s.Name)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get ID",
			Short: "Show a server",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ref, err := serverRef(args[0])
				if err != nil {
					return err
				}
				return runPrivileged(cmd, v, permission.CloudCommand, func(ctx context.Context, p *manage.Privileged) error {
					server, err := p.Server(ctx, ref).Await(ctx)
					if err != nil {
						return err
					}
					return printResource(cmd, viewServer(server))
				})
			},
		},
		&cobra.Command{
			Use:   "screen ID TEXT...",
			Short: "Write a line to a server's screen",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ref, err := serverRef(args[0])
				if err != nil {
					return err
				}
				line := strings.Join(args[1:], " ") + "\n"
				return runPrivileged(cmd, v, permission.CloudCommand, func(ctx context.Context, p *manage.Privileged) error {
					_, err := p.WriteToScreen(ctx, ref, []byte(line)).Await(ctx)
					return err
				})
			},
		},
		newScheduleCmd(v),
		newDeleteCmd(v, "ID", func(id string) (resource.Resource, error) { return serverRef(id) }),
	)
	return cmd
}

func newScheduleCmd(v *viper.Viper) *cobra.Command {
	var (
		node     string
		priority int32
		res      resourceFlags
		spec     specFlags
	)
	cmd := &cobra.Command{
		Use:   "schedule NAME",
		Short: "Schedule a server on a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specification, err := spec.specification()
			if err != nil {
				return err
			}
			return runPrivileged(cmd, v, permission.CloudCommand, func(ctx context.Context, p *manage.Privileged) error {
				id, err := p.ScheduleServer(ctx, priority, args[0], resource.NewSimpleNode(node), res.resources(), specification).Await(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&node, "node", "", "node to place the server on")
	fs.Int32Var(&priority, "priority", 0, "scheduling priority")
	res.register(fs)
	spec.register(fs)
	_ = cmd.MarkFlagRequired("node")
	return cmd
}
