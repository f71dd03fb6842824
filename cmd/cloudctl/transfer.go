package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ShadowFalcon24/atomic-cloud/internal/manage"
	"github.com/ShadowFalcon24/atomic-cloud/internal/permission"
	"github.com/ShadowFalcon24/atomic-cloud/internal/resource"
	"github.com/ShadowFalcon24/atomic-cloud/internal/transfer"
)

func newTransferCmd(v *viper.Viper) *cobra.Command {
	var toServer, toGroup string
	cmd := &cobra.Command{
		Use:   "transfer USER...",
		Short: "Move users to a server or group",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target transfer.Target
			switch {
			case toServer != "" && toGroup != "":
				return errors.New("--to-server and --to-group are mutually exclusive")
			case toServer != "":
				ref, err := serverRef(toServer)
				if err != nil {
					return err
				}
				target = transfer.ToServer(ref)
			case toGroup != "":
				target = transfer.ToGroup(resource.NewSimpleGroup(toGroup))
			default:
				return errors.New("one of --to-server or --to-group is required")
			}

			users := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("user %q: %w", arg, err)
				}
				users = append(users, id)
			}

			return runPrivileged(cmd, v, permission.CloudCommand, func(ctx context.Context, p *manage.Privileged) error {
				moved, err := p.Transfers().TransferUsers(ctx, users, target).Await(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d users transferred\n", moved, len(users))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&toServer, "to-server", "", "target server id")
	cmd.Flags().StringVar(&toGroup, "to-group", "", "target group name")
	return cmd
}
