package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ShadowFalcon24/atomic-cloud/internal/app"
	"github.com/ShadowFalcon24/atomic-cloud/internal/channel"
	"github.com/ShadowFalcon24/atomic-cloud/internal/permission"
)

func runChannels(cmd *cobra.Command, v *viper.Viper, fn func(ctx context.Context, m *channel.Manager) error) error {
	rt, err := app.NewRuntime(v, "channels")
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(cmd.Context()))

	if err := permission.CloudCommand.Require(rt.Grants()); err != nil {
		return err
	}
	m, err := rt.Channels(cmd.Context())
	if err != nil {
		return err
	}
	return fn(cmd.Context(), m)
}

func newChannelCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Publish to and listen on named channels",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "publish CHANNEL MESSAGE...",
			Short: "Publish a message",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChannels(cmd, v, func(ctx context.Context, m *channel.Manager) error {
					_, err := m.Publish(ctx, args[0], strings.Join(args[1:], " ")).Await(ctx)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "listen CHANNEL...",
			Short: "Print messages until interrupted",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChannels(cmd, v, func(ctx context.Context, m *channel.Manager) error {
					out := cmd.OutOrStdout()
					printer := channel.HandlerFunc(func(msg channel.Message) {
						fmt.Fprintf(out, "%s [%s] %s: %s\n", msg.SentAt.Local().Format(time.TimeOnly), msg.Channel, msg.Sender, msg.Body)
					})
					for _, name := range args {
						m.RegisterHandler(name, printer)
						if _, err := m.Subscribe(ctx, name).Await(ctx); err != nil {
							return err
						}
					}
					<-ctx.Done()
					return nil
				})
			},
		},
	)
	return cmd
}
