package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ShadowFalcon24/atomic-cloud/internal/app"
	"github.com/ShadowFalcon24/atomic-cloud/internal/config"
	"github.com/ShadowFalcon24/atomic-cloud/internal/manage"
	"github.com/ShadowFalcon24/atomic-cloud/internal/permission"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)
	config.ConfigureEnv(v)

	var (
		cfgFile string
		noColor bool
	)
	root := &cobra.Command{
		Use:   "cloudctl",
		Short: "Manage nodes, groups and servers of an atomic-cloud controller.",
		Long: `cloudctl talks to the controller's manage service. Every command is
checked against the operator permissions from configuration before it
reaches the controller.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			return readConfig(v, cfgFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "configuration file (default is .atomic-cloud.yaml in . or $HOME)")
	flags.String("controller", "", "controller address (host:port)")
	flags.String("token", "", "controller token")
	flags.String("nats-url", "", "NATS URL for channels; empty keeps channels in process")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.StringP("output", "o", "json", "output format for get commands (json, yaml, table)")
	flags.BoolVar(&noColor, "no-color", false, "disable colored table output")
	bindFlag(v, "controller.address", flags.Lookup("controller"))
	bindFlag(v, "controller.token", flags.Lookup("token"))
	bindFlag(v, "channels.nats_url", flags.Lookup("nats-url"))
	bindFlag(v, "log.level", flags.Lookup("log-level"))

	root.AddCommand(
		newStopCmd(v),
		newNodeCmd(v),
		newGroupCmd(v),
		newServerCmd(v),
		newTransferCmd(v),
		newChannelCmd(v),
	)
	return root
}

func readConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(".atomic-cloud")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	return nil
}

// runPrivileged loads the controller configuration, checks perm and hands
// fn the management facade.
func runPrivileged(cmd *cobra.Command, v *viper.Viper, perm permission.Permission, fn func(ctx context.Context, p *manage.Privileged) error) error {
	rt, err := app.NewRuntime(v, "controller")
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(cmd.Context()))

	if err := perm.Require(rt.Grants()); err != nil {
		return err
	}
	p, err := rt.Privileged()
	if err != nil {
		return err
	}
	return fn(cmd.Context(), p)
}

func newStopCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask the controller to shut down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrivileged(cmd, v, permission.DisposeCommand, func(ctx context.Context, p *manage.Privileged) error {
				if _, err := p.StopController(ctx).Await(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "controller stop requested")
				return nil
			})
		},
	}
}
