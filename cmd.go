package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soar/dianach/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func NewCommand() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	var configPath string

	cmd := &cobra.Command{
		Use:   "dianach [server] [port] [ship]",
		Short: "dianach drives a simulation server's helm from a flight yoke",
		Long: `dianach reads a flight yoke's axes, hat and buttons, calibrates them,
and sends helm commands to a simulation server whenever they differ from
the ship's current state.`,
		Args:         cobra.MaximumNArgs(3),
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return config.SetupLogger(v.GetString("log_level"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ApplyArgs(v, args); err != nil {
				return err
			}
			cfg, err := config.LoadAndSetupLogger(v, configPath)
			if err != nil {
				return err
			}
			logrus.WithFields(cfg.LogrusFields()).Info("config loaded")
			return runBridge(cmd.Context(), cfg)
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVar(&configPath, "config", "", "config file path (default: dianach.{yaml,toml,json} in . or ~/.config/dianach)")
	globalFlags.StringP("log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.Int("poll-hz", 15, "yoke polling rate")

	flags := cmd.Flags()
	flags.String("transport", "ws", "server transport (ws, mqtt)")
	flags.String("mqtt-broker", "tcp://localhost:1883", "MQTT broker URL for the mqtt transport")
	flags.Bool("monitor", true, "serve the local monitor")
	flags.String("monitor-addr", "localhost:8080", "monitor listen address")
	flags.Bool("tray", false, "show a system tray icon")

	if err := config.BindFlags(v, flags, globalFlags); err != nil {
		logrus.WithError(err).Fatal("failed to bind flags")
	}

	cmd.AddCommand(
		NewCalibrateCommand(v, &configPath),
		NewVersionCommand(),
	)

	return cmd
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
