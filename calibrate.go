package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soar/dianach/internal/config"
	"github.com/soar/dianach/internal/joystick"
	"github.com/soar/dianach/internal/readout"
)

func NewCalibrateCommand(v *viper.Viper, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "calibrate",
		Aliases: []string{"cali"},
		Short:   "Show live calibrated axis values and suggest calibration points",
		Long: `Polls the yoke and prints the raw and calibrated value of each axis.
Leave the yoke at rest when starting, then sweep every axis to both ends.
On Ctrl+C the observed min, centre and max are printed as config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadAndSetupLogger(v, *configPath)
			if err != nil {
				return err
			}
			cal, err := cfg.Calibrations()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			reader := joystick.NewReader(joystick.Options{
				PollHz:    cfg.PollHz,
				Overrides: cfg.Overrides(),
			})
			errCh := make(chan error, 1)
			go func() {
				errCh <- reader.Run(ctx)
			}()

			out := cmd.OutOrStdout()
			tracker := readout.Run(ctx, reader.States(), cal, out)
			fmt.Fprintln(out)
			tracker.Suggest(out)
			return <-errCh
		},
	}
}
