package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	in "siem-recorder/internal"
)

var trafficInterval time.Duration

var trafficCmd = &cobra.Command{
	Use:   "traffic",
	Short: "Sample /proc/net/dev and record traffic volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		b, closeBackend, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeBackend()

		interval := time.Duration(cfg.Traffic.IntervalSeconds) * time.Second
		if trafficInterval > 0 {
			interval = trafficInterval
		}
		sampler := in.NewTrafficSampler(in.NewRecorder(b), cfg.Traffic.ProcNetDev, interval)
		if err := sampler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	trafficCmd.Flags().DurationVarP(&trafficInterval, "interval", "i", 0, "sampling interval (overrides traffic.interval_seconds)")
	rootCmd.AddCommand(trafficCmd)
}
