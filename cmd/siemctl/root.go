package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	in "siem-recorder/internal"
)

var (
	configPath string
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:   "siemctl",
	Short: "siemctl - SIEM record store tooling",
	Long: `siemctl runs the ingest server, samples network traffic, and reads back
SIEM records held in Firestore.

Examples:
  # Serve the ingest API backed by Firestore
  siemctl serve --config /etc/siem-recorder/recorder.yaml

  # Record traffic volume every 10s without touching Firestore
  siemctl traffic --dry-run

  # List critical logs for the last week
  siemctl logs --since 168h --severity critical`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", in.ConfFile(), "config file path")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "write to an in-memory store instead of Firestore")
}

func loadConfig() (*in.Config, error) {
	if !dryRun {
		return in.LoadConfig(configPath)
	}
	cfg, err := in.ReadConfig(configPath)
	if err != nil {
		return nil, err
	}
	// A dry run needs no project or credentials.
	if err := cfg.Validate(); err != nil {
		log.Printf("dry run: ignoring config validation: %v", err)
	}
	return cfg, nil
}

// openStore returns the Store for server-side use plus a close func.
func openStore(ctx context.Context, cfg *in.Config) (in.Store, func(), error) {
	if dryRun {
		log.Printf("dry run: using in-memory store")
		return in.NewMemoryStore(), func() {}, nil
	}
	fs, err := in.NewFirestore(ctx, cfg.ProjectID, cfg.CredentialsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("firestore init: %w", err)
	}
	return fs, fs.Close, nil
}

// openBackend prefers the ingest server when one is configured.
func openBackend(ctx context.Context, cfg *in.Config) (in.Backend, func(), error) {
	if !dryRun && cfg.UseIngest() {
		return in.NewHTTPIngest(cfg.Ingest.URL, cfg.Ingest.Token), func() {}, nil
	}
	return openStore(ctx, cfg)
}

func newRecorder(cfg *in.Config, b in.Backend) (*in.Recorder, error) {
	sealer, err := cfg.Sealer()
	if err != nil {
		return nil, err
	}
	if sealer == nil {
		return in.NewRecorder(b), nil
	}
	return in.NewRecorder(b, in.WithSealer(sealer)), nil
}
