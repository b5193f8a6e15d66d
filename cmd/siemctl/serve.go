package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	in "siem-recorder/internal"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP ingest server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		rec, err := newRecorder(cfg, store)
		if err != nil {
			return err
		}
		dispatch, err := cfg.Dispatcher()
		if err != nil {
			return err
		}
		defer dispatch.Close()

		srv := in.NewIngestServer(store, in.NewProcessor(rec, store, dispatch), cfg.Ingest.Token)
		addr := cfg.Ingest.Listen
		if listenAddr != "" {
			addr = listenAddr
		}
		if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (overrides ingest.listen)")
	rootCmd.AddCommand(serveCmd)
}
