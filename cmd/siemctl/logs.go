package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	in "siem-recorder/internal"
)

var (
	logsSince    time.Duration
	logsSeverity string
	logsJSON     bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List logs across monthly partitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		end := time.Now()
		logs, err := in.QueryLogs(ctx, store, end.Add(-logsSince), end, logsSeverity)
		if err != nil {
			return err
		}
		if logsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(logs)
		}
		for _, l := range logs {
			fmt.Printf("%s  %-8s  %-10s  %s\n", l.Timestamp.Format(time.RFC3339), l.Severity, l.Source, l.Message)
		}
		fmt.Fprintf(os.Stderr, "%d logs\n", len(logs))
		return nil
	},
}

func init() {
	logsCmd.Flags().DurationVar(&logsSince, "since", 24*time.Hour, "how far back to look")
	logsCmd.Flags().StringVarP(&logsSeverity, "severity", "s", "all", "severity filter (info, warning, critical, all)")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "print JSON")
	rootCmd.AddCommand(logsCmd)
}
