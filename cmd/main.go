package main

import (
	"context"
	"fmt"
	"log"

	in "siem-recorder/internal"
)

// Seeds one record of every category with fixed sample data.
func main() {
	ctx := context.Background()

	cfg, err := in.LoadConfig(in.ConfFile())
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var b in.Backend
	if cfg.UseIngest() {
		b = in.NewHTTPIngest(cfg.Ingest.URL, cfg.Ingest.Token)
	} else {
		fs, err := in.NewFirestore(ctx, cfg.ProjectID, cfg.CredentialsFile)
		if err != nil {
			log.Fatalf("firestore init: %v", err)
		}
		defer fs.Close()
		b = fs
	}

	sealer, err := cfg.Sealer()
	if err != nil {
		log.Fatalf("encryption: %v", err)
	}
	var opts []in.RecorderOption
	if sealer != nil {
		opts = append(opts, in.WithSealer(sealer))
	}
	rec := in.NewRecorder(b, opts...)

	if err := seed(ctx, rec); err != nil {
		fmt.Printf("Error adding data: %v\n", err)
		return
	}
	fmt.Println("Data added successfully.")
}

func seed(ctx context.Context, rec *in.Recorder) error {
	if err := rec.AddUser(ctx, "user123", "user@example.com", "admin"); err != nil {
		return err
	}
	if _, err := rec.AddLog(ctx, "2024", "12", "info", "System initialized", "system", "startup", nil); err != nil {
		return err
	}
	if _, err := rec.AddAlert(ctx, "High CPU Usage", "CPU usage exceeded 90%", "high", "active", "log123"); err != nil {
		return err
	}
	if _, err := rec.AddEvent(ctx, "security", "firewall", "critical", "Unauthorized access detected", nil); err != nil {
		return err
	}
	if _, err := rec.AddThreatIntelligence(ctx, "IP", "192.168.1.1", "high", true); err != nil {
		return err
	}
	if _, err := rec.AddNotificationRule(ctx, "critical", "admin@example.com", true); err != nil {
		return err
	}
	if err := rec.AddSummary(ctx, "2024-12-23", 5, 10, 20); err != nil {
		return err
	}
	if _, err := rec.AddTraffic(ctx, 500); err != nil {
		return err
	}
	return nil
}
