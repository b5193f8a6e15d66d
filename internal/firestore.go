package internal

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// DefaultCredentialsPath is used when neither an explicit file nor
// GOOGLE_APPLICATION_CREDENTIALS is set.
const DefaultCredentialsPath = ConfDir + "/serviceAccountKey.json"

// Collection names. Logs are partitioned as logs/{year}/{month}/{id}.
const (
	UsersCollection             = "users"
	LogsCollection              = "logs"
	AlertsCollection            = "alerts"
	EventsCollection            = "events"
	ThreatIntelCollection       = "threatIntelligence"
	NotificationRulesCollection = "notificationRules"
	SummariesCollection         = "summaries"
	TrafficCollection           = "traffic"
)

type Firestore struct {
	Client *firestore.Client
	ProjID string
}

// NewFirestore opens the single long-lived client. Credentials are resolved
// from credsFile, then GOOGLE_APPLICATION_CREDENTIALS, then
// DefaultCredentialsPath. With FIRESTORE_EMULATOR_HOST set no credentials are
// needed.
func NewFirestore(ctx context.Context, projectID, credsFile string) (*Firestore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore: project id is required")
	}
	if os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		client, err := firestore.NewClient(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("firestore emulator client: %w", err)
		}
		return &Firestore{Client: client, ProjID: projectID}, nil
	}

	path, err := resolveCredentials(credsFile)
	if err != nil {
		return nil, err
	}
	client, err := firestore.NewClient(ctx, projectID, option.WithCredentialsFile(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client using %s: %w", path, err)
	}
	return &Firestore{Client: client, ProjID: projectID}, nil
}

func resolveCredentials(explicit string) (string, error) {
	candidates := []string{explicit, os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), DefaultCredentialsPath}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		fi, err := os.Stat(p)
		if err != nil {
			// An explicitly named file that cannot be read is an error, not a fallthrough.
			if p == explicit {
				return "", fmt.Errorf("credentials file %s: %w", p, err)
			}
			continue
		}
		if fi.IsDir() {
			return "", fmt.Errorf("credentials path %s is a directory", p)
		}
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("credentials file %s: %w", p, err)
		}
		f.Close()
		return p, nil
	}
	return "", fmt.Errorf("service account credentials not found: set GOOGLE_APPLICATION_CREDENTIALS or place key at %s", DefaultCredentialsPath)
}

func (f *Firestore) Close() {
	_ = f.Client.Close()
}

// Data is a caller-defined free-form mapping stored as a nested map.
type Data map[string]any

type User struct {
	ID    string `firestore:"-" json:"id,omitempty"`
	Email string `firestore:"email" json:"email"`
	Role  string `firestore:"role" json:"role"`
}

type LogEntry struct {
	ID             string    `firestore:"-" json:"id,omitempty"`
	Timestamp      time.Time `firestore:"timestamp" json:"timestamp"`
	Severity       string    `firestore:"severity" json:"severity"`
	Message        string    `firestore:"message" json:"message"`
	Source         string    `firestore:"source" json:"source"`
	Type           string    `firestore:"type" json:"type"`
	AdditionalData Data      `firestore:"additionalData" json:"additionalData"`
	Processed      bool      `firestore:"processed,omitempty" json:"processed,omitempty"`
}

type Alert struct {
	ID           string    `firestore:"-" json:"id,omitempty"`
	Title        string    `firestore:"title" json:"title"`
	Description  string    `firestore:"description" json:"description"`
	Severity     string    `firestore:"severity" json:"severity"`
	Status       string    `firestore:"status" json:"status"`
	Timestamp    time.Time `firestore:"timestamp" json:"timestamp"`
	RelatedLogID string    `firestore:"relatedLogId" json:"relatedLogId"`
}

type Event struct {
	ID             string    `firestore:"-" json:"id,omitempty"`
	Type           string    `firestore:"type" json:"type"`
	Source         string    `firestore:"source" json:"source"`
	Severity       string    `firestore:"severity" json:"severity"`
	Timestamp      time.Time `firestore:"timestamp" json:"timestamp"`
	Message        string    `firestore:"message" json:"message"`
	AdditionalData Data      `firestore:"additionalData" json:"additionalData"`
}

// ThreatIntel.Value may be sealed (see Sealer); the store never sees the key.
type ThreatIntel struct {
	ID         string    `firestore:"-" json:"id,omitempty"`
	Type       string    `firestore:"type" json:"type"`
	Value      string    `firestore:"value" json:"value"`
	Confidence string    `firestore:"confidence" json:"confidence"`
	Verified   bool      `firestore:"verified" json:"verified"`
	Timestamp  time.Time `firestore:"timestamp" json:"timestamp"`
}

// NotificationRule.Email is nil when the rule has no email target.
type NotificationRule struct {
	ID               string  `firestore:"-" json:"id,omitempty"`
	Severity         string  `firestore:"severity" json:"severity"`
	Email            *string `firestore:"email" json:"email"`
	PushNotification bool    `firestore:"pushNotification" json:"pushNotification"`
}

type Summary struct {
	Date          string `firestore:"date" json:"date"`
	CriticalCount int64  `firestore:"critical_count" json:"critical_count"`
	WarningCount  int64  `firestore:"warning_count" json:"warning_count"`
	InfoCount     int64  `firestore:"info_count" json:"info_count"`
}

type Traffic struct {
	ID        string    `firestore:"-" json:"id,omitempty"`
	Timestamp time.Time `firestore:"timestamp" json:"timestamp"`
	Volume    int64     `firestore:"volume" json:"volume"`
}
