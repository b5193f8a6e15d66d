package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ConfDir = "/etc/siem-recorder"

	defaultNotifyRate = 10
)

func confDir() string {
	if v := os.Getenv("SIEM_CONF_DIR"); v != "" {
		return v
	}
	return ConfDir
}

// ConfFile is the default config path; honors SIEM_CONF_DIR.
func ConfFile() string {
	return filepath.Join(confDir(), "recorder.yaml")
}

type Config struct {
	ProjectID       string           `yaml:"project_id"`
	CredentialsFile string           `yaml:"credentials_file"`
	Ingest          IngestConfig     `yaml:"ingest"`
	Encryption      EncryptionConfig `yaml:"encryption"`
	Notify          NotifyConfig     `yaml:"notify"`
	Traffic         TrafficConfig    `yaml:"traffic"`
}

// IngestConfig covers both sides of the HTTP ingest path: URL/Token for the
// client backend, Listen for the server.
type IngestConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Listen string `yaml:"listen"`
}

type EncryptionConfig struct {
	Key     string `yaml:"key"`      // hex, 32 bytes
	KeyFile string `yaml:"key_file"` // file holding the hex key
}

type NotifyConfig struct {
	SMTP           SMTPConfig `yaml:"smtp"`
	PushWebhookURL string     `yaml:"push_webhook_url"`
	// RatePerMinute caps notifications per minute. Unset means 10; zero or
	// less disables limiting.
	RatePerMinute *int `yaml:"rate_per_minute"`
}

type TrafficConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	ProcNetDev      string `yaml:"proc_net_dev"`
}

// LoadConfig reads path (a missing file is not an error), applies environment
// overrides and defaults, then validates.
func LoadConfig(path string) (*Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ReadConfig is LoadConfig without validation. Read and parse errors are
// still returned.
func ReadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		"FIREBASE_PROJECT_ID":            &c.ProjectID,
		"GOOGLE_APPLICATION_CREDENTIALS": &c.CredentialsFile,
		"SIEM_INGEST_URL":                &c.Ingest.URL,
		"SIEM_INGEST_TOKEN":              &c.Ingest.Token,
		"SIEM_LISTEN":                    &c.Ingest.Listen,
		"SIEM_ENCRYPTION_KEY":            &c.Encryption.Key,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}

func (c *Config) setDefaults() {
	if c.Ingest.Listen == "" {
		c.Ingest.Listen = ":5000"
	}
	if c.Notify.RatePerMinute == nil {
		rate := defaultNotifyRate
		c.Notify.RatePerMinute = &rate
	}
	if c.Traffic.IntervalSeconds == 0 {
		c.Traffic.IntervalSeconds = 10
	}
	if c.Traffic.ProcNetDev == "" {
		c.Traffic.ProcNetDev = "/proc/net/dev"
	}
}

// UseIngest reports whether writes go through a remote ingest server instead
// of Firestore directly.
func (c *Config) UseIngest() bool {
	return c.Ingest.URL != ""
}

func (c *Config) Validate() error {
	if !c.UseIngest() && c.ProjectID == "" {
		return errors.New("project_id is required (or set ingest.url for HTTP ingest)")
	}
	if c.Encryption.Key != "" && c.Encryption.KeyFile != "" {
		return errors.New("encryption.key and encryption.key_file are mutually exclusive")
	}
	if c.Notify.SMTP.Host != "" {
		if err := c.Notify.SMTP.Validate(); err != nil {
			return fmt.Errorf("notify.smtp: %w", err)
		}
	}
	if c.Traffic.IntervalSeconds < 0 {
		return errors.New("traffic.interval_seconds must be positive")
	}
	return nil
}

// Sealer returns the configured threat-intel sealer, or nil when encryption
// is not configured.
func (c *Config) Sealer() (Sealer, error) {
	key := c.Encryption.Key
	if c.Encryption.KeyFile != "" {
		b, err := os.ReadFile(c.Encryption.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read encryption key: %w", err)
		}
		key = strings.TrimSpace(string(b))
	}
	if key == "" {
		return nil, nil
	}
	s, err := NewSealerFromHex(key)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Dispatcher builds the notification dispatcher. Channels without delivery
// settings fall back to LogNotifier.
func (c *Config) Dispatcher() (*Dispatcher, error) {
	perMinute := defaultNotifyRate
	if c.Notify.RatePerMinute != nil {
		perMinute = *c.Notify.RatePerMinute
	}
	d := NewDispatcher(perMinute)
	if c.Notify.SMTP.Host != "" {
		email, err := NewEmailNotifier(c.Notify.SMTP)
		if err != nil {
			return nil, err
		}
		d.Register(email)
	} else {
		d.Register(LogNotifier{Channel: ChannelEmail})
	}
	if c.Notify.PushWebhookURL != "" {
		d.Register(NewWebhookNotifier(c.Notify.PushWebhookURL))
	} else {
		d.Register(LogNotifier{Channel: ChannelPush})
	}
	return d, nil
}
