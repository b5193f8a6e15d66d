package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Notification channel names.
const (
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// ErrRateLimited is returned when a notification is dropped by the dispatcher.
var ErrRateLimited = errors.New("notification rate limited")

// Notification is what a rule match produces. To is the email recipient for
// the email channel; Topic is the push topic.
type Notification struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Severity string `json:"severity"`
	To       string `json:"to,omitempty"`
	Topic    string `json:"topic,omitempty"`
}

type Notifier interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	Close() error
}

// Dispatcher routes notifications to registered notifiers by channel name
// under a shared token bucket.
type Dispatcher struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	limiter   *rate.Limiter
}

// NewDispatcher allows perMinute notifications per minute with an equal burst;
// perMinute <= 0 disables limiting.
func NewDispatcher(perMinute int) *Dispatcher {
	d := &Dispatcher{notifiers: make(map[string]Notifier)}
	if perMinute > 0 {
		d.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return d
}

// Register adds n under its own name, replacing any previous notifier.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.Name()] = n
}

func (d *Dispatcher) Dispatch(ctx context.Context, channel string, n Notification) error {
	d.mu.RLock()
	nt, ok := d.notifiers[channel]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no notifier registered for %q", channel)
	}
	if d.limiter != nil && !d.limiter.Allow() {
		NotificationsTotal.WithLabelValues(channel, "rate_limited").Inc()
		return ErrRateLimited
	}
	if err := nt.Send(ctx, n); err != nil {
		NotificationsTotal.WithLabelValues(channel, "error").Inc()
		return fmt.Errorf("%s: %w", channel, err)
	}
	NotificationsTotal.WithLabelValues(channel, "ok").Inc()
	return nil
}

func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for name, n := range d.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	d.notifiers = make(map[string]Notifier)
	return errors.Join(errs...)
}

// LogNotifier only logs; it stands in for channels with no delivery configured.
type LogNotifier struct{ Channel string }

func (l LogNotifier) Name() string { return l.Channel }

func (l LogNotifier) Send(_ context.Context, n Notification) error {
	target := n.To
	if target == "" {
		target = n.Topic
	}
	log.Printf("notify %s -> %s: %s", l.Channel, target, n.Title)
	return nil
}

func (l LogNotifier) Close() error { return nil }

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (c SMTPConfig) Validate() error {
	if c.Host == "" {
		return errors.New("smtp host is required")
	}
	if c.Port == 0 {
		return errors.New("smtp port is required")
	}
	if c.From == "" {
		return errors.New("smtp from address is required")
	}
	return nil
}

// EmailNotifier mails each notification to Notification.To.
type EmailNotifier struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotifier(cfg SMTPConfig) (*EmailNotifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}
	return &EmailNotifier{cfg: cfg, sendMail: smtp.SendMail}, nil
}

func (e *EmailNotifier) Name() string { return ChannelEmail }

func (e *EmailNotifier) Send(ctx context.Context, n Notification) error {
	if n.To == "" {
		return errors.New("email notification without recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}
	addr := e.cfg.Host + ":" + strconv.Itoa(e.cfg.Port)
	return e.sendMail(addr, auth, e.cfg.From, []string{n.To}, e.message(n))
}

func (e *EmailNotifier) message(n Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", n.To)
	fmt.Fprintf(&b, "Subject: [%s] %s\r\n", strings.ToUpper(n.Severity), n.Title)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(n.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (e *EmailNotifier) Close() error { return nil }

// WebhookNotifier delivers push notifications by POSTing JSON to a relay.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (w *WebhookNotifier) Name() string { return ChannelPush }

func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(map[string]any{
		"topic":        n.Topic,
		"notification": map[string]string{"title": n.Title, "body": n.Body},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push relay: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return nil
}

func (w *WebhookNotifier) Close() error { return nil }
