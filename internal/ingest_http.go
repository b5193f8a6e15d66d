package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPIngest is a Backend that forwards records to an ingest server.
type HTTPIngest struct {
	BaseURL string
	Token   string // bearer token shared with the ingest server
	Client  *http.Client
}

func NewHTTPIngest(baseURL, token string) *HTTPIngest {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:5000"
	}
	return &HTTPIngest{BaseURL: strings.TrimRight(baseURL, "/"), Token: token, Client: &http.Client{Timeout: 10 * time.Second}}
}

type idResponse struct {
	ID string `json:"id"`
}

func (h *HTTPIngest) post(ctx context.Context, path string, body any) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ingest POST %s: %s: %s", path, resp.Status, strings.TrimSpace(string(b)))
	}
	var out idResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return "", fmt.Errorf("ingest POST %s: decode response: %w", path, err)
	}
	return out.ID, nil
}

func (h *HTTPIngest) SetUser(ctx context.Context, uid string, u User) error {
	_, err := h.post(ctx, "/ingest/user", userRequest{UID: uid, User: u})
	return err
}

func (h *HTTPIngest) AddLog(ctx context.Context, year, month string, e LogEntry) (string, error) {
	return h.post(ctx, "/ingest/log", logRequest{Year: year, Month: month, Log: e})
}

func (h *HTTPIngest) AddAlert(ctx context.Context, a Alert) (string, error) {
	return h.post(ctx, "/ingest/alert", a)
}

func (h *HTTPIngest) AddEvent(ctx context.Context, ev Event) (string, error) {
	return h.post(ctx, "/ingest/event", ev)
}

func (h *HTTPIngest) AddThreatIntel(ctx context.Context, ti ThreatIntel) (string, error) {
	return h.post(ctx, "/ingest/threat", ti)
}

func (h *HTTPIngest) AddNotificationRule(ctx context.Context, r NotificationRule) (string, error) {
	return h.post(ctx, "/ingest/rule", r)
}

func (h *HTTPIngest) SetSummary(ctx context.Context, s Summary) error {
	_, err := h.post(ctx, "/ingest/summary", s)
	return err
}

func (h *HTTPIngest) AddTraffic(ctx context.Context, t Traffic) (string, error) {
	return h.post(ctx, "/ingest/traffic", t)
}

// ProcessEvent submits a raw event to the server's processing pipeline.
func (h *HTTPIngest) ProcessEvent(ctx context.Context, ev IncomingEvent) (string, error) {
	return h.post(ctx, "/ingest/incoming", ev)
}

// Wire bodies for the keyed and partitioned routes.
type userRequest struct {
	UID  string `json:"uid"`
	User User   `json:"user"`
}

type logRequest struct {
	Year  string   `json:"year"`
	Month string   `json:"month"`
	Log   LogEntry `json:"log"`
}
