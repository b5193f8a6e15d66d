package internal

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxIngestBody = 1 << 20

// IngestServer accepts records over HTTP and writes them to a Store.
type IngestServer struct {
	Store     Store
	Processor *Processor
	Token     string
	Now       func() time.Time

	srv *http.Server
}

func NewIngestServer(store Store, proc *Processor, token string) *IngestServer {
	return &IngestServer{Store: store, Processor: proc, Token: token, Now: time.Now}
}

// Router builds the chi router. Exposed for tests.
func (s *IngestServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "host": GetHostname(), "os": GetOSVersion()})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/ingest", func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/user", s.counted("user", s.handleUser))
		r.Post("/log", s.counted("log", s.handleLog))
		r.Post("/alert", s.counted("alert", s.handleAlert))
		r.Post("/event", s.counted("event", s.handleEvent))
		r.Post("/threat", s.counted("threat", s.handleThreat))
		r.Post("/rule", s.counted("rule", s.handleRule))
		r.Post("/summary", s.counted("summary", s.handleSummary))
		r.Post("/traffic", s.counted("traffic", s.handleTraffic))
		r.Post("/incoming", s.counted("incoming", s.handleIncoming))
	})
	return r
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *IngestServer) ListenAndServe(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.ListenAndServe() }()
	log.Printf("ingest server listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *IngestServer) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" {
			got := r.Header.Get("Authorization")
			if subtle.ConstantTimeCompare([]byte(got), []byte("Bearer "+s.Token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *IngestServer) counted(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(sr, r)
		IngestRequestsTotal.WithLabelValues(route, strconv.Itoa(sr.status)).Inc()
	}
}

func (s *IngestServer) stamp(t *time.Time) {
	if t.IsZero() {
		*t = s.Now()
	}
}

func (s *IngestServer) handleUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, req.UID, s.Store.SetUser(r.Context(), req.UID, req.User))
}

func (s *IngestServer) handleLog(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if !decode(w, r, &req) {
		return
	}
	s.stamp(&req.Log.Timestamp)
	req.Log.AdditionalData = orEmpty(req.Log.AdditionalData)
	id, err := s.Store.AddLog(r.Context(), req.Year, req.Month, req.Log)
	s.respond(w, id, err)
}

func (s *IngestServer) handleAlert(w http.ResponseWriter, r *http.Request) {
	var a Alert
	if !decode(w, r, &a) {
		return
	}
	s.stamp(&a.Timestamp)
	id, err := s.Store.AddAlert(r.Context(), a)
	s.respond(w, id, err)
}

func (s *IngestServer) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev Event
	if !decode(w, r, &ev) {
		return
	}
	s.stamp(&ev.Timestamp)
	ev.AdditionalData = orEmpty(ev.AdditionalData)
	id, err := s.Store.AddEvent(r.Context(), ev)
	s.respond(w, id, err)
}

func (s *IngestServer) handleThreat(w http.ResponseWriter, r *http.Request) {
	var ti ThreatIntel
	if !decode(w, r, &ti) {
		return
	}
	if err := ValidateThreatIntel(ti); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.stamp(&ti.Timestamp)
	id, err := s.Store.AddThreatIntel(r.Context(), ti)
	s.respond(w, id, err)
}

func (s *IngestServer) handleRule(w http.ResponseWriter, r *http.Request) {
	var rule NotificationRule
	if !decode(w, r, &rule) {
		return
	}
	id, err := s.Store.AddNotificationRule(r.Context(), rule)
	s.respond(w, id, err)
}

func (s *IngestServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	var sum Summary
	if !decode(w, r, &sum) {
		return
	}
	s.respond(w, sum.Date, s.Store.SetSummary(r.Context(), sum))
}

func (s *IngestServer) handleTraffic(w http.ResponseWriter, r *http.Request) {
	var t Traffic
	if !decode(w, r, &t) {
		return
	}
	s.stamp(&t.Timestamp)
	id, err := s.Store.AddTraffic(r.Context(), t)
	s.respond(w, id, err)
}

func (s *IngestServer) handleIncoming(w http.ResponseWriter, r *http.Request) {
	if s.Processor == nil {
		writeError(w, http.StatusNotImplemented, "event processing disabled")
		return
	}
	var ev IncomingEvent
	if !decode(w, r, &ev) {
		return
	}
	res, err := s.Processor.Process(r.Context(), ev)
	if errors.Is(err, ErrInvalidSeverity) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Printf("process event from %s: %v", ev.Source, err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": res.LogID, "result": res})
}

func (s *IngestServer) respond(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, errBadKey) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Printf("ingest write failed: %v", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
