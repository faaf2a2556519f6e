package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wifiscore/internal/config"
	"wifiscore/internal/diagnostics"
	"wifiscore/internal/engine"
	"wifiscore/internal/metrics"
	"wifiscore/internal/model"
	"wifiscore/internal/scorecard"
)

// Engine is the part of the engine the API reads and controls.
type Engine interface {
	Status() engine.Status
	Directory() *scorecard.Directory
	Snapshots() *metrics.Store
	Diagnostics() *diagnostics.Store
	Reset(ctx context.Context) error
	UpdateConfig(cfg *config.Config)
}

type Server struct {
	cfg      *config.Manager
	engine   Engine
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	version  string
}

type statusResponse struct {
	Status     string        `json:"status"`
	Time       string        `json:"time"`
	Version    string        `json:"version"`
	ConfigPath string        `json:"config_path"`
	Engine     engine.Status `json:"engine"`
	Ingest     ingestStatus  `json:"ingest"`
	API        apiStatus     `json:"api"`
}

type ingestStatus struct {
	REST      bool `json:"rest"`
	FileTail  bool `json:"file_tail"`
	TCPStream bool `json:"tcp_stream"`
	Kafka     bool `json:"kafka"`
	NATS      bool `json:"nats"`
}

type apiStatus struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

type ignoreLists struct {
	BSSIDs []string `json:"ignored_bssids"`
	SSIDs  []string `json:"ignored_ssids"`
}

func NewServer(cfg *config.Manager, eng Engine, gatherer prometheus.Gatherer, logger *slog.Logger, version string) *Server {
	return &Server{cfg: cfg, engine: eng, gatherer: gatherer, logger: logger, version: version}
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/records", s.handleRecords).Methods(http.MethodGet)
	r.HandleFunc("/records/{bssid}", s.handleRecord).Methods(http.MethodGet)
	r.HandleFunc("/records/{bssid}/signals/{event}/{frequency:[0-9]+}", s.handleSignal).Methods(http.MethodGet)
	r.HandleFunc("/networks", s.handleNetworks).Methods(http.MethodGet)
	r.HandleFunc("/networks/{ssid}", s.handleNetwork).Methods(http.MethodGet)
	r.HandleFunc("/snapshots", s.handleSnapshots).Methods(http.MethodGet)
	r.HandleFunc("/diagnostics", s.handleDiagnostics).Methods(http.MethodGet)
	r.HandleFunc("/config/ignore", s.handleGetIgnore).Methods(http.MethodGet)
	r.HandleFunc("/config/ignore", s.handleSetIgnore).Methods(http.MethodPost)
	r.HandleFunc("/admin/clear", s.handleClear).Methods(http.MethodPost)

	cfg := s.cfg.Get()
	if cfg.Metrics.Enabled && s.gatherer != nil {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

func Start(ctx context.Context, cfg *config.Manager, eng Engine, gatherer prometheus.Gatherer, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	httpServer := &http.Server{
		Addr:              current.Addr,
		Handler:           NewServer(cfg, eng, gatherer, logger, version).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	cfg := s.cfg.Get()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		Engine:     s.engine.Status(),
		Ingest: ingestStatus{
			REST:      cfg.Ingest.REST.Enabled,
			FileTail:  cfg.Ingest.FileTail.Enabled,
			TCPStream: cfg.Ingest.TCPStream.Enabled,
			Kafka:     cfg.Ingest.Kafka.Enabled,
			NATS:      cfg.Ingest.NATS.Enabled,
		},
		API: apiStatus{Enabled: cfg.API.Enabled, Addr: cfg.API.Addr},
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, _ *http.Request) {
	keys := s.engine.Directory().BSSIDs()
	writeJSON(w, http.StatusOK, map[string]any{
		"bssids": keys,
		"count":  len(keys),
	})
}

func (s *Server) handleNetworks(w http.ResponseWriter, _ *http.Request) {
	keys := s.engine.Directory().SSIDs()
	writeJSON(w, http.StatusOK, map[string]any{
		"ssids": keys,
		"count": len(keys),
	})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.engine.Directory().LookupBSSID(mux.Vars(r)["bssid"])
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newRecordView(rec))
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.engine.Directory().LookupSSID(mux.Vars(r)["ssid"])
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newRecordView(rec))
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	event, ok := model.ParseEventKind(vars["event"])
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown event kind"})
		return
	}
	freq, err := strconv.Atoi(vars["frequency"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rec, ok := s.engine.Directory().LookupBSSID(vars["bssid"])
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	b, ok := rec.LookupBucket(event, freq)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newSignalView(b))
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	kind := model.RecordKind(strings.ToLower(r.URL.Query().Get("kind")))
	switch kind {
	case "", model.RecordBSSID, model.RecordSSID:
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	list := s.engine.Snapshots().List(kind)
	writeJSON(w, http.StatusOK, map[string]any{
		"records": list,
		"count":   len(list),
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	var list []model.Diagnostic
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		ts, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		list = s.engine.Diagnostics().Since(ts)
		if limit > 0 && len(list) > limit {
			list = list[len(list)-limit:]
		}
	} else {
		list = s.engine.Diagnostics().List(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"diagnostics": list,
		"count":       len(list),
	})
}

func (s *Server) handleGetIgnore(w http.ResponseWriter, _ *http.Request) {
	cfg := s.cfg.Get()
	writeJSON(w, http.StatusOK, ignoreLists{
		BSSIDs: cfg.Scorecard.IgnoredBSSIDs,
		SSIDs:  cfg.Scorecard.IgnoredSSIDs,
	})
}

func (s *Server) handleSetIgnore(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var lists ignoreLists
	if err := json.Unmarshal(body, &lists); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	next := *s.cfg.Get()
	next.Scorecard.IgnoredBSSIDs = sanitizeList(lists.BSSIDs)
	next.Scorecard.IgnoredSSIDs = sanitizeList(lists.SSIDs)
	if err := s.cfg.Update(&next); err != nil {
		if s.logger != nil {
			s.logger.Warn("config update failed", "err", err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	s.engine.UpdateConfig(&next)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleClear drops state. Target "all" (the default) resets the engine and
// storage; "diagnostics" and "snapshots" clear only that in-memory store.
// A body that does not decode is rejected rather than treated as "all".
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var req struct {
		Target string `json:"target"`
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}
	target := strings.ToLower(strings.TrimSpace(req.Target))
	if target == "" {
		target = "all"
	}
	switch target {
	case "all":
		if err := s.engine.Reset(r.Context()); err != nil {
			if s.logger != nil {
				s.logger.Warn("reset failed", "err", err)
			}
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	case "diagnostics":
		s.engine.Diagnostics().Clear()
	case "snapshots":
		s.engine.Snapshots().Clear()
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "target": target})
}

func sanitizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
