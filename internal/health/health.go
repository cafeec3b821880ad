// Package health exposes the liveness endpoint and Prometheus metrics.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"TrendWatch/internal/store"
	"TrendWatch/pkg/logger"
)

// Server serves /health and /metrics.
type Server struct {
	Store  *store.Store
	DBPath string
	srv    *http.Server
}

// NewServer builds the health server listening on host:port.
func NewServer(st *store.Store, dbPath, host string, port int) *Server {
	s := &Server{Store: st, DBPath: dbPath}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves in a goroutine until Shutdown is called.
func (s *Server) Start() {
	go func() {
		logger.L().Info("health server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L().Error("health server", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type healthPayload struct {
	Status      string `json:"status"`
	LastRunDate string `json:"last_run_date,omitempty"`
	ReportCount int    `json:"report_count"`
	DBSizeBytes int64  `json:"db_size_bytes"`
	Time        string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := healthPayload{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	if n, err := s.Store.ReportCount(); err == nil {
		payload.ReportCount = n
	} else {
		payload.Status = "degraded"
	}
	if rep, err := s.Store.LastReport(); err == nil && rep != nil {
		payload.LastRunDate = rep.RunDate.Format("2006-01-02")
	}
	if fi, err := os.Stat(s.DBPath); err == nil {
		payload.DBSizeBytes = fi.Size()
	}

	w.Header().Set("Content-Type", "application/json")
	if payload.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(payload)
}
