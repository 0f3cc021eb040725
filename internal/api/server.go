// Package api exposes the read surface the dashboard polls, plus health and
// metrics endpoints.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"gridpulse/internal/refresh"
)

type Server struct {
	controller *refresh.Controller
	addr       string
}

func NewServer(controller *refresh.Controller, addr string) *Server {
	return &Server{controller: controller, addr: addr}
}

// Handler builds the route table. The dashboard is served from another
// origin, so the read-only routes are wrapped in a permissive CORS layer.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/grid", s.handleGrid).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("api: listening on %s", s.addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.controller.Status()); err != nil {
		log.Printf("api: encode grid status: %v", err)
	}
}

type HealthStatus struct {
	Status      string `json:"status"`
	LastUpdated string `json:"lastUpdated,omitempty"`
	Error       string `json:"error,omitempty"`
}

// handleHealth reports readiness: "starting" before the first snapshot,
// "degraded" while the latest refresh has failed, "ok" otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.controller.Status()

	health := HealthStatus{Status: "ok"}
	switch {
	case st.Snapshot == nil:
		health.Status = "starting"
		health.Error = st.Error
	case !st.IsLive:
		health.Status = "degraded"
		health.Error = st.Error
	}
	if !st.LastUpdated.IsZero() {
		health.LastUpdated = st.LastUpdated.UTC().Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
