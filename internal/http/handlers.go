package http

import (
	"context"
	"net/http"
	"time"
)

type healthBody struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Database string `json:"database"`
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) storeReachable(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.store.Ping(ctx) == nil
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !s.storeReachable(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleAPIHealth always answers 200 and reports the database state in the body.
func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	body := healthBody{Status: "ok", Message: "API is running", Database: "connected"}
	if !s.storeReachable(r.Context()) {
		body.Database = "disconnected"
	}
	NewJSONResponse().Body(body).Write(w)
}
