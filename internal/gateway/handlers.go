package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"wikichat/internal/agent"

	"github.com/google/uuid"
)

const maxRequestBytes = 1 << 20

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleChat always answers 200. Failures of any kind are reported in the
// response text as "Error: <description>".
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		slog.Debug("chat: unreadable body, treating as empty message", "error", err)
		req = chatRequest{}
	}

	requestID := uuid.NewString()
	ctx := agent.ContextWithRequestID(r.Context(), requestID)
	start := time.Now()

	slog.Info("chat request", "request_id", requestID, "message_length", len(req.Message))

	answer, err := s.runner.Run(ctx, req.Message)
	if err != nil {
		slog.Error("chat failed",
			"request_id", requestID,
			"error", err,
			"duration", time.Since(start),
		)
		writeJSON(w, http.StatusOK, chatResponse{Response: "Error: " + err.Error()})
		return
	}

	slog.Info("chat answered",
		"request_id", requestID,
		"answer_length", len(answer),
		"duration", time.Since(start),
	)
	writeJSON(w, http.StatusOK, chatResponse{Response: answer})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
