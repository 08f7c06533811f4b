package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/history"
	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/runner"
	"github.com/hupe1980/meshstream/stream"
)

type runRequest struct {
	ThreadID string         `json:"thread_id,omitempty"`
	Message  string         `json:"message,omitempty"`
	Messages []core.Message `json:"messages,omitempty"`
}

func (r runRequest) input() []core.Message {
	msgs := append([]core.Message(nil), r.Messages...)
	if r.Message != "" {
		msgs = append(msgs, core.NewUserMessage(r.Message))
	}
	return msgs
}

type runStarted struct {
	RunID    string `json:"run_id"`
	ThreadID string `json:"thread_id,omitempty"`
	Mode     string `json:"mode"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	mode, err := stream.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	input := req.input()
	if len(input) == 0 {
		writeError(w, http.StatusBadRequest, "message or messages is required")
		return
	}

	runID, items, errs, err := s.runner.Run(r.Context(), input, mode)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, runner.ErrTooManyRuns) {
			status = http.StatusTooManyRequests
		}
		writeError(w, status, err.Error())
		return
	}

	sse := NewSSEWriter(w)
	logger := logging.With(s.logger, "run_id", runID)
	logger.Info("gateway.run.start", "mode", mode.String(), "messages", len(input))

	if err := sse.Send("run", runStarted{RunID: runID, ThreadID: req.ThreadID, Mode: mode.String()}); err != nil {
		_ = s.runner.Cancel(runID)
	}

	sent := 0
	for it := range items {
		if err := sse.Send(string(it.Kind), it); err != nil {
			logger.Debug("gateway.run.client_gone", "error", err)
			_ = s.runner.Cancel(runID)
			continue
		}
		sent++
	}

	for err := range errs {
		_ = sse.Send("failure", map[string]string{"error": err.Error()})
	}

	_ = sse.Send("done", map[string]any{"run_id": runID, "items": sent})
	logger.Info("gateway.run.complete", "items", sent)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Cancel(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeError(w, http.StatusNotFound, "history is not enabled")
		return
	}
	threads, err := s.opts.History.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, threads)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeError(w, http.StatusNotFound, "history is not enabled")
		return
	}
	thread, err := s.opts.History.Thread(r.Context(), r.PathValue("id"))
	if errors.Is(err, history.ErrThreadNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, thread)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
