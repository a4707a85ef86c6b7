package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gravitysim/gravity/internal/dispatcher"
	"github.com/gravitysim/gravity/internal/orbit"
	"github.com/gravitysim/gravity/internal/parser"
	"github.com/gravitysim/gravity/internal/simulation"
	"github.com/gravitysim/gravity/internal/worker"
)

const maxCommandBytes = 64 << 10

// CommandRequest is the body of POST /command. Either Line holds a console
// line, or Command and Args name a command directly.
type CommandRequest struct {
	Line    string   `json:"line,omitempty"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// CommandResponse is the reply to POST /command.
type CommandResponse struct {
	Command string `json:"command,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.deps.Simulation != nil {
		snap := s.deps.Simulation.Snapshot()
		resp["tick"] = snap.Tick
		resp["running"] = snap.Running
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Simulation == nil {
		writeJSON(w, http.StatusServiceUnavailable, CommandResponse{Error: "no simulation"})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Simulation.Snapshot())
}

// parseCommandRequest accepts a JSON CommandRequest or a plain text line.
func parseCommandRequest(r *http.Request) (CommandRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		return CommandRequest{}, err
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req CommandRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return CommandRequest{}, err
		}
		return req, nil
	}
	return CommandRequest{Line: string(body)}, nil
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow(r) {
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordRateLimited()
		}
		writeJSON(w, http.StatusTooManyRequests, CommandResponse{Error: "rate limit exceeded"})
		return
	}
	if s.deps.Dispatcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, CommandResponse{Error: "no dispatcher"})
		return
	}

	req, err := parseCommandRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, CommandResponse{Error: err.Error()})
		return
	}

	var (
		command string
		result  any
	)
	if req.Command != "" {
		command = parser.CommandName(req.Command)
		result, err = s.deps.Dispatcher.Dispatch(dispatcher.Event{
			Command: command,
			Args:    parser.CleanArgs(req.Args),
		})
	} else {
		command, _, _ = parser.SplitLine(req.Line)
		result, err = worker.Execute(s.deps.Dispatcher, req.Line)
	}
	if s.deps.Metrics != nil && command != "" {
		s.deps.Metrics.RecordCommand(command, err)
	}

	if err != nil {
		s.log.Debug("Command failed", "command", command, "error", err)
		writeJSON(w, statusFor(err), CommandResponse{Command: command, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Command: command, Result: result})
}

// statusFor maps command errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dispatcher.ErrUnknownCommand),
		errors.Is(err, simulation.ErrUnknownBody):
		return http.StatusNotFound
	case errors.Is(err, dispatcher.ErrQueueFull),
		errors.Is(err, dispatcher.ErrClosed),
		errors.Is(err, simulation.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, simulation.ErrDuplicateBody):
		return http.StatusConflict
	case errors.Is(err, parser.ErrEmptyCommand),
		errors.Is(err, parser.ErrUnbalancedQuote),
		errors.Is(err, parser.ErrMissingArgs),
		errors.Is(err, parser.ErrInvalidNumber),
		errors.Is(err, orbit.ErrZeroRadius),
		errors.Is(err, orbit.ErrRadialOrbit):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
