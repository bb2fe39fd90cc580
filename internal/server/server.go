// Package server exposes one game instance over HTTP JSON. The surface
// mirrors the message shapes of the hosting environments the engine is
// written for: a single execute endpoint dispatching on message variant,
// plus read-only query endpoints.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/louisbranch/broadside/internal/battleship/domain"
	"github.com/louisbranch/broadside/internal/battleship/engine"
	"github.com/louisbranch/broadside/internal/battleship/proof"
	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
	"github.com/louisbranch/broadside/internal/platform/id"
)

// Server routes HTTP requests to one engine service.
type Server struct {
	engine *engine.Service
}

// New creates a server over the given engine.
func New(service *engine.Service) *Server {
	return &Server{engine: service}
}

// Handler returns the full HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Routes(mux)
	return WithCORS(mux)
}

// Routes registers the engine endpoints on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/execute", s.handleExecute)
	mux.HandleFunc("/v1/game_config", s.handleGameConfig)
	mux.HandleFunc("/v1/game_state", s.handleGameState)
	mux.HandleFunc("/v1/players", s.handlePlayers)
}

type playMsg struct {
	Field domain.Coord `json:"field"`
	Value bool         `json:"value"`
	Proof []proof.Step `json:"proof"`
}

// executeMsg carries exactly one message variant, named like the wire forms
// the engine's transitions are logged under.
type executeMsg struct {
	StartGame  *struct{} `json:"start_game,omitempty"`
	Play       *playMsg  `json:"play,omitempty"`
	TimeoutWin *struct{} `json:"timeout_win,omitempty"`
}

type executeRequest struct {
	Sender domain.Address `json:"sender"`
	Msg    executeMsg     `json:"msg"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if requestID, err := id.NewID(); err == nil {
		w.Header().Set("X-Request-Id", requestID)
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInvalidRequest, "malformed request body", err))
		return
	}
	if req.Sender == "" {
		writeError(w, apperrors.WithMetadata(apperrors.CodeInvalidRequest, "sender is required",
			map[string]string{"field": "sender"}))
		return
	}

	var (
		transition engine.Transition
		err        error
	)
	switch {
	case req.Msg.StartGame != nil:
		transition, err = s.engine.Begin(r.Context(), req.Sender)
	case req.Msg.Play != nil:
		play := req.Msg.Play
		transition, err = s.engine.Reveal(r.Context(), req.Sender, play.Field, play.Value, play.Proof)
	case req.Msg.TimeoutWin != nil:
		transition, err = s.engine.AdjudicateTimeout(r.Context(), req.Sender)
	default:
		writeError(w, apperrors.New(apperrors.CodeInvalidRequest, "unknown message variant"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	for _, signal := range transition.Signals {
		log.Printf("signal %s %s=%s", signal.Type, signal.FieldKey(), signal.Field)
	}
	writeJSON(w, http.StatusOK, transition)
}

func (s *Server) handleGameConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	config, err := s.engine.GameConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, config)
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	state, err := s.engine.GameState(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	players, err := s.engine.Players(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders a structured error through its gRPC status form so both
// surfaces expose the same code, reason, and metadata for one failure.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		domainErr = apperrors.Wrap(apperrors.CodeUnknown, err.Error(), err)
	}

	st := status.Convert(domainErr.ToGRPCStatus())
	body := map[string]any{
		"code":   string(domainErr.Code),
		"status": st.Code().String(),
		"error":  st.Message(),
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && len(info.Metadata) > 0 {
			body["metadata"] = info.Metadata
		}
	}
	writeJSON(w, httpStatus(domainErr.Code), body)
}

func httpStatus(code apperrors.Code) int {
	switch code.GRPCCode() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WithCORS allows any origin; deployments fronting real clients should
// restrict this to their own origins.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
