package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Mindburn-Labs/charter/pkg/engine"
	"github.com/Mindburn-Labs/charter/pkg/fault"
	"github.com/Mindburn-Labs/charter/pkg/governance"
	"github.com/Mindburn-Labs/charter/pkg/money"
)

// HeaderValue carries the decimal wei attached to a call.
const HeaderValue = "X-Value"

const maxBodyBytes = 1 << 20

// Engine is the contract surface the server needs.
type Engine interface {
	Execute(ctx context.Context, c engine.Call) (engine.Result, error)
	ListProposals() []governance.ProposalView
	Treasury() engine.TreasuryView
	StateHash() string
}

// Options configures a Server. Nil fields get defaults: an X-Caller
// authenticator, no rate limiting, slog.Default and fresh metrics.
type Options struct {
	Auth    *Authenticator
	Limiter Limiter
	Logger  *slog.Logger
	Metrics *Metrics
}

type Server struct {
	engine  Engine
	auth    *Authenticator
	limiter Limiter
	logger  *slog.Logger
	metrics *Metrics
}

func NewServer(e Engine, opts Options) *Server {
	s := &Server{
		engine:  e,
		auth:    opts.Auth,
		limiter: opts.Limiter,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if s.auth == nil {
		s.auth = NewAuthenticator("")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "api")
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "The HTTP method is not supported for this endpoint")
	})

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		if s.limiter != nil {
			r.Use(RateLimit(s.limiter, s.logger))
		}
		r.Post("/calls/{op}", s.handleCall)
		r.Get("/proposals", s.handleListProposals)
		r.Get("/proposals/{id}", s.handleGetProposal)
		r.Get("/treasury", s.handleTreasury)
		r.Get("/state/hash", s.handleStateHash)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /v1/calls/{op}
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	if caller.IsZero() {
		WriteUnauthorized(w, r, "")
		return
	}

	value := money.Zero
	if h := r.Header.Get(HeaderValue); h != "" {
		v, err := money.Parse(h)
		if err != nil {
			WriteBadRequest(w, r, "invalid "+HeaderValue+": "+err.Error())
			return
		}
		value = v
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			WriteError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		WriteBadRequest(w, r, "failed to read body")
		return
	}

	s.execute(w, r, engine.Call{
		Caller: caller,
		Value:  value,
		Op:     chi.URLParam(r, "op"),
		Args:   json.RawMessage(body),
	})
}

// GET /v1/proposals/{id}
func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	if caller.IsZero() {
		WriteUnauthorized(w, r, "")
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteBadRequest(w, r, "proposal id must be a non-negative integer")
		return
	}
	args, _ := json.Marshal(engine.ProposalArgs{ProposalID: id})
	s.execute(w, r, engine.Call{Caller: caller, Op: engine.OpGetProposal, Args: args})
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, c engine.Call) {
	res, err := s.engine.Execute(r.Context(), c)
	s.metrics.ObserveCall(c.Op, string(fault.KindOf(err)))
	if err != nil {
		WriteFault(w, r, err, engine.IsReadOnly(c.Op))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListProposals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"proposals": s.engine.ListProposals()})
}

func (s *Server) handleTreasury(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Treasury())
}

func (s *Server) handleStateHash(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"state_hash": s.engine.StateHash()})
}
