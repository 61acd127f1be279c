// Package http serves machines over a JSON API.
//
// Every machine lives in a session.Manager. Edits are persisted after each
// request; run-mode operations stay in memory until the machine returns to
// edit mode.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/turing/internal/logging"
	"github.com/aretw0/turing/pkg/codec"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
	"github.com/aretw0/turing/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// Server holds the handlers' dependencies.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	gatherer prometheus.Gatherer
	version  string
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts GET /metrics for the given gatherer.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithVersion is reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = strings.TrimSpace(v)
	}
}

// NewHandler creates the HTTP handler for the session manager.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		version:  "dev",
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	return enableCORS(s.validateRequests(s.routes()))
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/openapi.yaml", s.GetSpec)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/machines", func(r chi.Router) {
		r.Post("/", s.CreateMachine)
		r.Get("/", s.ListMachines)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetMachine)
			r.Delete("/", s.DeleteMachine)
			r.Get("/view", s.GetView)
			r.Get("/events", s.SubscribeEvents)

			r.Post("/run", s.EnterRun)
			r.Post("/edit", s.ExitRun)
			r.Post("/step", s.Step)
			r.Post("/back", s.Back)
			r.Post("/seek", s.Seek)

			r.Post("/undo", s.Undo)
			r.Post("/redo", s.Redo)

			r.Post("/states", s.AddState)
			r.Patch("/states/{sid}", s.PatchState)
			r.Delete("/states/{sid}", s.DeleteState)
			r.Post("/transitions", s.AddTransition)
			r.Patch("/transitions/{tid}", s.PatchTransition)
			r.Delete("/transitions/{tid}", s.DeleteTransition)
			r.Put("/tape", s.SetTape)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusFor maps core errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMachineNotFound),
		errors.Is(err, domain.ErrStateNotFound),
		errors.Is(err, domain.ErrTransitionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRunModeActive),
		errors.Is(err, domain.ErrNotInRunMode),
		errors.Is(err, domain.ErrNothingToUndo),
		errors.Is(err, domain.ErrNothingToRedo):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStepOutOfRange),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidSymbol),
		errors.Is(err, domain.ErrNameTaken),
		errors.Is(err, domain.ErrNoStartState),
		errors.Is(err, domain.ErrMalformedMachine),
		errors.Is(err, domain.ErrDuplicateID),
		errors.Is(err, codec.ErrUnknownFormat):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", errBadRequest, err)
	}
	return nil
}

// update runs an edit and answers with the resulting view.
func (s *Server) update(w http.ResponseWriter, r *http.Request, fn func(*machine.Machine) error) {
	id := chi.URLParam(r, "id")
	var view machine.View
	err := s.Sessions.Update(r.Context(), id, func(_ context.Context, m *machine.Machine) error {
		if err := fn(m); err != nil {
			return err
		}
		view = m.View(0, 0)
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(id, view)
	writeJSON(w, http.StatusOK, view)
}

// format resolves ?format=, defaulting to JSON.
func (s *Server) format(r *http.Request) (codec.Format, error) {
	p, err := bindFormatParams(r)
	if err != nil || p.Format == nil || *p.Format == "" {
		return codec.FormatJSON, err
	}
	return codec.ParseFormat(*p.Format)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "turing-http",
		"version": s.version,
	})
}

// CreateMachine handles POST /machines. The body is an optional snapshot in
// the format named by ?format= (json by default).
func (s *Server) CreateMachine(w http.ResponseWriter, r *http.Request) {
	format, err := s.format(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	var snap *domain.Snapshot
	if len(strings.TrimSpace(string(body))) > 0 {
		if snap, err = codec.Unmarshal(format, body); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	id, _, err := s.Sessions.Create(r.Context(), snap)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("Machine created", "session_id", id)
	writeJSON(w, http.StatusCreated, Created{ID: id})
}

// ListMachines handles GET /machines.
func (s *Server) ListMachines(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// GetMachine handles GET /machines/{id}. ?format=tm|yaml|json selects the
// encoding of the snapshot.
func (s *Server) GetMachine(w http.ResponseWriter, r *http.Request) {
	format, err := s.format(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var data []byte
	err = s.Sessions.Do(r.Context(), chi.URLParam(r, "id"), func(_ context.Context, m *machine.Machine) error {
		var err error
		data, err = codec.Marshal(format, m.Save())
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	switch format {
	case codec.FormatXML:
		w.Header().Set("Content-Type", "application/xml")
	case codec.FormatYAML:
		w.Header().Set("Content-Type", "text/yaml")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	_, _ = w.Write(data)
}

// DeleteMachine handles DELETE /machines/{id}.
func (s *Server) DeleteMachine(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetView handles GET /machines/{id}/view?from=&count=.
func (s *Server) GetView(w http.ResponseWriter, r *http.Request) {
	p, err := bindViewParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	from, count := 0, 0
	if p.From != nil {
		from = *p.From
	}
	if p.Count != nil {
		count = *p.Count
	}

	var view machine.View
	err = s.Sessions.Do(r.Context(), chi.URLParam(r, "id"), func(_ context.Context, m *machine.Machine) error {
		view = m.View(from, count)
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// EnterRun handles POST /machines/{id}/run.
func (s *Server) EnterRun(w http.ResponseWriter, r *http.Request) {
	s.simulate(w, r, func(ctx context.Context, m *machine.Machine) (any, error) {
		if err := m.EnterRunMode(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// ExitRun handles POST /machines/{id}/edit.
func (s *Server) ExitRun(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, func(m *machine.Machine) error {
		m.ExitRunMode()
		return nil
	})
}

// Step handles POST /machines/{id}/step.
func (s *Server) Step(w http.ResponseWriter, r *http.Request) {
	s.simulate(w, r, func(ctx context.Context, m *machine.Machine) (any, error) {
		moved, outcome, err := m.StepForward(ctx)
		if err != nil {
			return nil, err
		}
		return StepResult{Moved: moved, Outcome: outcome}, nil
	})
}

// Back handles POST /machines/{id}/back.
func (s *Server) Back(w http.ResponseWriter, r *http.Request) {
	s.simulate(w, r, func(ctx context.Context, m *machine.Machine) (any, error) {
		atStart, err := m.StepBack(ctx)
		if err != nil {
			return nil, err
		}
		return BackResult{AtStart: atStart}, nil
	})
}

// Seek handles POST /machines/{id}/seek with either {"step": n} or {"t": x}.
func (s *Server) Seek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if (req.Step == nil) == (req.T == nil) {
		s.fail(w, r, fmt.Errorf("%w: exactly one of step or t is required", errBadRequest))
		return
	}
	s.simulate(w, r, func(ctx context.Context, m *machine.Machine) (any, error) {
		if req.Step != nil {
			return nil, m.ChangeStep(ctx, *req.Step)
		}
		atStart, err := m.ChangeStepNormalized(ctx, *req.T)
		if err != nil {
			return nil, err
		}
		return BackResult{AtStart: atStart}, nil
	})
}

// simulate runs a run-mode operation. A nil result answers with the view;
// otherwise the view is embedded in the result.
func (s *Server) simulate(w http.ResponseWriter, r *http.Request, fn func(context.Context, *machine.Machine) (any, error)) {
	id := chi.URLParam(r, "id")
	var (
		resp any
		view machine.View
	)
	err := s.Sessions.Do(r.Context(), id, func(ctx context.Context, m *machine.Machine) error {
		var err error
		if resp, err = fn(ctx, m); err != nil {
			return err
		}
		view = m.View(0, 0)
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(id, view)

	switch v := resp.(type) {
	case StepResult:
		v.View = view
		resp = v
	case BackResult:
		v.View = view
		resp = v
	case nil:
		resp = view
	}
	writeJSON(w, http.StatusOK, resp)
}

// Undo handles POST /machines/{id}/undo.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	s.replay(w, r, false)
}

// Redo handles POST /machines/{id}/redo.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	s.replay(w, r, true)
}

func (s *Server) replay(w http.ResponseWriter, r *http.Request, redo bool) {
	id := chi.URLParam(r, "id")
	var resp ReplayResult
	err := s.Sessions.Update(r.Context(), id, func(_ context.Context, m *machine.Machine) error {
		replay := m.Undo
		if redo {
			replay = m.Redo
		}
		kind, err := replay()
		if err != nil {
			return err
		}
		resp.Kind = string(kind)
		resp.View = m.View(0, 0)
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(id, resp.View)
	writeJSON(w, http.StatusOK, resp)
}

// AddState handles POST /machines/{id}/states.
func (s *Server) AddState(w http.ResponseWriter, r *http.Request) {
	var req NewState
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.update(w, r, func(m *machine.Machine) error {
		_, err := m.AddState(domain.Vec2{X: req.X, Y: req.Y}, req.Name)
		return err
	})
}

// DeleteState handles DELETE /machines/{id}/states/{sid}.
func (s *Server) DeleteState(w http.ResponseWriter, r *http.Request) {
	sid, err := pathInt(r, "sid")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.update(w, r, func(m *machine.Machine) error {
		return m.DeleteState(sid)
	})
}

// PatchState handles PATCH /machines/{id}/states/{sid}. Each present field
// is applied as its own undoable edit; if one fails, none are kept.
func (s *Server) PatchState(w http.ResponseWriter, r *http.Request) {
	sid, err := pathInt(r, "sid")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req StatePatch
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if (req.X == nil) != (req.Y == nil) {
		s.fail(w, r, fmt.Errorf("%w: x and y go together", errBadRequest))
		return
	}
	s.update(w, r, func(m *machine.Machine) error {
		return m.Batch(func() error {
			if req.Name != nil {
				if err := m.Rename(sid, *req.Name); err != nil {
					return err
				}
			}
			if req.Final != nil {
				if err := m.SetFinal(sid, *req.Final); err != nil {
					return err
				}
			}
			if req.Start != nil {
				if err := m.SetStart(sid, *req.Start); err != nil {
					return err
				}
			}
			if req.X != nil {
				return m.Move(sid, domain.Vec2{X: *req.X, Y: *req.Y})
			}
			return nil
		})
	})
}

// PatchTransition handles PATCH /machines/{id}/transitions/{tid}. Like
// PatchState, the fields are applied together or not at all.
func (s *Server) PatchTransition(w http.ResponseWriter, r *http.Request) {
	tid, err := pathInt(r, "tid")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req TransitionPatch
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if (req.AnchorX == nil) != (req.AnchorY == nil) {
		s.fail(w, r, fmt.Errorf("%w: anchor_x and anchor_y go together", errBadRequest))
		return
	}
	var dir domain.Direction
	if req.Dir != nil {
		if dir, err = domain.ParseDirection(*req.Dir); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	s.update(w, r, func(m *machine.Machine) error {
		return m.Batch(func() error {
			if req.Read != nil {
				if err := m.SetRead(tid, *req.Read); err != nil {
					return err
				}
			}
			if req.Write != nil {
				if err := m.SetWrite(tid, *req.Write); err != nil {
					return err
				}
			}
			if req.Dir != nil {
				if err := m.SetDirection(tid, dir); err != nil {
					return err
				}
			}
			if req.AnchorX != nil {
				return m.Move(tid, domain.Vec2{X: *req.AnchorX, Y: *req.AnchorY})
			}
			return nil
		})
	})
}

// AddTransition handles POST /machines/{id}/transitions.
func (s *Server) AddTransition(w http.ResponseWriter, r *http.Request) {
	var req NewTransition
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	dir := domain.Right
	if req.Dir != "" {
		var err error
		if dir, err = domain.ParseDirection(req.Dir); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	s.update(w, r, func(m *machine.Machine) error {
		_, err := m.AddTransition(req.From, req.To, nil, dir, req.Read, req.Write)
		return err
	})
}

// DeleteTransition handles DELETE /machines/{id}/transitions/{tid}.
func (s *Server) DeleteTransition(w http.ResponseWriter, r *http.Request) {
	tid, err := pathInt(r, "tid")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.update(w, r, func(m *machine.Machine) error {
		return m.DeleteTransition(tid)
	})
}

// SetTape handles PUT /machines/{id}/tape.
func (s *Server) SetTape(w http.ResponseWriter, r *http.Request) {
	var req TapeRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.update(w, r, func(m *machine.Machine) error {
		return m.SetTape(req.Tape)
	})
}
