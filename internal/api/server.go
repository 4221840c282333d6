package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"checkind/internal/config"
	"checkind/internal/domain"
	"checkind/internal/runner"
)

// Runner is the run engine surface the API needs: fire a manual run,
// inspect the last result.
type Runner interface {
	Begin(trig domain.Trigger) (string, error)
	Last() (domain.RunResult, bool)
}

// Schedule exposes the active cron schedule for inspection.
type Schedule interface {
	Expr() string
	Next() time.Time
}

type Server struct {
	r     *chi.Mux
	run   Runner
	sched Schedule
}

func NewServer(run Runner, sched Schedule) http.Handler {
	return NewServerWithDebug(run, sched, false)
}

func NewServerWithDebug(run Runner, sched Schedule, enableDebug bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	s := &Server{r: r, run: run, sched: sched}

	r.Get("/health", s.health)
	r.Post("/api/runs", s.triggerRun)
	r.Get("/api/runs/last", s.lastRun)
	r.Get("/api/schedule", s.schedule)

	if enableDebug {
		r.HandleFunc("/debug/pprof/", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
		r.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		r.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	}

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type triggerResp struct {
	RunID string `json:"run_id"`
}

func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	id, err := s.run.Begin(domain.Trigger{Origin: domain.OriginManual, At: time.Now()})
	switch {
	case errors.Is(err, runner.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, config.ErrMissingKey):
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, triggerResp{RunID: id})
}

type dispatchResp struct {
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

type runResp struct {
	RunID      string         `json:"run_id"`
	Origin     string         `json:"origin"`
	Status     string         `json:"status"`
	ExitCode   int            `json:"exit_code"`
	Output     string         `json:"output"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Dispatches []dispatchResp `json:"dispatches"`
}

func (s *Server) lastRun(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run.Last()
	if !ok {
		http.Error(w, "no runs yet", http.StatusNotFound)
		return
	}
	out := runResp{
		RunID:      res.RunID,
		Origin:     string(res.Trigger.Origin),
		Status:     string(res.Status),
		ExitCode:   res.ExitCode,
		Output:     res.Output,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
	for _, d := range res.Dispatches {
		out.Dispatches = append(out.Dispatches, dispatchResp{Channel: d.Channel, OK: d.OK, Error: d.Error})
	}
	writeJSON(w, http.StatusOK, out)
}

type scheduleResp struct {
	Cron    string    `json:"cron"`
	NextRun time.Time `json:"next_run"`
}

func (s *Server) schedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scheduleResp{Cron: s.sched.Expr(), NextRun: s.sched.Next()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
