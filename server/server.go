// Package server exposes the simulator over HTTP: a small REST control
// surface and a websocket that streams status and accepts control actions.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ByteMirror/highlander/arena"
	"github.com/ByteMirror/highlander/concurrency"
	"github.com/ByteMirror/highlander/config"
	"github.com/ByteMirror/highlander/log"
	"github.com/ByteMirror/highlander/report"

	"github.com/gin-gonic/gin"
	"github.com/sugawarayuuta/sonnet"
)

// checkTimeout bounds the barrier wait of a check request.
const checkTimeout = 10 * time.Second

// Status is the view of the manager served by /api/status and streamed over
// the websocket.
type Status struct {
	RunID          string                  `json:"run_id"`
	Running        bool                    `json:"running"`
	Paused         bool                    `json:"paused"`
	State          string                  `json:"state"`
	Active         int                     `json:"active_workers"`
	Parked         int                     `json:"parked_workers"`
	Fights         int64                   `json:"fights"`
	ExpectedHealth int64                   `json:"expected_health"`
	TotalHealth    int64                   `json:"total_health"`
	Alive          int                     `json:"alive"`
	Metrics        arena.Metrics           `json:"metrics"`
	Config         *config.Simulation      `json:"config,omitempty"`
	Combatants     []arena.CombatantStatus `json:"combatants,omitempty"`
	Workers        []arena.WorkerStatus    `json:"workers,omitempty"`
}

// Server wires a manager to HTTP handlers. Runs started through it live
// under the server's context, not the request's.
type Server struct {
	ctx         context.Context
	manager     *arena.Manager
	defaults    config.Simulation
	broadcaster *Broadcaster

	// observe serializes checks with resumes so a resume cannot release the
	// barrier between a check's wait and its snapshot.
	observe sync.Mutex
}

func New(ctx context.Context, cfg *config.Config, manager *arena.Manager) *Server {
	s := &Server{
		ctx:      ctx,
		manager:  manager,
		defaults: cfg.Simulation,
	}
	s.broadcaster = NewBroadcaster(s.status, cfg.Refresh())
	return s
}

// Broadcaster returns the websocket fan-out. Its Run loop must be started by
// the caller.
func (s *Server) Broadcaster() *Broadcaster {
	return s.broadcaster
}

func SetupRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(log.InfoLog.Writer()), gin.Recovery())

	api := r.Group("/api")
	api.GET("/status", s.statusHandler)
	api.POST("/start", s.startHandler)
	api.POST("/pause", s.pauseHandler)
	api.POST("/check", s.checkHandler)
	api.POST("/resume", s.resumeHandler)
	api.POST("/stop", s.stopHandler)

	r.GET("/ws", HandleWebsocket(s))
	return r
}

func (s *Server) status(detailed bool) Status {
	st := Status{
		RunID:          s.manager.RunID(),
		Running:        s.manager.Running(),
		Paused:         s.manager.Paused(),
		State:          s.manager.State().String(),
		Fights:         s.manager.ScoreboardTotal(),
		ExpectedHealth: s.manager.ExpectedTotalHealth(),
		TotalHealth:    s.manager.TotalHealth(),
		Alive:          s.manager.AliveCount(),
		Metrics:        s.manager.Metrics(),
	}
	st.Active, st.Parked = s.manager.Counts()
	if cfg, ok := s.manager.Config(); ok {
		st.Config = &cfg
	}
	if detailed {
		st.Combatants = s.manager.PopulationSnapshot()
		st.Workers = s.manager.Workers()
	}
	return st
}

// writeJSON renders v with sonnet.
func writeJSON(c *gin.Context, code int, v any) {
	data, err := sonnet.Marshal(v)
	if err != nil {
		log.ErrorLog.Printf("failed to marshal response: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(code, "application/json; charset=utf-8", data)
}

func writeError(c *gin.Context, code int, err error) {
	writeJSON(c, code, gin.H{"error": err.Error()})
}

// errorCode maps domain errors to HTTP status codes.
func errorCode(err error) int {
	switch {
	case errors.Is(err, arena.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrNoRun):
		return http.StatusConflict
	case errors.Is(err, concurrency.ErrCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) statusHandler(c *gin.Context) {
	writeJSON(c, http.StatusOK, s.status(c.Query("detailed") == "true"))
}

// startSimulation overlays the fields present in body on the defaults and
// starts a run.
func (s *Server) startSimulation(body []byte) (config.Simulation, error) {
	sim := s.defaults
	if len(body) > 0 {
		if err := sonnet.Unmarshal(body, &sim); err != nil {
			return sim, errors.Join(arena.ErrInvalidConfig, err)
		}
	}
	return sim, s.manager.Start(s.ctx, sim)
}

func (s *Server) startHandler(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	sim, err := s.startSimulation(body)
	if err != nil {
		writeError(c, errorCode(err), err)
		return
	}
	log.InfoLog.Printf("run %s started over http: %+v", s.manager.RunID(), sim)
	writeJSON(c, http.StatusOK, s.status(false))
}

func (s *Server) pauseHandler(c *gin.Context) {
	s.manager.Pause()
	writeJSON(c, http.StatusOK, s.status(false))
}

type checkFunc func(context.Context, report.Source) (*report.Report, error)

func (s *Server) check(ctx context.Context, check checkFunc) (*report.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	s.observe.Lock()
	defer s.observe.Unlock()
	return check(ctx, s.manager)
}

func (s *Server) resume() {
	s.observe.Lock()
	defer s.observe.Unlock()
	s.manager.Resume()
}

// checkHandler leaves the population paused unless resume=true is passed.
func (s *Server) checkHandler(c *gin.Context) {
	check := report.Check
	if c.Query("resume") == "true" {
		check = report.CheckAndResume
	}
	r, err := s.check(c.Request.Context(), check)
	if err != nil {
		writeError(c, errorCode(err), err)
		return
	}
	if c.Query("detailed") != "true" {
		r = r.Summary()
	}
	writeJSON(c, http.StatusOK, r)
}

func (s *Server) resumeHandler(c *gin.Context) {
	s.resume()
	writeJSON(c, http.StatusOK, s.status(false))
}

func (s *Server) stopHandler(c *gin.Context) {
	if err := s.manager.Stop(); err != nil {
		// Forced shutdowns still stop the run.
		log.WarningLog.Printf("stop: %v", err)
	}
	writeJSON(c, http.StatusOK, s.status(false))
}
