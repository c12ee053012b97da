// Package server exposes the draft pipeline over HTTP. The facade is
// stateless: every request carries its own signals or text, and the
// response is the core's output verbatim.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"cadence/internal/config"
	"cadence/internal/logging"
	"cadence/internal/schedule"
	"cadence/internal/schedule/answers"
	"cadence/internal/schedule/intent"
	"cadence/internal/schedule/pipeline"
	"cadence/internal/schedule/taskdraft"
)

// Server hosts the HTTP facade.
type Server struct {
	pipeline    *pipeline.Pipeline
	interpreter *intent.Interpreter
	guard       *answers.Guard

	engine     *gin.Engine
	httpServer *http.Server

	defaultTZ    string
	scheduleBias bool
	startTime    time.Time
	logger       logging.Logger
}

// New builds a server around an assembled core. All three collaborators
// must be non-nil.
func New(cfg config.Config, pl *pipeline.Pipeline, interp *intent.Interpreter, guard *answers.Guard, logger logging.Logger) *Server {
	logger = logging.OrNop(logger)

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	if cfg.Server.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
		engine.Use(cors.New(corsConfig))
	}

	s := &Server{
		pipeline:     pl,
		interpreter:  interp,
		guard:        guard,
		engine:       engine,
		defaultTZ:    cfg.Pipeline.DefaultTimezone,
		scheduleBias: cfg.Pipeline.ScheduleBias,
		startTime:    time.Now(),
		logger:       logger,
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	v1 := s.engine.Group("/v1")
	v1.POST("/drafts", s.handleDrafts)
	v1.POST("/intent", s.handleIntent)
	v1.POST("/answers/check", s.handleAnswersCheck)
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http facade listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptimeSeconds": int(time.Since(s.startTime).Seconds()),
	})
}

type draftsRequest struct {
	Signals  []schedule.Signal `json:"signals" binding:"required"`
	Timezone string            `json:"timezone"`
	// Now pins the reference instant for reproducible batches.
	Now string `json:"now"`
}

func (s *Server) handleDrafts(c *gin.Context) {
	var req draftsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := pipeline.Options{UserTZ: req.Timezone}
	if opts.UserTZ == "" {
		opts.UserTZ = s.defaultTZ
	}
	if req.Now != "" {
		now, err := time.Parse(time.RFC3339, req.Now)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid now: %v", err)})
			return
		}
		opts.Now = now
	}

	result := s.pipeline.Generate(c.Request.Context(), req.Signals, opts)
	c.JSON(http.StatusOK, result)
}

type intentRequest struct {
	Message  string `json:"message" binding:"required"`
	Timezone string `json:"timezone"`
	// ScheduleBias overrides the server-wide default for this call.
	ScheduleBias *bool `json:"scheduleBias"`
}

type intentResponse struct {
	Route  intent.Intent        `json:"route"`
	Intent *schedule.USI        `json:"intent,omitempty"`
	Tasks  []schedule.TaskDraft `json:"tasks,omitempty"`
}

func (s *Server) handleIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tz := req.Timezone
	if tz == "" {
		tz = s.defaultTZ
	}
	bias := s.scheduleBias
	if req.ScheduleBias != nil {
		bias = *req.ScheduleBias
	}

	route := intent.Route(req.Message, intent.Options{ScheduleBias: bias})
	resp := intentResponse{Route: route}
	if intent.IsScheduleAllowed(route) {
		usi := s.interpreter.Interpret(c.Request.Context(), req.Message, tz)
		resp.Intent = &usi
	}
	if route == intent.PlanRequest || route == intent.Mixed {
		raws := s.interpreter.ExtractTasks(c.Request.Context(), req.Message)
		resp.Tasks = taskdraft.NormalizeAll(raws, time.Now())
	}
	c.JSON(http.StatusOK, resp)
}

type answersCheckRequest struct {
	Message string `json:"message" binding:"required"`
	Answer  string `json:"answer"`
}

type answersCheckResponse struct {
	Map       schedule.AnswerMap `json:"map"`
	Clarifier string             `json:"clarifier,omitempty"`
	NeedsAsk  bool               `json:"needsAsk"`
}

func (s *Server) handleAnswersCheck(c *gin.Context) {
	var req answersCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m := s.guard.BuildAnswerMap(req.Message, req.Answer)
	clarifier, needed := s.guard.MaybeClarifier(req.Message, m.Relevance)
	c.JSON(http.StatusOK, answersCheckResponse{Map: m, Clarifier: clarifier, NeedsAsk: needed})
}
