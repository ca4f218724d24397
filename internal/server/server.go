package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/structural-analysis/internal/analysis"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
	"github.com/joseph-ayodele/structural-analysis/internal/ingest"
)

// Analyses is the analysis lifecycle exposed over HTTP.
type Analyses interface {
	Start(ctx context.Context, projectID uuid.UUID) (*entity.StructuralAnalysis, error)
	Status(ctx context.Context, id uuid.UUID) (*analysis.StatusView, error)
	Results(ctx context.Context, id uuid.UUID) (*entity.StructuralAnalysis, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, projectID uuid.UUID, limit int) ([]entity.StructuralAnalysis, error)
}

// Files schedules and reports document processing.
type Files interface {
	Enqueue(ctx context.Context, fileID uuid.UUID) (*entity.ProjectFile, error)
	Status(ctx context.Context, fileID uuid.UUID) (*entity.ProjectFile, error)
}

// Projects is the project registry.
type Projects interface {
	Create(ctx context.Context, name string) (*entity.Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
	List(ctx context.Context) ([]entity.Project, error)
}

// ProjectFiles lists the drawings of a project.
type ProjectFiles interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]entity.ProjectFile, error)
}

// Takeoff renders the workbook of a completed analysis.
type Takeoff interface {
	TakeoffXLSX(ctx context.Context, analysisID uuid.UUID) ([]byte, error)
}

// Pinger reports database health.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Deps are the services behind the HTTP API. Ingestor, Takeoff, DB and
// Registry are optional; their routes are not mounted when nil.
type Deps struct {
	Analyses     Analyses
	Files        Files
	Projects     Projects
	ProjectFiles ProjectFiles
	Ingestor     ingest.Ingestor
	Takeoff      Takeoff
	DB           Pinger
	Registry     *prometheus.Registry
}

// Server serves the structural analysis HTTP API.
type Server struct {
	deps   Deps
	logger *slog.Logger
}

func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{deps: deps, logger: logger}
}

// Handler builds the gin engine with every route mounted.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(s.requestContext(), s.recovery())

	r.GET("/healthz", s.health)
	if s.deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})))
	}

	projects := r.Group("/projects")
	projects.POST("", s.createProject)
	projects.GET("", s.listProjects)
	projects.GET("/:id", s.getProject)
	projects.GET("/:id/files", s.listProjectFiles)
	projects.POST("/:id/analyses", s.startAnalysis)
	projects.GET("/:id/analyses", s.listAnalyses)
	if s.deps.Ingestor != nil {
		projects.POST("/:id/ingest", s.ingest)
	}

	analyses := r.Group("/analyses")
	analyses.GET("/:id/status", s.analysisStatus)
	analyses.GET("/:id/results", s.analysisResults)
	analyses.POST("/:id/cancel", s.cancelAnalysis)
	if s.deps.Takeoff != nil {
		analyses.GET("/:id/takeoff.xlsx", s.takeoff)
	}

	files := r.Group("/files")
	files.POST("/:id/process", s.processFile)
	files.GET("/:id/status", s.fileStatus)

	return r
}

// requestContext tags each request with an id and a request-scoped logger
// and logs its completion.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		log := s.logger.With("request_id", rid)
		ctx := common.WithRequestID(c.Request.Context(), rid)
		ctx = common.WithLogger(ctx, log)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", rid)

		c.Next()

		log.Info("http request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.log(c).Error("panic in handler", "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("INTERNAL", "internal error"))
	})
}

func (s *Server) health(c *gin.Context) {
	if s.deps.DB != nil {
		if err := s.deps.DB.HealthCheck(c.Request.Context(), 2*time.Second); err != nil {
			s.log(c).Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) log(c *gin.Context) *slog.Logger {
	return common.LoggerFromContext(c.Request.Context(), s.logger)
}
