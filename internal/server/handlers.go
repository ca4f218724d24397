package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
	"github.com/joseph-ayodele/structural-analysis/internal/ingest"
)

type createProjectRequest struct {
	Name string `json:"name"`
}

func (s *Server) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, "create project", fmt.Errorf("decode body: %v: %w", err, common.ErrInvalidInput))
		return
	}
	p, err := s.deps.Projects.Create(c.Request.Context(), req.Name)
	if err != nil {
		s.fail(c, "create project", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) listProjects(c *gin.Context) {
	ps, err := s.deps.Projects.List(c.Request.Context())
	if err != nil {
		s.fail(c, "list projects", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": ps})
}

func (s *Server) getProject(c *gin.Context) {
	id, ok := s.pathID(c, "project")
	if !ok {
		return
	}
	p, err := s.deps.Projects.GetByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "get project", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) listProjectFiles(c *gin.Context) {
	id, ok := s.pathID(c, "project")
	if !ok {
		return
	}
	if _, err := s.deps.Projects.GetByID(c.Request.Context(), id); err != nil {
		s.fail(c, "list project files", err)
		return
	}
	files, err := s.deps.ProjectFiles.ListByProject(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "list project files", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

type ingestRequest struct {
	Path       string `json:"path"`
	Recursive  bool   `json:"recursive"`
	SkipHidden *bool  `json:"skipHidden"`
}

// ingest registers drawings already present on the server's filesystem.
func (s *Server) ingest(c *gin.Context) {
	id, ok := s.pathID(c, "project")
	if !ok {
		return
	}
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, "ingest", fmt.Errorf("decode body: %v: %w", err, common.ErrInvalidInput))
		return
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		s.fail(c, "ingest", fmt.Errorf("path is required: %w", common.ErrInvalidInput))
		return
	}
	ctx := c.Request.Context()
	if !req.Recursive {
		r, err := s.deps.Ingestor.IngestPath(ctx, id, path)
		if err != nil {
			s.fail(c, "ingest", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"results": []ingest.IngestionResult{r}})
		return
	}
	skip := req.SkipHidden == nil || *req.SkipHidden
	results, stats, err := s.deps.Ingestor.IngestDirectory(ctx, id, path, skip)
	if err != nil {
		s.fail(c, "ingest", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"results": results, "stats": stats})
}

func (s *Server) startAnalysis(c *gin.Context) {
	id, ok := s.pathID(c, "project")
	if !ok {
		return
	}
	a, err := s.deps.Analyses.Start(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "start analysis", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": a.ID, "projectId": a.ProjectID, "status": a.Status})
}

func (s *Server) listAnalyses(c *gin.Context) {
	id, ok := s.pathID(c, "project")
	if !ok {
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.fail(c, "list analyses", fmt.Errorf("limit must be a positive integer: %w", common.ErrInvalidInput))
			return
		}
		limit = n
	}
	items, err := s.deps.Analyses.List(c.Request.Context(), id, limit)
	if err != nil {
		s.fail(c, "list analyses", err)
		return
	}
	if items == nil {
		items = []entity.StructuralAnalysis{}
	}
	c.JSON(http.StatusOK, gin.H{"analyses": items})
}

func (s *Server) analysisStatus(c *gin.Context) {
	id, ok := s.pathID(c, "analysis")
	if !ok {
		return
	}
	v, err := s.deps.Analyses.Status(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "analysis status", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) analysisResults(c *gin.Context) {
	id, ok := s.pathID(c, "analysis")
	if !ok {
		return
	}
	a, err := s.deps.Analyses.Results(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "analysis results", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) cancelAnalysis(c *gin.Context) {
	id, ok := s.pathID(c, "analysis")
	if !ok {
		return
	}
	if err := s.deps.Analyses.Cancel(c.Request.Context(), id); err != nil {
		s.fail(c, "cancel analysis", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "cancelled"})
}

func (s *Server) takeoff(c *gin.Context) {
	id, ok := s.pathID(c, "analysis")
	if !ok {
		return
	}
	data, err := s.deps.Takeoff.TakeoffXLSX(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "takeoff export", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="takeoff-%s.xlsx"`, id))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (s *Server) processFile(c *gin.Context) {
	id, ok := s.pathID(c, "file")
	if !ok {
		return
	}
	f, err := s.deps.Files.Enqueue(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "process file", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": f.ID, "projectId": f.ProjectID, "status": "queued"})
}

func (s *Server) fileStatus(c *gin.Context) {
	id, ok := s.pathID(c, "file")
	if !ok {
		return
	}
	f, err := s.deps.Files.Status(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "file status", err)
		return
	}
	c.JSON(http.StatusOK, f)
}
