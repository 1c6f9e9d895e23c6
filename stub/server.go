// Package stub is a local stand-in for the Ink API. It implements the
// same HTTP surface and error shapes as the real backend, with a fake
// pipeline that walks a job through the import/ocr/translate/render/export
// stages on a timer, so the client can be developed and tested offline.
package stub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aimariscal90-maker/ink-v1/config"
	"github.com/aimariscal90-maker/ink-v1/middleware"
	"github.com/aimariscal90-maker/ink-v1/model"
	"github.com/aimariscal90-maker/ink-v1/pkg/logger"
)

type Server struct {
	cfg   *config.StubConfig
	store *jobStore
}

func NewServer(cfg *config.StubConfig) *Server {
	return &Server{
		cfg:   cfg,
		store: newJobStore(cfg.MaxJobs),
	}
}

// Router builds the gin engine with the same middleware stack the real
// deployments front the API with.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimit(600, time.Minute))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/jobs", s.createJob)
		api.GET("/jobs/:id", s.getJob)
		api.POST("/jobs/:id/process", s.processJob)
		api.GET("/jobs/:id/download", s.downloadJob)
	}

	return router
}

// Run serves the stub until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "stub server starting", "port", s.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// createJob mirrors POST /api/v1/jobs: accept a multipart upload, detect
// the job type from the extension and hand back a receipt.
func (s *Server) createJob(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No file provided."})
		return
	}
	defer file.Close()

	var jobType model.JobType
	var format model.OutputFormat
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	switch ext {
	case "pdf":
		jobType, format = model.TypePDF, model.FormatPDF
	case "cbr", "cbz":
		jobType, format = model.TypeComic, model.FormatCBZ
	default:
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Unsupported file type: %s", ext)})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Failed to read uploaded file."})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Uploaded file is empty."})
		return
	}

	id := uuid.New().String()
	snap := s.store.create(id, header.Filename, data, jobType, format)
	logger.Info(c.Request.Context(), "job created", "job_id", id, "type", jobType, "filename", header.Filename)

	c.JSON(http.StatusOK, model.SubmitReceipt{
		JobID:        snap.JobID,
		Status:       snap.Status,
		Type:         snap.Type,
		OutputFormat: snap.OutputFormat,
	})
}

func (s *Server) getJob(c *gin.Context) {
	snap, ok := s.store.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Job not found."})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// processJob mirrors POST /api/v1/jobs/{id}/process, but always as a
// fire-and-begin call: the fake pipeline runs in the background and the
// response is the accept-time snapshot. Triggering an already-running or
// finished job is a no-op.
func (s *Server) processJob(c *gin.Context) {
	id := c.Param("id")
	snap, ok := s.store.get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Job not found."})
		return
	}

	if snap.Status == model.StatusUploaded {
		s.store.mutate(id, func(j *job) {
			j.snapshot.Status = model.StatusProcessing
		})
		go s.simulate(id)
		snap, _ = s.store.get(id)
	}

	c.JSON(http.StatusAccepted, snap)
}

func (s *Server) downloadJob(c *gin.Context) {
	id := c.Param("id")
	snap, ok := s.store.get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Job not found."})
		return
	}

	output, ok := s.store.output(id)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Job has no output yet."})
		return
	}

	filename := model.ArtifactFilename(id, snap.OutputFormat)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, snap.OutputFormat.ContentType(), output)
}
