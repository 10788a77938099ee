// Package httpapi exposes the upload and chat endpoints consumed by the
// existing browser client. Handlers are stateless; uploads and chat queries
// are independent request paths that share nothing in-process.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bull/pdfchat/internal/extract"
	"github.com/bull/pdfchat/internal/llm"
	"github.com/bull/pdfchat/internal/queue"
	"github.com/bull/pdfchat/internal/responder"
)

// Enqueuer is the write side of the ingestion queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.UploadJob) (string, error)
}

// Answerer is the chat query path.
type Answerer interface {
	Answer(ctx context.Context, query string, history []llm.Turn) (*responder.Answer, error)
}

// HealthChecker reports vector index connectivity.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server holds the handler dependencies.
type Server struct {
	queue     Enqueuer
	answerer  Answerer
	store     HealthChecker
	backend   llm.Completer
	uploadDir string
	logger    *slog.Logger
}

// NewServer creates the API server.
func NewServer(q Enqueuer, answerer Answerer, store HealthChecker, backend llm.Completer, uploadDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		queue:     q,
		answerer:  answerer,
		store:     store,
		backend:   backend,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/upload/pdf", s.handleUpload)
	router.GET("/chat", s.handleChat)
	router.GET("/health", s.handleHealth)

	return router
}

// handleUpload accepts a multipart upload, stores it and enqueues exactly one
// job. Client input errors are rejected before anything is stored or
// enqueued.
func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'pdf' is required"})
		return
	}

	if !extract.Supported(file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file type: %s", filepath.Ext(file.Filename))})
		return
	}

	// Prefix with a UUID so identical filenames never collide on disk.
	storagePath := filepath.Join(s.uploadDir, uuid.New().String()+"-"+filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, storagePath); err != nil {
		s.logger.Error("failed to store upload", "file", file.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}

	jobID, err := s.queue.Enqueue(c.Request.Context(), queue.UploadJob{
		Filename:    file.Filename,
		StoragePath: storagePath,
	})
	if err != nil {
		s.logger.Error("failed to enqueue upload", "file", file.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue document for processing"})
		return
	}

	s.logger.Info("upload queued", "file", file.Filename, "job", jobID)
	c.JSON(http.StatusOK, gin.H{"message": "uploaded"})
}

// chatDoc is the wire shape the browser client expects for a source chunk.
type chatDoc struct {
	PageContent string      `json:"pageContent"`
	Metadata    chatDocMeta `json:"metadata"`
}

type chatDocMeta struct {
	Source string     `json:"source"`
	Loc    chatDocLoc `json:"loc"`
}

type chatDocLoc struct {
	PageNumber int `json:"pageNumber"`
}

func (s *Server) handleChat(c *gin.Context) {
	message := c.Query("message")

	answer, err := s.answerer.Answer(c.Request.Context(), message, nil)
	if err != nil {
		if errors.Is(err, responder.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'message' is required"})
			return
		}
		status := llm.HTTPStatus(err)
		s.logger.Error("chat query failed", "status", status, "error", err)
		c.JSON(status, gin.H{"error": llm.Hint(err)})
		return
	}

	docs := make([]chatDoc, 0, len(answer.Sources))
	for _, chunk := range answer.Sources {
		docs = append(docs, chatDoc{
			PageContent: chunk.Content,
			Metadata: chatDocMeta{
				Source: chunk.Source,
				Loc:    chatDocLoc{PageNumber: chunk.PageNumber},
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message": answer.Message,
		"docs":    docs,
	})
}

// handleHealth probes the vector index and the generation backend with a
// trivial prompt.
func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()

	if err := s.store.Health(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "unhealthy",
			"error":  fmt.Sprintf("vector index: %v", err),
		})
		return
	}

	if _, err := s.backend.Complete(ctx, "Reply with the single word: ok", nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "unhealthy",
			"error":  fmt.Sprintf("generation backend: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"backend": s.backend.Name(),
	})
}
