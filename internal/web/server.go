// Package web exposes the question pipeline over HTTP with a small embedded
// UI: upload a CSV, ask a question, see the generated query and the rows,
// download results as CSV.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/askmongo/askmongo/internal/app"
	"github.com/askmongo/askmongo/internal/export"
	"github.com/askmongo/askmongo/internal/query"
	"github.com/askmongo/askmongo/internal/store"
	"github.com/askmongo/askmongo/internal/translate"
	"github.com/askmongo/askmongo/internal/util"
	"github.com/askmongo/askmongo/internal/version"
)

//go:embed static
var staticFS embed.FS

// maxUploadBytes bounds CSV uploads.
const maxUploadBytes = 32 << 20

type Server struct {
	app *app.App
	log *log.Logger
}

func NewServer(a *app.App, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	return &Server{app: a, log: logger}
}

// Handler builds the gin engine with all routes mounted.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	index, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		panic(fmt.Sprintf("embedded index.html: %v", err))
	}
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})

	api := r.Group("/api")
	api.GET("/version", s.handleVersion)
	api.GET("/fields", s.handleFields)
	api.POST("/ask", s.handleAsk)
	api.POST("/upload", s.handleUpload)
	api.POST("/export", s.handleExport)
	return r
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": version.Current})
}

func (s *Server) handleFields(c *gin.Context) {
	fields := s.app.Fields()
	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	ans, err := s.app.Ask(c.Request.Context(), req.Question)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"question":   ans.Question,
		"query":      queryJSON(ans.Query),
		"rows":       len(ans.Docs),
		"docs":       ans.Docs,
		"elapsed_ms": ans.Elapsed.Milliseconds(),
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	defer func() {
		_ = file.Close()
	}()

	n, err := s.app.LoadCSV(c.Request.Context(), file)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"inserted": n,
		"fields":   s.app.Fields(),
	})
}

func (s *Server) handleExport(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	ans, err := s.app.Ask(c.Request.Context(), req.Question)
	if err != nil {
		s.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("results-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WriteDocumentsCSV(c.Writer, ans.Docs); err != nil {
		// Headers are gone; all we can do is log.
		s.log.Printf("export write failed: %v", err)
	}
}

func queryJSON(q query.StructuredQuery) gin.H {
	out := gin.H{"filter": query.Document(q.Filter)}
	if sorts := query.SortDocument(q.Sort); sorts != nil {
		out["sort"] = sorts
	}
	return out
}

// writeError maps pipeline error kinds to HTTP statuses. Every failed
// question gets a named, redacted message; none takes the server down.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := "internal"
	status := http.StatusInternalServerError

	var (
		unknownField *query.UnknownFieldError
		unsupported  *query.UnsupportedOperatorError
		malformed    *query.MalformedQueryError
		mismatch     *query.TypeMismatchError
		translation  *translate.TranslationError
		execution    *store.ExecutionError
	)
	switch {
	case errors.As(err, &unknownField):
		kind, status = "unknown_field", http.StatusUnprocessableEntity
	case errors.As(err, &unsupported):
		kind, status = "unsupported_operator", http.StatusUnprocessableEntity
	case errors.As(err, &malformed):
		kind, status = "malformed_query", http.StatusUnprocessableEntity
	case errors.As(err, &mismatch):
		kind, status = "type_mismatch", http.StatusUnprocessableEntity
	case errors.As(err, &translation):
		kind, status = "translation_error", http.StatusBadGateway
	case errors.As(err, &execution):
		kind, status = "execution_error", http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		kind, status = "timeout", http.StatusGatewayTimeout
	}

	msg := util.RedactSecrets(err.Error())
	s.log.Printf("request failed: kind=%s %s", kind, msg)
	c.JSON(status, gin.H{"error": msg, "kind": kind})
}
