package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Default request validation limits.
const (
	DefaultMaxQuestions      = 50
	DefaultMinQuestionLength = 5
	DefaultMaxQuestionLength = 1000
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host and Port form the listen address.
	Host string
	Port int

	// Production suppresses internal error detail in responses.
	Production bool

	// BearerToken protects the /api/v1 routes.
	BearerToken string

	// MaxQuestions caps questions per request (default: 50).
	MaxQuestions int

	// MaxQuestionLength caps a single question's length in characters
	// (default: 1000).
	MaxQuestionLength int

	// Version is reported by the health endpoint.
	Version string
}

// Server is the HTTP driving adapter.
type Server struct {
	router     *gin.Engine
	server     *http.Server
	query      driving.QueryService
	embedder   driven.EmbeddingService
	llm        driven.LLMService
	index      driven.VectorIndex
	requestLog driven.RequestLogStore
	cfg        Config
	started    time.Time
}

// NewServer creates the API server. embedder, llm, index and
// requestLog are only consulted by the status endpoint and may be nil.
func NewServer(cfg Config, query driving.QueryService, embedder driven.EmbeddingService, llm driven.LLMService, index driven.VectorIndex, requestLog driven.RequestLogStore) *Server {
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	if cfg.MaxQuestionLength <= 0 {
		cfg.MaxQuestionLength = DefaultMaxQuestionLength
	}
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(Recovery())
	router.Use(RequestLogger())

	s := &Server{
		router:     router,
		query:      query,
		embedder:   embedder,
		llm:        llm,
		index:      index,
		requestLog: requestLog,
		cfg:        cfg,
		started:    time.Now(),
		server: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: router,
			// Long write timeout: one run can hold the connection for
			// minutes while questions are answered sequentially.
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
	}

	router.GET("/health", s.handleHealth)

	api := router.Group("/api/v1", BearerAuth(cfg.BearerToken))
	api.POST("/run", s.handleRun)
	api.GET("/status", s.handleStatus)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: errorBody{
			Code:    codeRouteNotFound,
			Message: fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path),
		}})
	})

	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	logger.Info("listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Wire types.

type runRequest struct {
	Documents string   `json:"documents"`
	Questions []string `json:"questions"`
}

type runResponse struct {
	Answers  []answerJSON `json:"answers"`
	Metadata metadataJSON `json:"metadata"`
}

type answerJSON struct {
	Answer     string       `json:"answer"`
	Confidence int          `json:"confidence"`
	Reasoning  string       `json:"reasoning"`
	Sources    []sourceJSON `json:"sources"`
	IsError    bool         `json:"isError,omitempty"`
}

type sourceJSON struct {
	ChunkID    int     `json:"chunkId"`
	Preview    string  `json:"preview"`
	Similarity float64 `json:"similarity"`
	SourceTier string  `json:"sourceTier"`
}

type metadataJSON struct {
	RequestID        string           `json:"requestId"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
	DocumentInfo     documentInfoJSON `json:"documentInfo"`
	QuestionCount    int              `json:"questionCount"`
	AvgConfidence    int              `json:"avgConfidence"`
	Timestamp        time.Time        `json:"timestamp"`
}

type documentInfoJSON struct {
	Type       string `json:"type"`
	Size       int    `json:"size"`
	Chunks     int    `json:"chunks"`
	TextLength int    `json:"textLength"`
}

// handleRun processes one document question batch.
func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    string(domain.CodeValidation),
			Message: "request body must be valid JSON",
		}})
		return
	}

	if details := s.validateRun(&req); len(details) > 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    string(domain.CodeValidation),
			Message: "invalid request",
			Details: details,
		}})
		return
	}

	result, err := s.query.Run(c.Request.Context(), domain.QueryRequest{
		DocumentURL: req.Documents,
		Questions:   req.Questions,
	})
	if err != nil {
		status, body := errorFor(err, s.cfg.Production)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, toRunResponse(result))
}

// validateRun checks the request shape and returns one message per
// violation.
func (s *Server) validateRun(req *runRequest) []string {
	var details []string

	doc := strings.TrimSpace(req.Documents)
	if doc == "" {
		details = append(details, "documents: a document URL is required")
	} else if u, err := url.Parse(doc); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		details = append(details, "documents: must be an http(s) URL")
	}

	switch {
	case len(req.Questions) == 0:
		details = append(details, "questions: at least one question is required")
	case len(req.Questions) > s.cfg.MaxQuestions:
		details = append(details, fmt.Sprintf("questions: at most %d questions per request", s.cfg.MaxQuestions))
	}

	for i, q := range req.Questions {
		trimmed := strings.TrimSpace(q)
		if len(trimmed) < DefaultMinQuestionLength {
			details = append(details, fmt.Sprintf("questions[%d]: must be at least %d characters", i, DefaultMinQuestionLength))
		} else if len(trimmed) > s.cfg.MaxQuestionLength {
			details = append(details, fmt.Sprintf("questions[%d]: must be at most %d characters", i, s.cfg.MaxQuestionLength))
		}
	}

	return details
}

func toRunResponse(result *domain.QueryResult) runResponse {
	answers := make([]answerJSON, len(result.Answers))
	for i, a := range result.Answers {
		sources := make([]sourceJSON, len(a.Sources))
		for j, src := range a.Sources {
			sources[j] = sourceJSON{
				ChunkID:    src.ChunkID,
				Preview:    src.Preview,
				Similarity: src.Similarity,
				SourceTier: string(src.SourceTier),
			}
		}
		answers[i] = answerJSON{
			Answer:     a.Text,
			Confidence: a.Confidence,
			Reasoning:  a.Reasoning,
			Sources:    sources,
			IsError:    a.IsError,
		}
	}

	return runResponse{
		Answers: answers,
		Metadata: metadataJSON{
			RequestID:        result.Metadata.RequestID,
			ProcessingTimeMs: result.Metadata.ProcessingTimeMs,
			DocumentInfo: documentInfoJSON{
				Type:       result.Metadata.DocumentInfo.Type,
				Size:       result.Metadata.DocumentInfo.Size,
				Chunks:     result.Metadata.DocumentInfo.Chunks,
				TextLength: result.Metadata.DocumentInfo.TextLength,
			},
			QuestionCount: result.Metadata.QuestionCount,
			AvgConfidence: result.Metadata.AvgConfidence,
			Timestamp:     result.Metadata.Timestamp,
		},
	}
}

// handleHealth is an unauthenticated liveness probe.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"version":       s.cfg.Version,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"uptimeSeconds": int(time.Since(s.started).Seconds()),
	})
}

// recentRequestLimit caps the request summary in the status response.
const recentRequestLimit = 5

// handleStatus reports provider connectivity, index statistics and a
// recent-request summary. Each provider is probed independently; any
// failed probe degrades the overall status to 503 so load balancers
// can act on it, while the per-service entries say which dependency
// is down.
func (s *Server) handleStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	services := gin.H{}
	degraded := false

	if s.embedder != nil {
		entry := gin.H{"model": s.embedder.ModelName(), "dimensions": s.embedder.Dimensions()}
		if err := s.embedder.Ping(ctx); err != nil {
			entry["status"] = "unreachable"
			entry["error"] = err.Error()
			degraded = true
		} else {
			entry["status"] = "ok"
		}
		services["embedding"] = entry
	}

	if s.llm != nil {
		entry := gin.H{"model": s.llm.ModelName()}
		if err := s.llm.Ping(ctx); err != nil {
			entry["status"] = "unreachable"
			entry["error"] = err.Error()
			degraded = true
		} else {
			entry["status"] = "ok"
		}
		services["llm"] = entry
	}

	if s.index != nil {
		entry := gin.H{}
		if stats, err := s.index.Stats(ctx, ""); err != nil {
			entry["status"] = "unreachable"
			entry["error"] = err.Error()
			degraded = true
		} else {
			entry["status"] = "ok"
			entry["totalVectors"] = stats.TotalVectors
			entry["dimension"] = stats.Dimension
			entry["indexFullness"] = stats.IndexFullness
		}
		services["vectorIndex"] = entry
	}

	body := gin.H{
		"status":   "ok",
		"services": services,
	}
	if recent := s.recentRequests(ctx); recent != nil {
		body["recentRequests"] = recent
	}

	status := http.StatusOK
	if degraded {
		body["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, body)
}

// recentRequests summarises the latest audit records. The request log
// is best-effort; a read failure just omits the section.
func (s *Server) recentRequests(ctx context.Context) []gin.H {
	if s.requestLog == nil {
		return nil
	}
	records, err := s.requestLog.Recent(ctx, recentRequestLimit)
	if err != nil {
		logger.Warn("reading request log: %v", err)
		return nil
	}

	out := make([]gin.H, 0, len(records))
	for _, rec := range records {
		entry := gin.H{
			"requestId":        rec.RequestID,
			"documentType":     rec.DocumentType,
			"questionCount":    rec.QuestionCount,
			"avgConfidence":    rec.AvgConfidence,
			"processingTimeMs": rec.ProcessingTimeMs,
			"createdAt":        rec.CreatedAt.UTC().Format(time.RFC3339),
		}
		if rec.FailedStage != "" {
			entry["failedStage"] = rec.FailedStage
		}
		out = append(out, entry)
	}
	return out
}
