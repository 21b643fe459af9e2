// Package server exposes the pipeline over HTTP: ingest candidate
// streams, trigger a run and read back the ranking and run report.
package server

import (
	"context"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/dimenwarper/rootsearch/internal/config"
	"github.com/dimenwarper/rootsearch/internal/core"
	"github.com/dimenwarper/rootsearch/internal/core/model"
	"github.com/dimenwarper/rootsearch/internal/driver"
	"github.com/dimenwarper/rootsearch/internal/llm"
	"github.com/dimenwarper/rootsearch/internal/oracle"
	"github.com/dimenwarper/rootsearch/internal/store"
)

type Server struct {
	Engine *core.Engine
	Driver driver.GraphDriver
	Logger *log.Logger

	mu         sync.Mutex
	candidates []model.CandidateNode
	edges      []model.Edge
	last       *core.RunResult
}

// NewServer builds the engine from config plus env overrides. The
// Memgraph driver is optional; without it /export returns 503.
func NewServer(logger *log.Logger) (*Server, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("could not load config, using defaults", "path", cfgPath, "err", err)
		cfg = config.Default()
	}

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
		cfg.LLM.Model = "gpt-oss:latest"
		cfg.LLM.BaseURL = "http://localhost:11434"
	}

	llmClient, embedder, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		return nil, err
	}

	mergeLogPath := os.Getenv("MERGE_LOG")
	if mergeLogPath == "" {
		mergeLogPath = "merge_log.ndjson"
	}
	mergeLog, err := store.OpenMergeLog(mergeLogPath)
	if err != nil {
		return nil, err
	}

	engine, err := core.NewEngine(embedder, oracle.NewLLMOracle(llmClient), mergeLog, cfg, logger)
	if err != nil {
		return nil, err
	}

	srv := &Server{Engine: engine, Logger: logger}

	if uri := os.Getenv("MEMGRAPH_URI"); uri != "" {
		d, err := driver.NewMemgraphDriver(uri, os.Getenv("MEMGRAPH_USER"), os.Getenv("MEMGRAPH_PASSWORD"), logger)
		if err != nil {
			return nil, err
		}
		srv.Driver = d
	}

	return srv, nil
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/candidates", s.AddCandidates)
	r.POST("/edges", s.AddEdges)
	r.POST("/run", s.Run)
	r.GET("/ranking", s.Ranking)
	r.GET("/report", s.Report)
	r.POST("/export", s.Export)

	return r
}

// AddCandidates ingests newline-delimited candidate nodes. Invalid lines
// are skipped and counted, matching file ingestion.
func (s *Server) AddCandidates(c *gin.Context) {
	nodes, skipped, err := store.ReadNodes(c.Request.Body, s.Logger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.candidates = append(s.candidates, nodes...)
	total := len(s.candidates)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"accepted": len(nodes), "skipped": skipped, "pending": total})
}

func (s *Server) AddEdges(c *gin.Context) {
	edges, skipped, err := store.ReadEdges(c.Request.Body, s.Logger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.edges = append(s.edges, edges...)
	total := len(s.edges)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"accepted": len(edges), "skipped": skipped, "pending": total})
}

// Run consumes the buffered batch through the full pipeline.
func (s *Server) Run(c *gin.Context) {
	s.mu.Lock()
	candidates := s.candidates
	edges := s.edges
	s.candidates = nil
	s.edges = nil
	s.mu.Unlock()

	if len(candidates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no candidates ingested"})
		return
	}

	result, err := s.Engine.Run(c.Request.Context(), candidates, edges)
	if err != nil {
		s.Logger.Error("pipeline run failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	c.JSON(http.StatusOK, result.Report)
}

func (s *Server) Ranking(c *gin.Context) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ranking":     last.Ranked,
		"assessments": last.Assessments,
	})
}

func (s *Server) Report(c *gin.Context) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run"})
		return
	}
	c.JSON(http.StatusOK, last.Report)
}

// Export pushes the last run's graph to Memgraph.
func (s *Server) Export(c *gin.Context) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run"})
		return
	}
	if s.Driver == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no graph database configured"})
		return
	}

	if err := s.Driver.BuildIndices(c.Request.Context()); err != nil {
		s.Logger.Warn("failed to build indices", "err", err)
	}
	if err := driver.Export(c.Request.Context(), s.Driver, last.Graph); err != nil {
		s.Logger.Error("export failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"nodes": last.Graph.Order(), "edges": last.Graph.Size()})
}
