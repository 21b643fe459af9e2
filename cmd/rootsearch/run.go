package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dimenwarper/rootsearch/internal/config"
	"github.com/dimenwarper/rootsearch/internal/core"
	"github.com/dimenwarper/rootsearch/internal/core/model"
	"github.com/dimenwarper/rootsearch/internal/llm"
	"github.com/dimenwarper/rootsearch/internal/oracle"
	"github.com/dimenwarper/rootsearch/internal/store"
)

var (
	nodesPath       string
	edgesPath       string
	rankingPath     string
	assessmentsPath string
	graphOutPath    string
	mergeLogPath    string
)

func init() {
	runCmd.Flags().StringVar(&nodesPath, "nodes", "", "Candidate node NDJSON file (required)")
	runCmd.Flags().StringVar(&edgesPath, "edges", "", "Candidate edge NDJSON file")
	runCmd.Flags().StringVar(&rankingPath, "out", "ranking.ndjson", "Ranking output file")
	runCmd.Flags().StringVar(&assessmentsPath, "assessments-out", "assessments.ndjson", "Decomposability output file")
	runCmd.Flags().StringVar(&graphOutPath, "graph-out", "graph.ndjson", "Assembled graph output file")
	runCmd.Flags().StringVar(&mergeLogPath, "merge-log", "merge_log.ndjson", "Append-only merge record log")
	_ = runCmd.MarkFlagRequired("nodes")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Resolve, assemble and score a candidate batch",
	Long: `Run the full pipeline over a candidate batch: embed and cluster the
candidates, resolve duplicates and cross-field stubs, assemble the
dependency graph and write the leverage ranking.

Example:
  rootsearch run --nodes candidates.ndjson --edges edges.ndjson --out ranking.ndjson`,
	RunE: runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	llmClient, embedder, err := llm.NewClient(cmd.Context(), cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	mergeLog, err := store.OpenMergeLog(mergeLogPath)
	if err != nil {
		return err
	}
	defer mergeLog.Close()

	engine, err := core.NewEngine(embedder, oracle.NewLLMOracle(llmClient), mergeLog, cfg, logger)
	if err != nil {
		return err
	}

	nodes, edges, err := readBatch()
	if err != nil {
		return err
	}

	result, err := engine.Run(cmd.Context(), nodes, edges)
	if err != nil {
		return err
	}

	if err := writeFile(rankingPath, func(f *os.File) error {
		return store.WriteRanking(f, result.Ranked)
	}); err != nil {
		return err
	}
	if err := writeFile(assessmentsPath, func(f *os.File) error {
		return store.WriteAssessments(f, result.Assessments)
	}); err != nil {
		return err
	}
	if err := writeFile(graphOutPath, func(f *os.File) error {
		return store.WriteGraph(f, result.Graph)
	}); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Report)
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			configPath = envPath
		}
	}

	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
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

	return cfg, cfg.Validate()
}

func readBatch() ([]model.CandidateNode, []model.Edge, error) {
	nf, err := os.Open(nodesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open nodes file: %w", err)
	}
	defer nf.Close()

	nodes, skipped, err := store.ReadNodes(nf, logger)
	if err != nil {
		return nil, nil, err
	}
	if skipped > 0 {
		logger.Warn("skipped invalid node records", "count", skipped)
	}

	var edges []model.Edge
	if edgesPath != "" {
		ef, err := os.Open(edgesPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open edges file: %w", err)
		}
		defer ef.Close()

		edges, skipped, err = store.ReadEdges(ef, logger)
		if err != nil {
			return nil, nil, err
		}
		if skipped > 0 {
			logger.Warn("skipped invalid edge records", "count", skipped)
		}
	}

	return nodes, edges, nil
}

func writeFile(path string, fn func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
