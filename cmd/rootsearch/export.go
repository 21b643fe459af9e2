package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dimenwarper/rootsearch/internal/core/assemble"
	"github.com/dimenwarper/rootsearch/internal/driver"
	"github.com/dimenwarper/rootsearch/internal/store"
)

var graphPath string

func init() {
	exportCmd.Flags().StringVar(&graphPath, "graph", "graph.ndjson", "Graph stream written by a previous run")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Push a previously assembled graph to Memgraph",
	Long: `Load the graph stream from a previous run and write every node and
edge to Memgraph. Connection settings come from MEMGRAPH_URI,
MEMGRAPH_USER and MEMGRAPH_PASSWORD.

Example:
  rootsearch export --graph graph.ndjson`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	uri := os.Getenv("MEMGRAPH_URI")
	if uri == "" {
		uri = "bolt://localhost:7687"
	}

	f, err := os.Open(graphPath)
	if err != nil {
		return fmt.Errorf("failed to open graph file: %w", err)
	}
	defer f.Close()

	nodes, edges, err := store.ReadGraph(f)
	if err != nil {
		return err
	}

	// Endpoints are already canonical and above the floor; reassembly just
	// rebuilds the arena and adjacency.
	assembler := &assemble.Assembler{Floor: 0, Logger: logger}
	graph, _ := assembler.Assemble(nodes, edges, nil)

	d, err := driver.NewMemgraphDriver(uri, os.Getenv("MEMGRAPH_USER"), os.Getenv("MEMGRAPH_PASSWORD"), logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Memgraph: %w", err)
	}
	defer d.Close(cmd.Context())

	if err := d.BuildIndices(cmd.Context()); err != nil {
		logger.Warn("failed to build indices", "err", err)
	}
	if err := driver.Export(cmd.Context(), d, graph); err != nil {
		return err
	}

	logger.Info("export complete", "nodes", graph.Order(), "edges", graph.Size())
	return nil
}
