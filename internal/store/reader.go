// Package store reads candidate records from newline-delimited streams
// and writes the merge-record and scored-output streams.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dimenwarper/rootsearch/internal/core/model"
)

// Generous line buffer; descriptions plus evidence can get long.
const maxLineBytes = 1 << 20

// ReadNodes consumes one CandidateNode per line. Records missing required
// fields or carrying unrecognized type tags are skipped with a logged
// violation; unknown JSON fields are ignored. Only stream-level IO
// failures are errors.
func ReadNodes(r io.Reader, logger *log.Logger) ([]model.CandidateNode, int, error) {
	var nodes []model.CandidateNode
	skipped := 0

	err := scanLines(r, func(lineNo int, line []byte) {
		var n model.CandidateNode
		if err := json.Unmarshal(line, &n); err != nil {
			skipped++
			if logger != nil {
				logger.Warn("skipping malformed node record", "line", lineNo, "err", err)
			}
			return
		}
		if err := n.Validate(); err != nil {
			skipped++
			if logger != nil {
				logger.Warn("skipping invalid node record", "line", lineNo, "err", err)
			}
			return
		}
		nodes = append(nodes, n)
	})
	if err != nil {
		return nil, skipped, err
	}
	return nodes, skipped, nil
}

// ReadEdges consumes one candidate edge per line with the same skip
// semantics. Edges referencing unknown node ids are retained; the
// assembler resolves or drops them later.
func ReadEdges(r io.Reader, logger *log.Logger) ([]model.Edge, int, error) {
	var edges []model.Edge
	skipped := 0

	err := scanLines(r, func(lineNo int, line []byte) {
		var e model.Edge
		if err := json.Unmarshal(line, &e); err != nil {
			skipped++
			if logger != nil {
				logger.Warn("skipping malformed edge record", "line", lineNo, "err", err)
			}
			return
		}
		if err := e.Validate(); err != nil {
			skipped++
			if logger != nil {
				logger.Warn("skipping invalid edge record", "line", lineNo, "err", err)
			}
			return
		}
		edges = append(edges, e)
	})
	if err != nil {
		return nil, skipped, err
	}
	return edges, skipped, nil
}

func scanLines(r io.Reader, fn func(lineNo int, line []byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fn(lineNo, []byte(line))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read record stream: %w", err)
	}
	return nil
}
