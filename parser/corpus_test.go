package parser_test

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/kyleconroy/sqlmatch/parser"
)

// corpusQueries reads the shared query corpus: one query per line, blank
// lines skipped.
func corpusQueries(t *testing.T) []string {
	t.Helper()
	f, err := os.Open("testdata/queries.sql")
	if err != nil {
		t.Fatalf("Failed to read query corpus: %v", err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			queries = append(queries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Failed to read query corpus: %v", err)
	}
	return queries
}

// TestCorpus parses every corpus query against the fixture schema. The
// corpus holds representative benchmark shapes: joins, aliases, grouping,
// set operations, and nested subqueries.
func TestCorpus(t *testing.T) {
	s := testSchema(t)
	for i, query := range corpusQueries(t) {
		t.Run(fmt.Sprintf("query_%02d", i+1), func(t *testing.T) {
			q, err := parser.ParseString(context.Background(), query, s)
			if err != nil {
				t.Fatalf("Failed to parse %q: %v", query, err)
			}
			if len(q.Select.Fields) == 0 {
				t.Errorf("parsed %q with an empty select list", query)
			}
			if len(q.From.Tables) == 0 {
				t.Errorf("parsed %q with an empty from clause", query)
			}
		})
	}
}
