package eval

import (
	"context"
	"fmt"

	"github.com/kyleconroy/sqlmatch/ast"
	"github.com/kyleconroy/sqlmatch/internal/normalize"
	"github.com/kyleconroy/sqlmatch/parser"
	"github.com/kyleconroy/sqlmatch/schema"
)

// Evaluator grades predicted queries against gold queries for one database.
// It is immutable after construction and safe for concurrent use.
type Evaluator struct {
	schema *schema.Schema
	fkMap  map[string]string
	cfg    Config
}

// New builds an Evaluator for a database schema, precomputing its
// foreign-key equivalence map.
func New(s *schema.Schema, cfg Config) (*Evaluator, error) {
	fkMap, err := BuildForeignKeyMap(s)
	if err != nil {
		return nil, fmt.Errorf("foreign key map for %s: %w", s.DB(), err)
	}
	return &Evaluator{schema: s, fkMap: fkMap, cfg: cfg}, nil
}

// Result is the verdict for one (predicted, gold) pair.
type Result struct {
	Exact      bool                     `json:"exact"`
	Partial    map[string]CategoryScore `json:"partial"`
	Hardness   string                   `json:"hardness"`
	PredParsed bool                     `json:"pred_parsed"`
}

// Tokenize parses and canonicalizes one SQL query: comments and literal
// values stripped, columns rewritten to their foreign-key canonical form
// restricted to the query's own FROM tables.
func (e *Evaluator) Tokenize(ctx context.Context, sql string) (*ast.ParsedQuery, error) {
	q, err := parser.ParseString(ctx, normalize.Clean(sql), e.schema)
	if err != nil {
		return nil, err
	}
	e.Canonicalize(q)
	return q, nil
}

// Canonicalize normalizes a parsed query in place. Both value-stripping and
// column-rebuilding complete before any scorer runs.
func (e *Evaluator) Canonicalize(q *ast.ParsedQuery) {
	StripValues(q, e.cfg)
	valid := ValidColumns(q.From.Tables, e.schema)
	RebuildColumns(q, valid, e.fkMap, e.cfg)
}

// Evaluate grades a predicted SQL string against a gold SQL string. An
// unparseable predicted query is replaced by the canonical empty query and
// scored as a structural mismatch; an unparseable gold query is an error,
// since it signals a corrupt benchmark fixture rather than a bad prediction.
func (e *Evaluator) Evaluate(ctx context.Context, predictedSQL, goldSQL string) (*Result, error) {
	gold, err := e.Tokenize(ctx, goldSQL)
	if err != nil {
		return nil, fmt.Errorf("gold query: %w", err)
	}

	predParsed := true
	pred, err := e.Tokenize(ctx, predictedSQL)
	if err != nil {
		pred = ast.Empty()
		predParsed = false
	}

	return &Result{
		Exact:      ExactMatch(pred, gold),
		Partial:    PartialScores(pred, gold),
		Hardness:   Hardness(gold),
		PredParsed: predParsed,
	}, nil
}
