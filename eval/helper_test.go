package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kyleconroy/sqlmatch/ast"
	"github.com/kyleconroy/sqlmatch/internal/normalize"
	"github.com/kyleconroy/sqlmatch/parser"
	"github.com/kyleconroy/sqlmatch/schema"
)

// testSchema builds the fixture schema used across the package tests: four
// tables linked by three foreign keys, with a column name ("Name") shared by
// two tables.
func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("concert_singer",
		[]string{"stadium", "singer", "concert", "singer_in_concert"},
		[]schema.Column{
			{TableIndex: -1, Name: "*"},
			{TableIndex: 0, Name: "Stadium_ID"},
			{TableIndex: 0, Name: "Name"},
			{TableIndex: 0, Name: "Capacity"},
			{TableIndex: 1, Name: "Singer_ID"},
			{TableIndex: 1, Name: "Name"},
			{TableIndex: 1, Name: "Country"},
			{TableIndex: 1, Name: "Age"},
			{TableIndex: 2, Name: "concert_ID"},
			{TableIndex: 2, Name: "concert_Name"},
			{TableIndex: 2, Name: "Stadium_ID"},
			{TableIndex: 2, Name: "Year"},
			{TableIndex: 3, Name: "concert_ID"},
			{TableIndex: 3, Name: "Singer_ID"},
		},
		[][2]int{{10, 1}, {12, 8}, {13, 4}},
	)
	require.NoError(t, err)
	return s
}

func testEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := New(testSchema(t), DefaultConfig())
	require.NoError(t, err)
	return e
}

// parse returns the raw parsed query, before canonicalization.
func parse(t *testing.T, sql string) *ast.ParsedQuery {
	t.Helper()
	q, err := parser.ParseString(context.Background(), normalize.Clean(sql), testSchema(t))
	require.NoError(t, err, "parse %q", sql)
	return q
}

// canonical returns the fully canonicalized query.
func canonical(t *testing.T, e *Evaluator, sql string) *ast.ParsedQuery {
	t.Helper()
	q, err := e.Tokenize(context.Background(), sql)
	require.NoError(t, err, "tokenize %q", sql)
	return q
}

func evaluate(t *testing.T, e *Evaluator, pred, gold string) *Result {
	t.Helper()
	res, err := e.Evaluate(context.Background(), pred, gold)
	require.NoError(t, err)
	return res
}
