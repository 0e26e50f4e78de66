package eval

import (
	"strings"

	"github.com/kyleconroy/sqlmatch/ast"
	"github.com/kyleconroy/sqlmatch/schema"
)

// Config controls how far canonicalization goes before scoring.
type Config struct {
	// StripValues replaces literal condition operands with nil, making the
	// comparison value-blind (literal correctness is judged elsewhere,
	// typically by execution-based comparison).
	StripValues bool
	// StripDistinct clears DISTINCT markers on column references so that
	// DISTINCT-only differences do not affect structural equivalence.
	StripDistinct bool
}

// DefaultConfig is the standard benchmark setting: value-blind and
// DISTINCT-blind.
func DefaultConfig() Config {
	return Config{StripValues: true, StripDistinct: true}
}

// ValidColumns computes the column identifiers reachable from a query's FROM
// clause. Canonicalization must only rewrite these: the foreign-key map is
// global, and rewriting columns of unrelated tables that merely share a name
// would incorrectly unify them.
func ValidColumns(tables []*ast.TableUnit, s *schema.Schema) map[string]bool {
	prefixes := make(map[string]bool)
	for _, tu := range tables {
		if tu.Kind == ast.TableRef {
			prefixes[strings.TrimSuffix(tu.Table, "__")] = true
		}
	}

	valid := make(map[string]bool)
	for _, id := range s.ColumnIDs() {
		if idx := strings.Index(id, "."); idx >= 0 && prefixes[id[:idx]] {
			valid[id] = true
		}
	}
	return valid
}

// RebuildColumns rewrites every foreign-key-mapped column reference in the
// query to its canonical identifier, restricted to the valid column set.
// It walks the select list, join and filter conditions, grouping, ordering,
// FROM subqueries, and the intersect/except/union branches.
func RebuildColumns(q *ast.ParsedQuery, valid map[string]bool, fkMap map[string]string, cfg Config) {
	if q == nil {
		return
	}

	for i := range q.Select.Fields {
		rebuildValUnit(q.Select.Fields[i].Val, valid, fkMap, cfg)
	}
	for _, tu := range q.From.Tables {
		if tu.Kind == ast.SubQuery {
			RebuildColumns(tu.Query, valid, fkMap, cfg)
		}
	}
	rebuildConds(q.From.Conds, valid, fkMap, cfg)
	rebuildConds(q.Where, valid, fkMap, cfg)
	for _, cu := range q.GroupBy {
		rebuildColUnit(cu, valid, fkMap, cfg)
	}
	if q.OrderBy != nil {
		for _, vu := range q.OrderBy.Vals {
			rebuildValUnit(vu, valid, fkMap, cfg)
		}
	}
	rebuildConds(q.Having, valid, fkMap, cfg)

	RebuildColumns(q.Intersect, valid, fkMap, cfg)
	RebuildColumns(q.Except, valid, fkMap, cfg)
	RebuildColumns(q.Union, valid, fkMap, cfg)
}

func rebuildConds(list ast.ConditionList, valid map[string]bool, fkMap map[string]string, cfg Config) {
	for _, cond := range list.Conds {
		rebuildValUnit(cond.Val, valid, fkMap, cfg)
	}
}

func rebuildValUnit(vu *ast.ValUnit, valid map[string]bool, fkMap map[string]string, cfg Config) {
	if vu == nil {
		return
	}
	rebuildColUnit(vu.Col, valid, fkMap, cfg)
	rebuildColUnit(vu.Col2, valid, fkMap, cfg)
}

func rebuildColUnit(cu *ast.ColUnit, valid map[string]bool, fkMap map[string]string, cfg Config) {
	if cu == nil {
		return
	}
	if cfg.StripDistinct {
		cu.Distinct = false
	}
	if canonical, ok := fkMap[cu.Col]; ok && valid[cu.Col] {
		cu.Col = canonical
	}
}

// StripValues replaces literal condition operands with nil throughout the
// query's join, where, and having conditions, recursing into the
// intersect/except/union branches. Subquery operands are kept and stripped
// recursively.
func StripValues(q *ast.ParsedQuery, cfg Config) {
	if q == nil || !cfg.StripValues {
		return
	}
	stripCondValues(q.From.Conds, cfg)
	stripCondValues(q.Where, cfg)
	stripCondValues(q.Having, cfg)

	StripValues(q.Intersect, cfg)
	StripValues(q.Except, cfg)
	StripValues(q.Union, cfg)
}

func stripCondValues(list ast.ConditionList, cfg Config) {
	for _, cond := range list.Conds {
		cond.Operand1 = stripOperand(cond.Operand1, cfg)
		cond.Operand2 = stripOperand(cond.Operand2, cfg)
	}
}

func stripOperand(op *ast.Operand, cfg Config) *ast.Operand {
	if op == nil {
		return nil
	}
	if op.Query != nil {
		StripValues(op.Query, cfg)
		return op
	}
	return nil
}
