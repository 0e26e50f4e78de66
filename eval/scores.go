package eval

import (
	"reflect"
	"slices"
	"strings"

	"github.com/kyleconroy/sqlmatch/ast"
)

// Score category names, in reporting order.
const (
	CatSelect      = "select"
	CatSelectNoAgg = "select(no AGG)"
	CatWhere       = "where"
	CatWhereNoOp   = "where(no OP)"
	CatGroupNoHav  = "group(no Having)"
	CatGroup       = "group"
	CatOrder       = "order"
	CatAndOr       = "and/or"
	CatIUEN        = "IUEN"
	CatKeywords    = "keywords"
)

// Categories lists every scored category in reporting order.
var Categories = []string{
	CatSelect, CatSelectNoAgg, CatWhere, CatWhereNoOp,
	CatGroupNoHav, CatGroup, CatOrder, CatAndOr, CatIUEN, CatKeywords,
}

// CategoryScore is the per-category diagnostic record.
type CategoryScore struct {
	Acc       float64 `json:"acc"`
	Rec       float64 `json:"rec"`
	F1        float64 `json:"f1"`
	GoldTotal int     `json:"gold_total"`
	PredTotal int     `json:"pred_total"`
}

// gateScores converts a count triple into the all-or-nothing accuracy,
// recall, and f1 values: any mismatch in totals or membership scores zero.
func gateScores(matched, predTotal, goldTotal int) (acc, rec, f1 float64) {
	if predTotal != goldTotal {
		return 0, 0, 0
	}
	if matched == predTotal {
		return 1, 1, 1
	}
	return 0, 0, 0
}

// matchRemove looks for an item deep-equal to target; on success it returns
// the list with one occurrence removed, so each gold item satisfies at most
// one predicted item.
func matchRemove[T any](items []T, target T) ([]T, bool) {
	for i, item := range items {
		if reflect.DeepEqual(item, target) {
			return append(items[:i:i], items[i+1:]...), true
		}
	}
	return items, false
}

func scoreSelect(pred, gold *ast.ParsedQuery) (goldTotal, predTotal, matched, matchedNoAgg int) {
	goldFields := append([]ast.SelectField(nil), gold.Select.Fields...)
	goldVals := make([]*ast.ValUnit, len(goldFields))
	for i, f := range goldFields {
		goldVals[i] = f.Val
	}
	goldTotal = len(goldFields)
	predTotal = len(pred.Select.Fields)

	for _, field := range pred.Select.Fields {
		var ok bool
		if goldFields, ok = matchRemove(goldFields, field); ok {
			matched++
		}
		if goldVals, ok = matchRemove(goldVals, field.Val); ok {
			matchedNoAgg++
		}
	}
	return goldTotal, predTotal, matched, matchedNoAgg
}

func scoreWhere(pred, gold *ast.ParsedQuery) (goldTotal, predTotal, matched, matchedNoOp int) {
	goldConds := append([]*ast.CondUnit(nil), gold.Where.Conds...)
	goldVals := make([]*ast.ValUnit, len(goldConds))
	for i, c := range goldConds {
		goldVals[i] = c.Val
	}
	goldTotal = len(goldConds)
	predTotal = len(pred.Where.Conds)

	for _, cond := range pred.Where.Conds {
		var ok bool
		if goldConds, ok = matchRemove(goldConds, cond); ok {
			matched++
		}
		if goldVals, ok = matchRemove(goldVals, cond.Val); ok {
			matchedNoOp++
		}
	}
	return goldTotal, predTotal, matched, matchedNoOp
}

// scoreGroupBy compares grouping columns with the table qualifier stripped.
func scoreGroupBy(pred, gold *ast.ParsedQuery) (goldTotal, predTotal, matched int) {
	goldTotal = len(gold.GroupBy)
	predTotal = len(pred.GroupBy)

	goldCols := make([]string, goldTotal)
	for i, cu := range gold.GroupBy {
		goldCols[i] = stripQualifier(cu.Col)
	}
	for _, cu := range pred.GroupBy {
		var ok bool
		if goldCols, ok = matchRemove(goldCols, stripQualifier(cu.Col)); ok {
			matched++
		}
	}
	return goldTotal, predTotal, matched
}

func stripQualifier(col string) string {
	if idx := strings.Index(col, "."); idx >= 0 {
		return col[idx+1:]
	}
	return col
}

// scoreHaving treats the having clause as a presence signal gated on an
// identical GROUP BY: both queries must group by the same columns and carry
// an identical having clause.
func scoreHaving(pred, gold *ast.ParsedQuery) (goldTotal, predTotal, matched int) {
	if len(pred.GroupBy) > 0 {
		predTotal = 1
	}
	if len(gold.GroupBy) > 0 {
		goldTotal = 1
	}
	if predTotal == 1 && goldTotal == 1 &&
		slices.Equal(groupCols(pred), groupCols(gold)) &&
		reflect.DeepEqual(pred.Having, gold.Having) {
		matched = 1
	}
	return goldTotal, predTotal, matched
}

func groupCols(q *ast.ParsedQuery) []string {
	cols := make([]string, len(q.GroupBy))
	for i, cu := range q.GroupBy {
		cols[i] = cu.Col
	}
	return cols
}

// scoreOrderBy is a presence signal requiring an identical ORDER BY and
// matching presence of a LIMIT; limit values are not compared.
func scoreOrderBy(pred, gold *ast.ParsedQuery) (goldTotal, predTotal, matched int) {
	if pred.OrderBy != nil {
		predTotal = 1
	}
	if gold.OrderBy != nil {
		goldTotal = 1
	}
	if gold.OrderBy != nil && reflect.DeepEqual(pred.OrderBy, gold.OrderBy) &&
		(pred.Limit == nil) == (gold.Limit == nil) {
		matched = 1
	}
	return goldTotal, predTotal, matched
}

// scoreAndOr compares the sets of boolean connectors used in the WHERE
// clause. Duplicates collapse; partial overlap scores zero.
func scoreAndOr(pred, gold *ast.ParsedQuery) (goldTotal, predTotal, matched int) {
	predSet := connectorSet(pred.Where.Connectors)
	goldSet := connectorSet(gold.Where.Connectors)
	if reflect.DeepEqual(predSet, goldSet) {
		return 1, 1, 1
	}
	return len(goldSet), len(predSet), 0
}

func connectorSet(connectors []string) map[string]bool {
	set := make(map[string]bool)
	for _, c := range connectors {
		set[c] = true
	}
	return set
}

// scoreNested scores one optional nested query pair: presence counts on each
// side, and a match requires full recursive exact-match equivalence.
func scoreNested(pred, gold *ast.ParsedQuery) (goldTotal, predTotal, matched int) {
	if pred != nil {
		predTotal = 1
	}
	if gold != nil {
		goldTotal = 1
	}
	if pred != nil && gold != nil && ExactMatch(pred, gold) {
		matched = 1
	}
	return goldTotal, predTotal, matched
}

// scoreIUEN sums the nested scores of the intersect, except, and union
// branches. All three are scored independently; the data model permits a
// query to set several at once and that permissiveness is preserved here.
func scoreIUEN(pred, gold *ast.ParsedQuery) (goldTotal, predTotal, matched int) {
	gt, pt, m := scoreNested(pred.Intersect, gold.Intersect)
	goldTotal, predTotal, matched = goldTotal+gt, predTotal+pt, matched+m
	gt, pt, m = scoreNested(pred.Except, gold.Except)
	goldTotal, predTotal, matched = goldTotal+gt, predTotal+pt, matched+m
	gt, pt, m = scoreNested(pred.Union, gold.Union)
	return goldTotal + gt, predTotal + pt, matched + m
}

// keywords derives the keyword usage set of a query.
func keywords(q *ast.ParsedQuery) map[string]bool {
	res := make(map[string]bool)
	if !q.Where.Empty() {
		res["where"] = true
	}
	if len(q.GroupBy) > 0 {
		res["group"] = true
	}
	if !q.Having.Empty() {
		res["having"] = true
	}
	if q.OrderBy != nil {
		res["order"] = true
		res[q.OrderBy.Direction] = true
	}
	if q.Limit != nil {
		res["limit"] = true
	}
	if q.Intersect != nil {
		res["intersect"] = true
	}
	if q.Union != nil {
		res["union"] = true
	}
	if q.Except != nil {
		res["except"] = true
	}

	connectors := append(append(append([]string(nil),
		q.From.Conds.Connectors...), q.Where.Connectors...), q.Having.Connectors...)
	for _, c := range connectors {
		if c == "or" {
			res["or"] = true
		}
	}

	conds := allConds(q)
	for _, cond := range conds {
		if cond.Not {
			res["not"] = true
		}
		if cond.Op == ast.CmpIn {
			res["in"] = true
		}
		if cond.Op == ast.CmpLike {
			res["like"] = true
		}
	}
	return res
}

func allConds(q *ast.ParsedQuery) []*ast.CondUnit {
	conds := append([]*ast.CondUnit(nil), q.From.Conds.Conds...)
	conds = append(conds, q.Where.Conds...)
	return append(conds, q.Having.Conds...)
}

// scoreKeywords counts the predicted keywords also present in gold's set.
func scoreKeywords(pred, gold *ast.ParsedQuery) (goldTotal, predTotal, matched int) {
	predSet := keywords(pred)
	goldSet := keywords(gold)
	goldTotal = len(goldSet)
	predTotal = len(predSet)
	for k := range predSet {
		if goldSet[k] {
			matched++
		}
	}
	return goldTotal, predTotal, matched
}

// PartialScores runs every category scorer over two canonicalized queries and
// returns the per-category breakdown.
func PartialScores(pred, gold *ast.ParsedQuery) map[string]CategoryScore {
	res := make(map[string]CategoryScore, len(Categories))

	record := func(cat string, goldTotal, predTotal, matched int) {
		acc, rec, f1 := gateScores(matched, predTotal, goldTotal)
		res[cat] = CategoryScore{Acc: acc, Rec: rec, F1: f1, GoldTotal: goldTotal, PredTotal: predTotal}
	}

	goldTotal, predTotal, matched, matchedNoAgg := scoreSelect(pred, gold)
	record(CatSelect, goldTotal, predTotal, matched)
	record(CatSelectNoAgg, goldTotal, predTotal, matchedNoAgg)

	goldTotal, predTotal, matched, matchedNoOp := scoreWhere(pred, gold)
	record(CatWhere, goldTotal, predTotal, matched)
	record(CatWhereNoOp, goldTotal, predTotal, matchedNoOp)

	goldTotal, predTotal, matched = scoreGroupBy(pred, gold)
	record(CatGroupNoHav, goldTotal, predTotal, matched)

	goldTotal, predTotal, matched = scoreHaving(pred, gold)
	record(CatGroup, goldTotal, predTotal, matched)

	goldTotal, predTotal, matched = scoreOrderBy(pred, gold)
	record(CatOrder, goldTotal, predTotal, matched)

	goldTotal, predTotal, matched = scoreAndOr(pred, gold)
	record(CatAndOr, goldTotal, predTotal, matched)

	goldTotal, predTotal, matched = scoreIUEN(pred, gold)
	record(CatIUEN, goldTotal, predTotal, matched)

	goldTotal, predTotal, matched = scoreKeywords(pred, gold)
	record(CatKeywords, goldTotal, predTotal, matched)

	return res
}

// ExactMatch reports whether the predicted query is structurally equivalent
// to the gold query: every category's f1 must be 1 and, when the gold query
// references any tables, the two FROM clauses must use the same multiset of
// table units.
func ExactMatch(pred, gold *ast.ParsedQuery) bool {
	partial := PartialScores(pred, gold)
	for _, score := range partial {
		if score.F1 != 1 {
			return false
		}
	}
	return tablesMatch(pred, gold)
}

func tablesMatch(pred, gold *ast.ParsedQuery) bool {
	if len(gold.From.Tables) == 0 {
		return true
	}
	if len(pred.From.Tables) != len(gold.From.Tables) {
		return false
	}
	remaining := append([]*ast.TableUnit(nil), gold.From.Tables...)
	for _, tu := range pred.From.Tables {
		var ok bool
		if remaining, ok = matchRemove(remaining, tu); !ok {
			return false
		}
	}
	return true
}
