package eval

import "github.com/kyleconroy/sqlmatch/ast"

// Difficulty buckets used when reporting benchmark results.
const (
	HardnessEasy   = "easy"
	HardnessMedium = "medium"
	HardnessHard   = "hard"
	HardnessExtra  = "extra"
)

// HardnessLevels lists the buckets in ascending difficulty.
var HardnessLevels = []string{HardnessEasy, HardnessMedium, HardnessHard, HardnessExtra}

// Hardness classifies a gold query into a difficulty bucket from the number
// of SQL components, nested subqueries, and secondary constructs it uses.
func Hardness(q *ast.ParsedQuery) string {
	components := countComponents(q)
	nested := len(nestedQueries(q))
	others := countOthers(q)

	switch {
	case components <= 1 && others == 0 && nested == 0:
		return HardnessEasy
	case (others <= 2 && components <= 1 && nested == 0) ||
		(components <= 2 && others < 2 && nested == 0):
		return HardnessMedium
	case (others > 2 && components <= 2 && nested == 0) ||
		(components > 2 && components <= 3 && others <= 2 && nested == 0) ||
		(components <= 1 && others == 0 && nested <= 1):
		return HardnessHard
	default:
		return HardnessExtra
	}
}

// countComponents counts the primary clause components: filters, grouping,
// ordering, limits, joins, OR connectors, and LIKE conditions.
func countComponents(q *ast.ParsedQuery) int {
	count := 0
	if !q.Where.Empty() {
		count++
	}
	if len(q.GroupBy) > 0 {
		count++
	}
	if q.OrderBy != nil {
		count++
	}
	if q.Limit != nil {
		count++
	}
	if n := len(q.From.Tables); n > 0 {
		count += n - 1
	}

	connectors := append(append(append([]string(nil),
		q.From.Conds.Connectors...), q.Where.Connectors...), q.Having.Connectors...)
	for _, c := range connectors {
		if c == "or" {
			count++
		}
	}
	for _, cond := range allConds(q) {
		if cond.Op == ast.CmpLike {
			count++
		}
	}
	return count
}

// nestedQueries collects every query nested inside q: subquery condition
// operands plus the intersect/except/union branches.
func nestedQueries(q *ast.ParsedQuery) []*ast.ParsedQuery {
	var nested []*ast.ParsedQuery
	for _, cond := range allConds(q) {
		for _, op := range []*ast.Operand{cond.Operand1, cond.Operand2} {
			if op != nil && op.Query != nil {
				nested = append(nested, op.Query)
			}
		}
	}
	for _, sub := range []*ast.ParsedQuery{q.Intersect, q.Except, q.Union} {
		if sub != nil {
			nested = append(nested, sub)
		}
	}
	return nested
}

// countOthers counts secondary constructs: multiple aggregations, multiple
// select fields, multiple filters, and multiple grouping columns.
func countOthers(q *ast.ParsedQuery) int {
	count := 0
	if countAggs(q) > 1 {
		count++
	}
	if len(q.Select.Fields) > 1 {
		count++
	}
	if len(q.Where.Conds) > 1 {
		count++
	}
	if len(q.GroupBy) > 1 {
		count++
	}
	return count
}

func countAggs(q *ast.ParsedQuery) int {
	count := 0
	for _, f := range q.Select.Fields {
		if f.Agg != ast.AggNone {
			count++
		}
		count += valUnitAggs(f.Val)
	}
	for _, cond := range q.Where.Conds {
		count += valUnitAggs(cond.Val)
	}
	for _, cu := range q.GroupBy {
		if cu.Agg != ast.AggNone {
			count++
		}
	}
	if q.OrderBy != nil {
		for _, vu := range q.OrderBy.Vals {
			count += valUnitAggs(vu)
		}
	}
	for _, cond := range q.Having.Conds {
		count += valUnitAggs(cond.Val)
	}
	return count
}

func valUnitAggs(vu *ast.ValUnit) int {
	if vu == nil {
		return 0
	}
	count := 0
	if vu.Col != nil && vu.Col.Agg != ast.AggNone {
		count++
	}
	if vu.Col2 != nil && vu.Col2.Agg != ast.AggNone {
		count++
	}
	return count
}
