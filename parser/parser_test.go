package parser_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/kyleconroy/sqlmatch/ast"
	"github.com/kyleconroy/sqlmatch/parser"
	"github.com/kyleconroy/sqlmatch/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	schemas, err := schema.LoadTables("testdata/tables.json")
	if err != nil {
		t.Fatalf("load schema fixture: %v", err)
	}
	s, ok := schemas["concert_singer"]
	if !ok {
		t.Fatal("fixture is missing concert_singer")
	}
	return s
}

func mustParse(t *testing.T, sql string) *ast.ParsedQuery {
	t.Helper()
	q, err := parser.ParseString(context.Background(), sql, testSchema(t))
	if err != nil {
		t.Fatalf("parse %q: %v", sql, err)
	}
	return q
}

func TestParseSelect(t *testing.T) {
	q := mustParse(t, "SELECT DISTINCT name, count(*), max(age) FROM singer")

	if !q.Select.Distinct {
		t.Error("expected DISTINCT select")
	}
	if len(q.Select.Fields) != 3 {
		t.Fatalf("expected 3 select fields, got %d", len(q.Select.Fields))
	}

	if got := q.Select.Fields[0].Val.Col.Col; got != "__singer.name__" {
		t.Errorf("field 0 column = %q", got)
	}
	if f := q.Select.Fields[1]; f.Agg != ast.AggCount || f.Val.Col.Col != schema.AllColumns {
		t.Errorf("field 1 = %+v, want count(*)", f)
	}
	if f := q.Select.Fields[2]; f.Agg != ast.AggMax || f.Val.Col.Col != "__singer.age__" {
		t.Errorf("field 2 = %+v, want max(age)", f)
	}

	if len(q.From.Tables) != 1 || q.From.Tables[0].Table != "__singer__" {
		t.Errorf("from = %+v", q.From.Tables)
	}
}

func TestParseAggregateArithmetic(t *testing.T) {
	// Under an arithmetic operator each aggregate stays on its own column
	// unit; nothing lifts to the field level.
	q := mustParse(t, "SELECT max(capacity) - min(capacity) FROM stadium")

	f := q.Select.Fields[0]
	if f.Agg != ast.AggNone {
		t.Fatalf("expected no field-level aggregate, got %s", f.Agg)
	}
	if f.Val.Op != ast.ArithSub {
		t.Fatalf("expected subtraction, got %s", f.Val.Op)
	}
	if f.Val.Col.Agg != ast.AggMax || f.Val.Col.Col != "__stadium.capacity__" {
		t.Errorf("left = %+v", f.Val.Col)
	}
	if f.Val.Col2.Agg != ast.AggMin || f.Val.Col2.Col != "__stadium.capacity__" {
		t.Errorf("right = %+v", f.Val.Col2)
	}
}

func TestParseSelectLiftsLoneAggregate(t *testing.T) {
	q := mustParse(t, "SELECT max(age) FROM singer")

	f := q.Select.Fields[0]
	if f.Agg != ast.AggMax {
		t.Fatalf("expected field-level max, got %s", f.Agg)
	}
	if f.Val.Col.Agg != ast.AggNone || f.Val.Col.Col != "__singer.age__" {
		t.Errorf("column unit = %+v", f.Val.Col)
	}
}

func TestParseWhere(t *testing.T) {
	q := mustParse(t, "SELECT name FROM singer WHERE age > 20 AND country = 'France' OR name LIKE 'A%'")

	conds := q.Where.Conds
	if len(conds) != 3 {
		t.Fatalf("expected 3 conditions, got %d", len(conds))
	}
	if !reflect.DeepEqual(q.Where.Connectors, []string{"and", "or"}) {
		t.Errorf("connectors = %v", q.Where.Connectors)
	}

	if conds[0].Op != ast.CmpGt || conds[0].Val.Col.Col != "__singer.age__" {
		t.Errorf("cond 0 = %+v", conds[0])
	}
	if conds[0].Operand1 == nil || conds[0].Operand1.Number == nil || *conds[0].Operand1.Number != 20 {
		t.Errorf("cond 0 operand = %+v", conds[0].Operand1)
	}
	if conds[1].Op != ast.CmpEq || conds[1].Operand1.Str == nil || *conds[1].Operand1.Str != "France" {
		t.Errorf("cond 1 = %+v", conds[1])
	}
	if conds[2].Op != ast.CmpLike {
		t.Errorf("cond 2 op = %s", conds[2].Op)
	}
}

func TestParseBetween(t *testing.T) {
	q := mustParse(t, "SELECT concert_name FROM concert WHERE year BETWEEN 2014 AND 2015")

	cond := q.Where.Conds[0]
	if cond.Op != ast.CmpBetween {
		t.Fatalf("op = %s, want between", cond.Op)
	}
	if cond.Operand1 == nil || *cond.Operand1.Number != 2014 {
		t.Errorf("lower bound = %+v", cond.Operand1)
	}
	if cond.Operand2 == nil || *cond.Operand2.Number != 2015 {
		t.Errorf("upper bound = %+v", cond.Operand2)
	}
	if len(q.Where.Connectors) != 0 {
		t.Errorf("BETWEEN's AND must not become a connector: %v", q.Where.Connectors)
	}
}

func TestParseJoinWithAliases(t *testing.T) {
	q := mustParse(t, `SELECT T2.name FROM concert AS T1 JOIN stadium AS T2 ON T1.stadium_id = T2.stadium_id`)

	if len(q.From.Tables) != 2 {
		t.Fatalf("expected 2 table units, got %d", len(q.From.Tables))
	}
	if q.From.Tables[0].Table != "__concert__" || q.From.Tables[1].Table != "__stadium__" {
		t.Errorf("tables = %+v, %+v", q.From.Tables[0], q.From.Tables[1])
	}

	if got := q.Select.Fields[0].Val.Col.Col; got != "__stadium.name__" {
		t.Errorf("T2.name resolved to %q", got)
	}

	cond := q.From.Conds.Conds[0]
	if cond.Val.Col.Col != "__concert.stadium_id__" {
		t.Errorf("join left = %q", cond.Val.Col.Col)
	}
	if cond.Operand1.Col == nil || cond.Operand1.Col.Col != "__stadium.stadium_id__" {
		t.Errorf("join right = %+v", cond.Operand1)
	}
}

func TestParseBareColumnResolution(t *testing.T) {
	// "name" exists in both singer and stadium; the first FROM table wins.
	q := mustParse(t, "SELECT name FROM singer_in_concert JOIN singer ON singer_in_concert.singer_id = singer.singer_id")
	if got := q.Select.Fields[0].Val.Col.Col; got != "__singer.name__" {
		t.Errorf("name resolved to %q", got)
	}
}

func TestParseGroupHaving(t *testing.T) {
	q := mustParse(t, "SELECT year, count(*) FROM concert GROUP BY year HAVING count(*) >= 2")

	if len(q.GroupBy) != 1 || q.GroupBy[0].Col != "__concert.year__" {
		t.Errorf("group by = %+v", q.GroupBy)
	}
	cond := q.Having.Conds[0]
	if cond.Val.Col.Agg != ast.AggCount || cond.Op != ast.CmpGe {
		t.Errorf("having = %+v", cond)
	}
}

func TestParseOrderLimit(t *testing.T) {
	q := mustParse(t, "SELECT name FROM stadium ORDER BY capacity DESC LIMIT 5")

	if q.OrderBy == nil || q.OrderBy.Direction != ast.Desc {
		t.Fatalf("order by = %+v", q.OrderBy)
	}
	if q.OrderBy.Vals[0].Col.Col != "__stadium.capacity__" {
		t.Errorf("order column = %q", q.OrderBy.Vals[0].Col.Col)
	}
	if q.Limit == nil || *q.Limit != 5 {
		t.Errorf("limit = %v", q.Limit)
	}
}

func TestParseSetOperations(t *testing.T) {
	q := mustParse(t, "SELECT country FROM singer WHERE age > 40 INTERSECT SELECT country FROM singer WHERE age < 30")

	if q.Intersect == nil {
		t.Fatal("expected intersect branch")
	}
	if q.Union != nil || q.Except != nil {
		t.Error("union/except must be empty")
	}
	if q.Intersect.Where.Conds[0].Op != ast.CmpLt {
		t.Errorf("nested where = %+v", q.Intersect.Where.Conds[0])
	}

	q = mustParse(t, "SELECT name FROM singer UNION ALL SELECT name FROM stadium")
	if q.Union == nil {
		t.Fatal("expected union branch")
	}
}

func TestParseSubqueryOperand(t *testing.T) {
	q := mustParse(t, "SELECT name FROM singer WHERE singer_id NOT IN (SELECT singer_id FROM singer_in_concert)")

	cond := q.Where.Conds[0]
	if !cond.Not || cond.Op != ast.CmpIn {
		t.Fatalf("cond = %+v, want NOT IN", cond)
	}
	sub := cond.Operand1.Query
	if sub == nil {
		t.Fatal("expected subquery operand")
	}
	if got := sub.Select.Fields[0].Val.Col.Col; got != "__singer_in_concert.singer_id__" {
		t.Errorf("subquery column resolved to %q", got)
	}
}

func TestParseFromSubquery(t *testing.T) {
	q := mustParse(t, "SELECT count(*) FROM (SELECT country FROM singer GROUP BY country) AS T")

	if len(q.From.Tables) != 1 {
		t.Fatalf("expected 1 table unit, got %d", len(q.From.Tables))
	}
	tu := q.From.Tables[0]
	if tu.Kind != ast.SubQuery || tu.Query == nil {
		t.Fatalf("table unit = %+v, want subquery", tu)
	}
	if len(tu.Query.GroupBy) != 1 {
		t.Errorf("inner group by = %+v", tu.Query.GroupBy)
	}
}

func TestParseIsNotNull(t *testing.T) {
	q := mustParse(t, "SELECT name FROM singer WHERE country IS NOT null")

	cond := q.Where.Conds[0]
	if cond.Op != ast.CmpIs || !cond.Not {
		t.Fatalf("cond = %+v, want IS NOT", cond)
	}
	if cond.Operand1.Str == nil || *cond.Operand1.Str != "null" {
		t.Errorf("operand = %+v", cond.Operand1)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"empty input", ""},
		{"not a select", "DELETE FROM singer"},
		{"unknown table", "SELECT name FROM band"},
		{"unknown column", "SELECT height FROM singer"},
		{"unknown alias", "SELECT T9.name FROM singer AS T1"},
		{"column of wrong table", "SELECT singer.capacity FROM singer"},
		{"missing from", "SELECT name"},
		{"dangling operator", "SELECT name FROM singer WHERE age >"},
		{"bad limit", "SELECT name FROM singer LIMIT many"},
	}
	s := testSchema(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parser.ParseString(context.Background(), tt.sql, s); err == nil {
				t.Errorf("expected error for %q", tt.sql)
			}
		})
	}
}

func TestParseCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := parser.ParseString(ctx, "SELECT name FROM singer", testSchema(t)); err == nil {
		t.Error("expected context error")
	}
}
