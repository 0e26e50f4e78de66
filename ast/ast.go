// Package ast defines the structured representation of an evaluated SQL query.
//
// Queries are stored with every column reference resolved to a stable schema
// identifier (see the schema package), so that two queries over the same
// database can be compared structurally.
package ast

// AggOp identifies an aggregation function applied to a column or expression.
type AggOp int

const (
	AggNone AggOp = iota
	AggMax
	AggMin
	AggCount
	AggSum
	AggAvg
)

var aggNames = [...]string{"none", "max", "min", "count", "sum", "avg"}

func (op AggOp) String() string {
	if op >= 0 && int(op) < len(aggNames) {
		return aggNames[op]
	}
	return ""
}

// ArithOp identifies a binary arithmetic operator combining two columns.
type ArithOp int

const (
	ArithNone ArithOp = iota
	ArithSub
	ArithAdd
	ArithMul
	ArithDiv
)

var arithNames = [...]string{"none", "-", "+", "*", "/"}

func (op ArithOp) String() string {
	if op >= 0 && int(op) < len(arithNames) {
		return arithNames[op]
	}
	return ""
}

// CmpOp identifies a comparison operator in a condition.
type CmpOp int

const (
	CmpNot CmpOp = iota
	CmpBetween
	CmpEq
	CmpGt
	CmpLt
	CmpGe
	CmpLe
	CmpNe
	CmpIn
	CmpLike
	CmpIs
	CmpExists
)

var cmpNames = [...]string{"not", "between", "=", ">", "<", ">=", "<=", "!=", "in", "like", "is", "exists"}

func (op CmpOp) String() string {
	if op >= 0 && int(op) < len(cmpNames) {
		return cmpNames[op]
	}
	return ""
}

// Sort directions for ORDER BY.
const (
	Asc  = "asc"
	Desc = "desc"
)

// -----------------------------------------------------------------------------
// Query structure

// ColUnit is a single column reference, optionally aggregated.
type ColUnit struct {
	Agg      AggOp  `json:"agg_id"`
	Col      string `json:"col_id"`
	Distinct bool   `json:"distinct,omitempty"`
}

// ValUnit is a column expression: either a single column or a binary
// arithmetic combination of two columns.
type ValUnit struct {
	Op   ArithOp  `json:"unit_op"`
	Col  *ColUnit `json:"col_unit1"`
	Col2 *ColUnit `json:"col_unit2,omitempty"` // set only when Op != ArithNone
}

// Operand is the right-hand side of a condition: exactly one field is set.
// A nil *Operand means the operand is absent (or was stripped during
// canonicalization).
type Operand struct {
	Number *float64     `json:"number,omitempty"`
	Str    *string      `json:"string,omitempty"`
	Col    *ColUnit     `json:"col_unit,omitempty"`
	Query  *ParsedQuery `json:"query,omitempty"`
}

// CondUnit is a single filter condition.
type CondUnit struct {
	Not      bool     `json:"not_op,omitempty"`
	Op       CmpOp    `json:"op_id"`
	Val      *ValUnit `json:"val_unit"`
	Operand1 *Operand `json:"val1,omitempty"`
	Operand2 *Operand `json:"val2,omitempty"` // second BETWEEN bound
}

// ConditionList is a boolean combination of conditions. Connectors holds the
// "and"/"or" tokens joining adjacent conditions; its length is always
// len(Conds)-1 for a non-empty list.
type ConditionList struct {
	Conds      []*CondUnit `json:"conds,omitempty"`
	Connectors []string    `json:"connectors,omitempty"`
}

// Empty reports whether the list holds no conditions.
func (c ConditionList) Empty() bool { return len(c.Conds) == 0 }

// TableKind discriminates the two kinds of FROM-clause entries.
type TableKind string

const (
	TableRef TableKind = "table_unit"
	SubQuery TableKind = "sql"
)

// TableUnit is one FROM-clause entry: a table reference or a subquery.
type TableUnit struct {
	Kind  TableKind    `json:"table_type"`
	Table string       `json:"table_id,omitempty"` // set when Kind == TableRef
	Query *ParsedQuery `json:"query,omitempty"`    // set when Kind == SubQuery
}

// SelectField is one entry of the select list.
type SelectField struct {
	Agg AggOp    `json:"agg_id"`
	Val *ValUnit `json:"val_unit"`
}

// SelectClause is the select list with its DISTINCT marker.
type SelectClause struct {
	Distinct bool          `json:"distinct,omitempty"`
	Fields   []SelectField `json:"fields"`
}

// FromClause holds the referenced tables and any join conditions.
type FromClause struct {
	Tables []*TableUnit  `json:"table_units"`
	Conds  ConditionList `json:"conds"`
}

// OrderByClause is the sort specification. A nil *OrderByClause means the
// query has no ORDER BY.
type OrderByClause struct {
	Direction string     `json:"direction"` // Asc or Desc
	Vals      []*ValUnit `json:"val_units"`
}

// ParsedQuery is the structural representation of one SELECT statement.
// The Intersect/Except/Union fields each hold the query following the
// corresponding set operator; ownership is strictly tree-shaped.
type ParsedQuery struct {
	Select    SelectClause   `json:"select"`
	From      FromClause     `json:"from"`
	Where     ConditionList  `json:"where"`
	GroupBy   []*ColUnit     `json:"group_by,omitempty"`
	OrderBy   *OrderByClause `json:"order_by,omitempty"`
	Having    ConditionList  `json:"having"`
	Limit     *int           `json:"limit,omitempty"`
	Intersect *ParsedQuery   `json:"intersect,omitempty"`
	Except    *ParsedQuery   `json:"except,omitempty"`
	Union     *ParsedQuery   `json:"union,omitempty"`
}

// Empty returns the canonical empty query used when a predicted query cannot
// be parsed. It scores as a structural mismatch against any non-trivial query.
func Empty() *ParsedQuery {
	return &ParsedQuery{}
}

// Number returns an Operand holding a numeric literal.
func Number(f float64) *Operand { return &Operand{Number: &f} }

// String returns an Operand holding a string literal.
func String(s string) *Operand { return &Operand{Str: &s} }
