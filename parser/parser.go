// Package parser implements a schema-aware parser for the evaluated SQL
// subset: SELECT statements with joins, filters, grouping, ordering, limits,
// and INTERSECT/UNION/EXCEPT combinations.
//
// Column references are resolved against the database schema as part of
// parsing, so the returned ast.ParsedQuery carries stable identifiers rather
// than raw names. Parsing fails on anything outside the subset.
package parser

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kyleconroy/sqlmatch/ast"
	"github.com/kyleconroy/sqlmatch/lexer"
	"github.com/kyleconroy/sqlmatch/schema"
	"github.com/kyleconroy/sqlmatch/token"
)

// Parser parses one SELECT statement against a database schema.
type Parser struct {
	lexer   *lexer.Lexer
	current lexer.Item
	peek    lexer.Item
	schema  *schema.Schema
}

// New creates a new Parser reading SQL from r and resolving identifiers
// against s.
func New(r io.Reader, s *schema.Schema) *Parser {
	p := &Parser{
		lexer:  lexer.New(r),
		schema: s,
	}
	// Read two tokens to initialize current and peek
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a single SELECT statement from the input.
func Parse(ctx context.Context, r io.Reader, s *schema.Schema) (*ast.ParsedQuery, error) {
	return New(r, s).ParseQuery(ctx)
}

// ParseString parses a single SELECT statement from a string.
func ParseString(ctx context.Context, sql string, s *schema.Schema) (*ast.ParsedQuery, error) {
	return Parse(ctx, strings.NewReader(sql), s)
}

func (p *Parser) nextToken() {
	p.current = p.peek
	for {
		p.peek = p.lexer.NextToken()
		if p.peek.Token != token.COMMENT {
			break
		}
	}
}

func (p *Parser) currentIs(t token.Token) bool {
	return p.current.Token == t
}

func (p *Parser) peekIs(t token.Token) bool {
	return p.peek.Token == t
}

func (p *Parser) expect(t token.Token) error {
	if p.currentIs(t) {
		p.nextToken()
		return nil
	}
	return fmt.Errorf("expected %s, got %s (%q) at line %d, column %d",
		t, p.current.Token, p.current.Value, p.current.Pos.Line, p.current.Pos.Column)
}

func (p *Parser) errHere(format string, args ...interface{}) error {
	suffix := fmt.Sprintf(" at line %d, column %d", p.current.Pos.Line, p.current.Pos.Column)
	return fmt.Errorf(format+suffix, args...)
}

// scope holds the name-resolution context of one SELECT statement: the
// tables of its FROM clause and the aliases they were given.
type scope struct {
	aliases       map[string]string // lowercased alias -> table name ("" for subquery aliases)
	defaultTables []string
}

func newScope() *scope {
	return &scope{aliases: make(map[string]string)}
}

// ParseQuery parses a full query, including any trailing set operation.
func (p *Parser) ParseQuery(ctx context.Context) (*ast.ParsedQuery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	q := &ast.ParsedQuery{}
	sc := newScope()

	sel, err := p.parseSelectClause(ctx)
	if err != nil {
		return nil, err
	}
	q.Select = sel

	from, err := p.parseFromClause(ctx, sc)
	if err != nil {
		return nil, err
	}
	q.From = from

	if p.currentIs(token.WHERE) {
		p.nextToken()
		conds, err := p.parseConditionList(ctx)
		if err != nil {
			return nil, err
		}
		q.Where = conds
	}

	if p.currentIs(token.GROUP) {
		p.nextToken()
		if err := p.expect(token.BY); err != nil {
			return nil, err
		}
		cols, err := p.parseGroupBy()
		if err != nil {
			return nil, err
		}
		q.GroupBy = cols
	}

	if p.currentIs(token.HAVING) {
		p.nextToken()
		conds, err := p.parseConditionList(ctx)
		if err != nil {
			return nil, err
		}
		q.Having = conds
	}

	if p.currentIs(token.ORDER) {
		p.nextToken()
		if err := p.expect(token.BY); err != nil {
			return nil, err
		}
		orderBy, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		q.OrderBy = orderBy
	}

	if p.currentIs(token.LIMIT) {
		p.nextToken()
		if !p.currentIs(token.NUMBER) {
			return nil, p.errHere("expected LIMIT count, got %q", p.current.Value)
		}
		n, err := strconv.Atoi(p.current.Value)
		if err != nil {
			return nil, p.errHere("invalid LIMIT count %q", p.current.Value)
		}
		q.Limit = &n
		p.nextToken()
	}

	// Column references can only be resolved once the FROM clause is known.
	if err := p.resolveQuery(q, sc); err != nil {
		return nil, err
	}

	switch p.current.Token {
	case token.INTERSECT, token.UNION, token.EXCEPT:
		op := p.current.Token
		p.nextToken()
		// Tolerate UNION ALL; the distinction does not affect structure.
		if p.currentIs(token.IDENT) && strings.EqualFold(p.current.Value, "all") {
			p.nextToken()
		}
		nested, err := p.ParseQuery(ctx)
		if err != nil {
			return nil, err
		}
		switch op {
		case token.INTERSECT:
			q.Intersect = nested
		case token.UNION:
			q.Union = nested
		case token.EXCEPT:
			q.Except = nested
		}
	}

	return q, nil
}

func (p *Parser) parseSelectClause(ctx context.Context) (ast.SelectClause, error) {
	var sel ast.SelectClause

	if err := p.expect(token.SELECT); err != nil {
		return sel, err
	}
	if p.currentIs(token.DISTINCT) {
		sel.Distinct = true
		p.nextToken()
	}

	for {
		vu, err := p.parseValUnit()
		if err != nil {
			return sel, err
		}
		// A lone aggregate lifts to the field level; inside arithmetic it
		// stays on its column unit.
		agg := ast.AggNone
		if vu.Op == ast.ArithNone && vu.Col.Agg != ast.AggNone {
			agg = vu.Col.Agg
			vu.Col.Agg = ast.AggNone
		}
		// Output aliases carry no structural meaning; skip them.
		if p.currentIs(token.AS) {
			p.nextToken()
			if !p.currentIs(token.IDENT) {
				return sel, p.errHere("expected alias after AS, got %q", p.current.Value)
			}
			p.nextToken()
		}
		sel.Fields = append(sel.Fields, ast.SelectField{Agg: agg, Val: vu})

		if p.currentIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if len(sel.Fields) == 0 {
		return sel, p.errHere("empty select list")
	}
	return sel, nil
}

func (p *Parser) parseFromClause(ctx context.Context, sc *scope) (ast.FromClause, error) {
	var from ast.FromClause

	if err := p.expect(token.FROM); err != nil {
		return from, err
	}

	for {
		tu, err := p.parseTableUnit(ctx, sc)
		if err != nil {
			return from, err
		}
		from.Tables = append(from.Tables, tu)

		if p.currentIs(token.ON) {
			p.nextToken()
			conds, err := p.parseConditionList(ctx)
			if err != nil {
				return from, err
			}
			// Conditions from successive ON clauses combine with "and".
			if len(from.Conds.Conds) > 0 {
				from.Conds.Connectors = append(from.Conds.Connectors, "and")
			}
			from.Conds.Conds = append(from.Conds.Conds, conds.Conds...)
			from.Conds.Connectors = append(from.Conds.Connectors, conds.Connectors...)
		}

		if p.currentIs(token.JOIN) || p.currentIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	return from, nil
}

func (p *Parser) parseTableUnit(ctx context.Context, sc *scope) (*ast.TableUnit, error) {
	if p.currentIs(token.LPAREN) && p.peekIs(token.SELECT) {
		p.nextToken()
		sub, err := p.ParseQuery(ctx)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		if alias, ok := p.parseAlias(); ok {
			sc.aliases[alias] = ""
		}
		return &ast.TableUnit{Kind: ast.SubQuery, Query: sub}, nil
	}

	if !p.currentIs(token.IDENT) {
		return nil, p.errHere("expected table name, got %q", p.current.Value)
	}
	name := p.current.Value
	p.nextToken()

	id, ok := p.schema.TableID(name)
	if !ok {
		return nil, p.errHere("unknown table %q", name)
	}
	sc.defaultTables = append(sc.defaultTables, name)
	sc.aliases[strings.ToLower(name)] = name
	if alias, ok := p.parseAlias(); ok {
		sc.aliases[alias] = name
	}

	return &ast.TableUnit{Kind: ast.TableRef, Table: id}, nil
}

// parseAlias consumes an optional `AS ident` or bare `ident` alias and
// returns it lowercased.
func (p *Parser) parseAlias() (string, bool) {
	if p.currentIs(token.AS) {
		p.nextToken()
		alias := strings.ToLower(p.current.Value)
		p.nextToken()
		return alias, true
	}
	if p.currentIs(token.IDENT) {
		alias := strings.ToLower(p.current.Value)
		p.nextToken()
		return alias, true
	}
	return "", false
}

func (p *Parser) parseConditionList(ctx context.Context) (ast.ConditionList, error) {
	var list ast.ConditionList

	for {
		cond, err := p.parseCondUnit(ctx)
		if err != nil {
			return list, err
		}
		list.Conds = append(list.Conds, cond)

		if p.currentIs(token.AND) || p.currentIs(token.OR) {
			list.Connectors = append(list.Connectors, strings.ToLower(p.current.Value))
			p.nextToken()
			continue
		}
		break
	}

	return list, nil
}

func (p *Parser) parseCondUnit(ctx context.Context) (*ast.CondUnit, error) {
	vu, err := p.parseValUnit()
	if err != nil {
		return nil, err
	}

	cond := &ast.CondUnit{Val: vu}
	if p.currentIs(token.NOT) {
		cond.Not = true
		p.nextToken()
	}

	op, ok := cmpFromToken(p.current.Token)
	if !ok {
		return nil, p.errHere("expected comparison operator, got %q", p.current.Value)
	}
	cond.Op = op
	p.nextToken()

	// IS NOT NULL puts the negation after the operator.
	if op == ast.CmpIs && p.currentIs(token.NOT) {
		cond.Not = true
		p.nextToken()
	}

	if op == ast.CmpBetween {
		cond.Operand1, err = p.parseOperand(ctx)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.AND); err != nil {
			return nil, err
		}
		cond.Operand2, err = p.parseOperand(ctx)
		if err != nil {
			return nil, err
		}
		return cond, nil
	}

	cond.Operand1, err = p.parseOperand(ctx)
	if err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *Parser) parseOperand(ctx context.Context) (*ast.Operand, error) {
	switch {
	case p.currentIs(token.SELECT):
		sub, err := p.ParseQuery(ctx)
		if err != nil {
			return nil, err
		}
		return &ast.Operand{Query: sub}, nil

	case p.currentIs(token.LPAREN) && p.peekIs(token.SELECT):
		p.nextToken()
		sub, err := p.ParseQuery(ctx)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.Operand{Query: sub}, nil

	case p.currentIs(token.LPAREN):
		// Parenthesized value, possibly a literal list after IN. Only the
		// first entry is kept; literals are stripped before scoring anyway.
		p.nextToken()
		op, err := p.parseOperand(ctx)
		if err != nil {
			return nil, err
		}
		for p.currentIs(token.COMMA) {
			p.nextToken()
			if _, err := p.parseOperand(ctx); err != nil {
				return nil, err
			}
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return op, nil

	case p.currentIs(token.STRING):
		op := ast.String(p.current.Value)
		p.nextToken()
		return op, nil

	case p.currentIs(token.NUMBER):
		f, err := strconv.ParseFloat(p.current.Value, 64)
		if err != nil {
			return nil, p.errHere("invalid number %q", p.current.Value)
		}
		p.nextToken()
		return ast.Number(f), nil

	case p.currentIs(token.MINUS) && p.peekIs(token.NUMBER):
		p.nextToken()
		f, err := strconv.ParseFloat(p.current.Value, 64)
		if err != nil {
			return nil, p.errHere("invalid number %q", p.current.Value)
		}
		p.nextToken()
		return ast.Number(-f), nil

	case p.currentIs(token.IDENT) && strings.EqualFold(p.current.Value, "null"):
		op := ast.String("null")
		p.nextToken()
		return op, nil

	default:
		cu, err := p.parseColUnit()
		if err != nil {
			return nil, err
		}
		return &ast.Operand{Col: cu}, nil
	}
}

func (p *Parser) parseValUnit() (*ast.ValUnit, error) {
	isBlock := false
	if p.currentIs(token.LPAREN) {
		isBlock = true
		p.nextToken()
	}

	col, err := p.parseColUnit()
	if err != nil {
		return nil, err
	}
	vu := &ast.ValUnit{Op: ast.ArithNone, Col: col}

	if op, ok := arithFromToken(p.current.Token); ok {
		vu.Op = op
		p.nextToken()
		vu.Col2, err = p.parseColUnit()
		if err != nil {
			return nil, err
		}
	}

	if isBlock {
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
	}
	return vu, nil
}

func (p *Parser) parseColUnit() (*ast.ColUnit, error) {
	isBlock := false
	if p.currentIs(token.LPAREN) {
		isBlock = true
		p.nextToken()
	}

	cu := &ast.ColUnit{}
	if p.current.Token.IsAggregate() {
		cu.Agg = aggFromToken(p.current.Token)
		p.nextToken()
		if err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		if p.currentIs(token.DISTINCT) {
			cu.Distinct = true
			p.nextToken()
		}
		col, err := p.parseColRef()
		if err != nil {
			return nil, err
		}
		cu.Col = col
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
	} else {
		if p.currentIs(token.DISTINCT) {
			cu.Distinct = true
			p.nextToken()
		}
		col, err := p.parseColRef()
		if err != nil {
			return nil, err
		}
		cu.Col = col
	}

	if isBlock {
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
	}
	return cu, nil
}

// parseColRef reads a raw column reference: "*", "name", or "alias.name".
// Resolution to schema identifiers happens after the FROM clause is parsed.
func (p *Parser) parseColRef() (string, error) {
	if p.currentIs(token.ASTERISK) {
		p.nextToken()
		return "*", nil
	}
	if !p.currentIs(token.IDENT) {
		return "", p.errHere("expected column reference, got %q", p.current.Value)
	}
	name := p.current.Value
	p.nextToken()

	if p.currentIs(token.DOT) {
		p.nextToken()
		if p.currentIs(token.ASTERISK) {
			p.nextToken()
			return "*", nil
		}
		if !p.currentIs(token.IDENT) {
			return "", p.errHere("expected column name after %q., got %q", name, p.current.Value)
		}
		name = name + "." + p.current.Value
		p.nextToken()
	}
	return name, nil
}

func (p *Parser) parseGroupBy() ([]*ast.ColUnit, error) {
	var cols []*ast.ColUnit
	for {
		cu, err := p.parseColUnit()
		if err != nil {
			return nil, err
		}
		cols = append(cols, cu)

		if p.currentIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	return cols, nil
}

func (p *Parser) parseOrderBy() (*ast.OrderByClause, error) {
	orderBy := &ast.OrderByClause{Direction: ast.Asc}
	for {
		vu, err := p.parseValUnit()
		if err != nil {
			return nil, err
		}
		orderBy.Vals = append(orderBy.Vals, vu)

		if p.currentIs(token.ASC) {
			orderBy.Direction = ast.Asc
			p.nextToken()
		} else if p.currentIs(token.DESC) {
			orderBy.Direction = ast.Desc
			p.nextToken()
		}

		if p.currentIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	return orderBy, nil
}

// -----------------------------------------------------------------------------
// Name resolution

// resolveQuery rewrites every raw column reference in the query's own clauses
// to its schema identifier. Nested subqueries were resolved when parsed and
// are not revisited.
func (p *Parser) resolveQuery(q *ast.ParsedQuery, sc *scope) error {
	for _, field := range q.Select.Fields {
		if err := p.resolveValUnit(field.Val, sc); err != nil {
			return err
		}
	}
	if err := p.resolveConds(q.From.Conds, sc); err != nil {
		return err
	}
	if err := p.resolveConds(q.Where, sc); err != nil {
		return err
	}
	for _, cu := range q.GroupBy {
		if err := p.resolveColUnit(cu, sc); err != nil {
			return err
		}
	}
	if q.OrderBy != nil {
		for _, vu := range q.OrderBy.Vals {
			if err := p.resolveValUnit(vu, sc); err != nil {
				return err
			}
		}
	}
	return p.resolveConds(q.Having, sc)
}

func (p *Parser) resolveConds(list ast.ConditionList, sc *scope) error {
	for _, cond := range list.Conds {
		if err := p.resolveValUnit(cond.Val, sc); err != nil {
			return err
		}
		for _, op := range []*ast.Operand{cond.Operand1, cond.Operand2} {
			if op != nil && op.Col != nil {
				if err := p.resolveColUnit(op.Col, sc); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *Parser) resolveValUnit(vu *ast.ValUnit, sc *scope) error {
	if err := p.resolveColUnit(vu.Col, sc); err != nil {
		return err
	}
	if vu.Col2 != nil {
		return p.resolveColUnit(vu.Col2, sc)
	}
	return nil
}

func (p *Parser) resolveColUnit(cu *ast.ColUnit, sc *scope) error {
	id, err := p.resolveName(cu.Col, sc)
	if err != nil {
		return err
	}
	cu.Col = id
	return nil
}

func (p *Parser) resolveName(raw string, sc *scope) (string, error) {
	if raw == "*" {
		return schema.AllColumns, nil
	}

	if idx := strings.Index(raw, "."); idx >= 0 {
		alias, col := raw[:idx], raw[idx+1:]
		table, ok := sc.aliases[strings.ToLower(alias)]
		if !ok {
			return "", fmt.Errorf("unknown table or alias %q in reference %q", alias, raw)
		}
		if table == "" {
			return "", fmt.Errorf("cannot resolve %q against a subquery alias", raw)
		}
		id, ok := p.schema.ColumnID(table, col)
		if !ok {
			return "", fmt.Errorf("table %q has no column %q", table, col)
		}
		return id, nil
	}

	for _, table := range sc.defaultTables {
		if p.schema.HasColumn(table, raw) {
			id, _ := p.schema.ColumnID(table, raw)
			return id, nil
		}
	}
	return "", fmt.Errorf("column %q not found in any FROM table", raw)
}

// -----------------------------------------------------------------------------
// Token mappings

func aggFromToken(t token.Token) ast.AggOp {
	switch t {
	case token.MAX:
		return ast.AggMax
	case token.MIN:
		return ast.AggMin
	case token.COUNT:
		return ast.AggCount
	case token.SUM:
		return ast.AggSum
	case token.AVG:
		return ast.AggAvg
	}
	return ast.AggNone
}

func arithFromToken(t token.Token) (ast.ArithOp, bool) {
	switch t {
	case token.MINUS:
		return ast.ArithSub, true
	case token.PLUS:
		return ast.ArithAdd, true
	case token.ASTERISK:
		return ast.ArithMul, true
	case token.SLASH:
		return ast.ArithDiv, true
	}
	return ast.ArithNone, false
}

func cmpFromToken(t token.Token) (ast.CmpOp, bool) {
	switch t {
	case token.BETWEEN:
		return ast.CmpBetween, true
	case token.EQ:
		return ast.CmpEq, true
	case token.GT:
		return ast.CmpGt, true
	case token.LT:
		return ast.CmpLt, true
	case token.GTE:
		return ast.CmpGe, true
	case token.LTE:
		return ast.CmpLe, true
	case token.NEQ:
		return ast.CmpNe, true
	case token.IN:
		return ast.CmpIn, true
	case token.LIKE:
		return ast.CmpLike, true
	case token.IS:
		return ast.CmpIs, true
	case token.EXISTS:
		return ast.CmpExists, true
	}
	return ast.CmpNot, false
}
