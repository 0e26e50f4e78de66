// Package schema models a benchmark database schema: its tables, its ordered
// column list, and its declared foreign-key pairs. Every qualified table and
// column name maps to a stable identifier used by the parser and the
// evaluator; matching is case-insensitive.
package schema

import (
	"fmt"
	"strings"
)

// AllColumns is the identifier of the synthetic "*" column.
const AllColumns = "__all__"

// Column is one entry of a database's ordered column list.
type Column struct {
	TableIndex int    // index into Tables, or -1 for the synthetic "*" column
	Name       string // original column name
}

// Schema is an immutable description of one database. It is built once per
// database and safe for concurrent readers afterwards.
type Schema struct {
	db          string
	tables      []string
	columns     []Column
	foreignKeys [][2]int

	idMap     map[string]string            // lowercased qualified name -> identifier
	tableCols map[string]map[string]string // lower table -> lower column -> identifier
}

// New builds a Schema from a database's tables, ordered column list, and
// foreign-key pairs (pairs of column indices). Malformed foreign-key pairs
// are rejected here, at build time, rather than surfacing per evaluation.
func New(db string, tables []string, columns []Column, foreignKeys [][2]int) (*Schema, error) {
	s := &Schema{
		db:          db,
		tables:      tables,
		columns:     columns,
		foreignKeys: foreignKeys,
		idMap:       make(map[string]string),
		tableCols:   make(map[string]map[string]string),
	}

	s.idMap["*"] = AllColumns
	for i, col := range columns {
		if col.TableIndex < 0 {
			continue
		}
		if col.TableIndex >= len(tables) {
			return nil, fmt.Errorf("schema %s: column %d references table %d of %d", db, i, col.TableIndex, len(tables))
		}
		table := strings.ToLower(tables[col.TableIndex])
		name := strings.ToLower(col.Name)
		id := "__" + table + "." + name + "__"
		s.idMap[table+"."+name] = id
		if s.tableCols[table] == nil {
			s.tableCols[table] = make(map[string]string)
		}
		s.tableCols[table][name] = id
	}
	for _, table := range tables {
		lower := strings.ToLower(table)
		s.idMap[lower] = "__" + lower + "__"
	}

	for _, fk := range foreignKeys {
		for _, idx := range fk {
			if idx < 0 || idx >= len(columns) {
				return nil, fmt.Errorf("schema %s: foreign key column index %d out of range", db, idx)
			}
		}
	}

	return s, nil
}

// DB returns the database identifier this schema was built for.
func (s *Schema) DB() string { return s.db }

// Tables returns the original table names.
func (s *Schema) Tables() []string { return s.tables }

// Columns returns the ordered column list.
func (s *Schema) Columns() []Column { return s.columns }

// ForeignKeys returns the declared foreign-key column-index pairs.
func (s *Schema) ForeignKeys() [][2]int { return s.foreignKeys }

// TableID returns the identifier for a table name.
func (s *Schema) TableID(name string) (string, bool) {
	lower := strings.ToLower(name)
	if _, ok := s.tableCols[lower]; !ok {
		return "", false
	}
	return "__" + lower + "__", true
}

// ColumnID returns the identifier for a qualified column reference.
func (s *Schema) ColumnID(table, col string) (string, bool) {
	id, ok := s.idMap[strings.ToLower(table)+"."+strings.ToLower(col)]
	return id, ok
}

// HasColumn reports whether the named table declares the named column.
func (s *Schema) HasColumn(table, col string) bool {
	cols, ok := s.tableCols[strings.ToLower(table)]
	if !ok {
		return false
	}
	_, ok = cols[strings.ToLower(col)]
	return ok
}

// ColumnIDByIndex returns the identifier of the i-th column of the ordered
// column list.
func (s *Schema) ColumnIDByIndex(i int) (string, error) {
	if i < 0 || i >= len(s.columns) {
		return "", fmt.Errorf("schema %s: column index %d out of range", s.db, i)
	}
	col := s.columns[i]
	if col.TableIndex < 0 {
		return AllColumns, nil
	}
	table := strings.ToLower(s.tables[col.TableIndex])
	return "__" + table + "." + strings.ToLower(col.Name) + "__", nil
}

// ColumnIDs returns the identifiers of every table-qualified column.
func (s *Schema) ColumnIDs() []string {
	ids := make([]string, 0, len(s.idMap))
	for key, id := range s.idMap {
		if strings.Contains(key, ".") {
			ids = append(ids, id)
		}
	}
	return ids
}
