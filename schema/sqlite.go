package schema

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite introspects a SQLite database file and builds its Schema. The
// database id is recorded as given; the column list starts with the synthetic
// "*" column, followed by each table's columns in declaration order.
func OpenSQLite(path, dbID string) (*Schema, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	return IntrospectSQLite(db, dbID)
}

// IntrospectSQLite builds a Schema from an open SQLite connection using
// PRAGMA table_info and PRAGMA foreign_key_list.
func IntrospectSQLite(db *sql.DB, dbID string) (*Schema, error) {
	tables, err := listTables(db)
	if err != nil {
		return nil, err
	}

	columns := []Column{{TableIndex: -1, Name: "*"}}
	colIndex := make(map[string]int) // lower "table.col" -> column index
	primaryKey := make(map[string]string)

	for ti, table := range tables {
		rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
		if err != nil {
			return nil, fmt.Errorf("table_info %s: %w", table, err)
		}
		for rows.Next() {
			var (
				cid, notNull, pk int
				name, typ        string
				dflt             sql.NullString
			)
			if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
				rows.Close()
				return nil, fmt.Errorf("table_info %s: %w", table, err)
			}
			colIndex[strings.ToLower(table)+"."+strings.ToLower(name)] = len(columns)
			columns = append(columns, Column{TableIndex: ti, Name: name})
			if pk == 1 {
				primaryKey[strings.ToLower(table)] = name
			}
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}

	var foreignKeys [][2]int
	for _, table := range tables {
		rows, err := db.Query(fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
		if err != nil {
			return nil, fmt.Errorf("foreign_key_list %s: %w", table, err)
		}
		for rows.Next() {
			var (
				id, seq            int
				refTable, from     string
				to                 sql.NullString
				onUpdate, onDelete string
				match              string
			)
			if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
				rows.Close()
				return nil, fmt.Errorf("foreign_key_list %s: %w", table, err)
			}
			// A NULL "to" column means the FK targets the referenced
			// table's primary key.
			target := to.String
			if !to.Valid {
				target = primaryKey[strings.ToLower(refTable)]
			}
			fromIdx, okFrom := colIndex[strings.ToLower(table)+"."+strings.ToLower(from)]
			toIdx, okTo := colIndex[strings.ToLower(refTable)+"."+strings.ToLower(target)]
			if okFrom && okTo {
				foreignKeys = append(foreignKeys, [2]int{fromIdx, toIdx})
			}
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}

	return New(dbID, tables, columns, foreignKeys)
}

func listTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
