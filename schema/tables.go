package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// tablesEntry mirrors one entry of a benchmark tables.json fixture.
type tablesEntry struct {
	DBID        string       `json:"db_id"`
	TableNames  []string     `json:"table_names_original"`
	ColumnNames []jsonColumn `json:"column_names_original"`
	ForeignKeys [][2]int     `json:"foreign_keys"`
	PrimaryKeys []int        `json:"primary_keys"`
}

// jsonColumn decodes the [table_index, column_name] pairs used by the
// fixture format.
type jsonColumn struct {
	TableIndex int
	Name       string
}

func (c *jsonColumn) UnmarshalJSON(b []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &c.TableIndex); err != nil {
		return fmt.Errorf("column table index: %w", err)
	}
	if err := json.Unmarshal(raw[1], &c.Name); err != nil {
		return fmt.Errorf("column name: %w", err)
	}
	return nil
}

// LoadTables reads a tables.json fixture and returns the schemas it declares,
// keyed by database id.
func LoadTables(path string) (map[string]*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables fixture: %w", err)
	}

	var entries []tablesEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse tables fixture %s: %w", path, err)
	}

	schemas := make(map[string]*Schema, len(entries))
	for _, entry := range entries {
		columns := make([]Column, len(entry.ColumnNames))
		for i, col := range entry.ColumnNames {
			columns[i] = Column{TableIndex: col.TableIndex, Name: col.Name}
		}
		s, err := New(entry.DBID, entry.TableNames, columns, entry.ForeignKeys)
		if err != nil {
			return nil, err
		}
		schemas[entry.DBID] = s
	}
	return schemas, nil
}
