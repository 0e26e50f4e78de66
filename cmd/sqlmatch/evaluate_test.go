package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadExamples(t *testing.T) {
	gold := writeFile(t, "gold.sql",
		"SELECT count(*) FROM singer\tconcert_singer\n"+
			"\n"+
			"SELECT name FROM stadium\tconcert_singer\n")
	pred := writeFile(t, "pred.sql",
		"SELECT count(*) FROM singer\n"+
			"SELECT name FROM singer\n")

	examples, err := loadExamples(gold, pred)
	require.NoError(t, err)
	require.Len(t, examples, 2)

	assert.Equal(t, "concert_singer", examples[0].db)
	assert.Equal(t, "SELECT count(*) FROM singer", examples[0].gold)
	assert.Equal(t, "SELECT count(*) FROM singer", examples[0].pred)
	assert.Equal(t, 1, examples[1].index)
	assert.Equal(t, "SELECT name FROM singer", examples[1].pred)
}

func TestLoadExamplesLengthMismatch(t *testing.T) {
	gold := writeFile(t, "gold.sql", "SELECT 1 FROM t\tdb\n")
	pred := writeFile(t, "pred.sql", "SELECT 1 FROM t\nSELECT 2 FROM t\n")

	_, err := loadExamples(gold, pred)
	assert.Error(t, err)
}

func TestLoadExamplesMissingDatabaseColumn(t *testing.T) {
	gold := writeFile(t, "gold.sql", "SELECT 1 FROM t\n")
	pred := writeFile(t, "pred.sql", "SELECT 1 FROM t\n")

	_, err := loadExamples(gold, pred)
	assert.Error(t, err)
}

func TestNewLoader(t *testing.T) {
	_, err := newLoader("", "")
	assert.Error(t, err, "a schema source is required")

	_, err = newLoader("tables.json", "databases/")
	assert.Error(t, err, "schema sources are mutually exclusive")

	loader, err := newLoader("", t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, loader)
}
