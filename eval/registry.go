package eval

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/kyleconroy/sqlmatch/schema"
)

// Loader produces the Schema for a database id. It is called once per
// database; the result is cached by the Registry.
type Loader func(db string) (*schema.Schema, error)

// TablesLoader serves schemas from a preloaded tables.json fixture map.
// An unknown database id is a hard failure: it signals a missing or
// misconfigured benchmark fixture.
func TablesLoader(schemas map[string]*schema.Schema) Loader {
	return func(db string) (*schema.Schema, error) {
		s, ok := schemas[db]
		if !ok {
			return nil, fmt.Errorf("no schema fixture for database %q", db)
		}
		return s, nil
	}
}

// DirLoader introspects SQLite database files laid out as
// <dir>/<db>/<db>.sqlite.
func DirLoader(dir string) Loader {
	return func(db string) (*schema.Schema, error) {
		return schema.OpenSQLite(filepath.Join(dir, db, db+".sqlite"), db)
	}
}

// Registry caches one Evaluator per database id. Schemas and foreign-key
// maps are expensive to rebuild, so they are constructed once and shared
// immutably across concurrent evaluations.
type Registry struct {
	loader Loader
	cfg    Config

	mu         sync.RWMutex
	evaluators map[string]*Evaluator
}

// NewRegistry creates a Registry backed by the given schema loader.
func NewRegistry(loader Loader, cfg Config) *Registry {
	return &Registry{
		loader:     loader,
		cfg:        cfg,
		evaluators: make(map[string]*Evaluator),
	}
}

// Evaluator returns the cached Evaluator for a database, building it on
// first use.
func (r *Registry) Evaluator(db string) (*Evaluator, error) {
	r.mu.RLock()
	e, ok := r.evaluators[db]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.evaluators[db]; ok {
		return e, nil
	}

	s, err := r.loader(db)
	if err != nil {
		return nil, err
	}
	e, err = New(s, r.cfg)
	if err != nil {
		return nil, err
	}
	r.evaluators[db] = e
	return e, nil
}
