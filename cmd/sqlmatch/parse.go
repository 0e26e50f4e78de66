package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kyleconroy/sqlmatch/eval"
	"github.com/kyleconroy/sqlmatch/internal/normalize"
	"github.com/kyleconroy/sqlmatch/parser"
)

func newParseCmd() *cobra.Command {
	var (
		tablesPath string
		dbDir      string
		db         string
		canonical  bool
	)

	cmd := &cobra.Command{
		Use:   "parse [sql]",
		Short: "Parse one SQL query and dump its structure as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := newLoader(tablesPath, dbDir)
			if err != nil {
				return err
			}
			s, err := loader(db)
			if err != nil {
				return err
			}

			q, err := parser.ParseString(cmd.Context(), normalize.Clean(args[0]), s)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			if canonical {
				ev, err := eval.New(s, eval.DefaultConfig())
				if err != nil {
					return err
				}
				ev.Canonicalize(q)
			}

			out, err := json.MarshalIndent(q, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&tablesPath, "tables", "", "Schema fixture file (tables.json)")
	cmd.Flags().StringVar(&dbDir, "db-dir", "", "Directory of SQLite databases laid out as <dir>/<db>/<db>.sqlite")
	cmd.Flags().StringVar(&db, "db", "", "Database id to resolve column names against")
	cmd.Flags().BoolVar(&canonical, "canonical", false, "Strip values and rewrite columns to canonical form before printing")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}
