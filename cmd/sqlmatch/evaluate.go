package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kyleconroy/sqlmatch/eval"
	"github.com/kyleconroy/sqlmatch/schema"
)

// example is one line of the benchmark: a gold query with its database id,
// paired with the prediction on the same line of the predictions file.
type example struct {
	index int
	db    string
	gold  string
	pred  string
}

func newEvaluateCmd() *cobra.Command {
	var (
		goldPath    string
		predPath    string
		tablesPath  string
		dbDir       string
		concurrency int
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a predictions file against a gold file",
		Long: "Reads a gold file (one tab-separated \"SQL<TAB>database id\" per line) and a\n" +
			"predictions file (one SQL query per line), scores each pair, and prints\n" +
			"exact-match and per-category scores bucketed by gold query hardness.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{}))

			loader, err := newLoader(tablesPath, dbDir)
			if err != nil {
				return err
			}
			examples, err := loadExamples(goldPath, predPath)
			if err != nil {
				return err
			}
			logger.Info("loaded benchmark", "examples", len(examples))

			registry := eval.NewRegistry(loader, eval.DefaultConfig())
			results := make([]*eval.Result, len(examples))

			g, ctx := errgroup.WithContext(cmd.Context())
			if concurrency <= 0 {
				concurrency = runtime.GOMAXPROCS(0)
			}
			g.SetLimit(concurrency)
			for _, ex := range examples {
				ex := ex
				g.Go(func() error {
					ev, err := registry.Evaluator(ex.db)
					if err != nil {
						return fmt.Errorf("example %d: %w", ex.index+1, err)
					}
					res, err := ev.Evaluate(ctx, ex.pred, ex.gold)
					if err != nil {
						return fmt.Errorf("example %d: %w", ex.index+1, err)
					}
					results[ex.index] = res
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			card := eval.NewScoreCard()
			for i, res := range results {
				card.Add(res)
				if !res.PredParsed {
					logger.Warn("prediction failed to parse, scored as empty query",
						"example", i+1, "db", examples[i].db)
				}
				if verbose && !res.Exact {
					logger.Info("mismatch",
						"example", i+1,
						"db", examples[i].db,
						"hardness", res.Hardness,
						"gold", examples[i].gold,
						"pred", examples[i].pred)
				}
			}

			printScoreCard(cmd.OutOrStdout(), card)
			return nil
		},
	}

	cmd.Flags().StringVar(&goldPath, "gold", "", "Gold file: one \"SQL<TAB>database id\" per line")
	cmd.Flags().StringVar(&predPath, "pred", "", "Predictions file: one SQL query per line")
	cmd.Flags().StringVar(&tablesPath, "tables", "", "Schema fixture file (tables.json)")
	cmd.Flags().StringVar(&dbDir, "db-dir", "", "Directory of SQLite databases laid out as <dir>/<db>/<db>.sqlite")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum concurrent evaluations (default GOMAXPROCS)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every mismatched example")
	_ = cmd.MarkFlagRequired("gold")
	_ = cmd.MarkFlagRequired("pred")

	return cmd
}

// newLoader picks the schema source. Exactly one of tablesPath and dbDir
// must be set.
func newLoader(tablesPath, dbDir string) (eval.Loader, error) {
	switch {
	case tablesPath != "" && dbDir != "":
		return nil, fmt.Errorf("--tables and --db-dir are mutually exclusive")
	case tablesPath != "":
		schemas, err := schema.LoadTables(tablesPath)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", tablesPath, err)
		}
		return eval.TablesLoader(schemas), nil
	case dbDir != "":
		return eval.DirLoader(dbDir), nil
	default:
		return nil, fmt.Errorf("one of --tables or --db-dir is required")
	}
}

func loadExamples(goldPath, predPath string) ([]example, error) {
	goldLines, err := readLines(goldPath)
	if err != nil {
		return nil, fmt.Errorf("read gold file: %w", err)
	}
	predLines, err := readLines(predPath)
	if err != nil {
		return nil, fmt.Errorf("read predictions file: %w", err)
	}
	if len(goldLines) != len(predLines) {
		return nil, fmt.Errorf("gold has %d examples but predictions has %d", len(goldLines), len(predLines))
	}

	examples := make([]example, 0, len(goldLines))
	for i, line := range goldLines {
		sql, db, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("gold line %d: expected \"SQL<TAB>database id\"", i+1)
		}
		examples = append(examples, example{
			index: i,
			db:    strings.TrimSpace(db),
			gold:  sql,
			pred:  predLines[i],
		})
	}
	return examples, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func printScoreCard(w io.Writer, card *eval.ScoreCard) {
	levels := append([]string{}, eval.HardnessLevels...)
	levels = append(levels, eval.LevelAll)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprint(tw, "\t")
	for _, level := range levels {
		fmt.Fprintf(tw, "%s\t", level)
	}
	fmt.Fprintln(tw)

	fmt.Fprint(tw, "count\t")
	for _, level := range levels {
		fmt.Fprintf(tw, "%d\t", card.Count(level))
	}
	fmt.Fprintln(tw)

	fmt.Fprint(tw, "exact match\t")
	for _, level := range levels {
		fmt.Fprintf(tw, "%.3f\t", card.ExactAccuracy(level))
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "partial f1")
	for _, cat := range eval.Categories {
		fmt.Fprintf(tw, "%s\t", cat)
		for _, level := range levels {
			_, _, f1 := card.Partial(level, cat)
			fmt.Fprintf(tw, "%.3f\t", f1)
		}
		fmt.Fprintln(tw)
	}
}
