package main

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pyheal/internal/diff"
	"pyheal/internal/engine"
	"pyheal/internal/report"
	"pyheal/internal/store"
)

var (
	healCycles int
	healDryRun bool
	healDiff   bool
)

var healCmd = &cobra.Command{
	Use:   "heal [files...]",
	Short: "Run repair cycles over Python files and write the results back",
	Long: `Runs up to --cycles identify-correct-evolve cycles over each file,
stopping early once a file is stable. Files are processed concurrently,
each in its own session.

With --dry-run the healed text is computed and reported but never
written back.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHeal,
}

func init() {
	healCmd.Flags().IntVar(&healCycles, "cycles", 0, "Maximum repair cycles per file (default from config)")
	healCmd.Flags().BoolVar(&healDryRun, "dry-run", false, "Report what would change without writing")
	healCmd.Flags().BoolVar(&healDiff, "diff", false, "Show a unified diff of each file's change")
}

func runHeal(cmd *cobra.Command, args []string) error {
	cycles := healCycles
	if cycles < 1 {
		cycles = cfg.Engine.DefaultCycles
	}

	history, err := openHistory()
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	var outMu sync.Mutex
	var failed bool

	var g errgroup.Group
	g.SetLimit(4)
	for _, path := range args {
		path := path
		g.Go(func() error {
			var buf bytes.Buffer
			err := healFile(&buf, path, cycles, history)

			outMu.Lock()
			defer outMu.Unlock()
			os.Stdout.Write(buf.Bytes())
			if err != nil {
				failed = true
				fmt.Fprintf(os.Stderr, "pyheal: %s: %v\n", path, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if failed {
		return fmt.Errorf("some files could not be healed")
	}
	return nil
}

// healFile runs one session over a single file, writing all human output
// to buf so concurrent files do not interleave.
func healFile(buf *bytes.Buffer, path string, cycles int, history *store.HistoryStore) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	original := string(data)

	sess := engine.NewSession(path, original, cfg.EngineOptions())
	records, err := sess.Heal(cycles)
	if err != nil {
		return err
	}
	logger.Debug("healed file",
		zap.String("file", path),
		zap.String("session", sess.ID.String()),
		zap.Int("cycles", len(records)))

	rep := report.New(buf)
	for _, rec := range records {
		rep.Cycle(rec)
	}
	if healDiff {
		rep.Diff(diff.Compute(path, original, sess.Code()))
	}
	rep.Summary(path, records)

	if history != nil {
		if err := history.SaveSession(sess.ID.String(), path, sess.StartedAt); err != nil {
			return err
		}
		for _, rec := range records {
			if err := history.SaveCycle(sess.ID.String(), rec); err != nil {
				return err
			}
		}
	}

	if healDryRun || sess.Code() == original {
		return nil
	}
	return os.WriteFile(path, []byte(sess.Code()), info.Mode().Perm())
}
