package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show past healing sessions",
	Long: `Without arguments, lists recent healing sessions. With a session
ID, shows that session's per-cycle breakdown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum sessions to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	history, err := openHistory()
	if err != nil {
		return err
	}
	if history == nil {
		return fmt.Errorf("history is disabled in config")
	}
	defer history.Close()

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	defer w.Flush()

	if len(args) == 1 {
		cycles, err := history.Cycles(args[0])
		if err != nil {
			return err
		}
		if len(cycles) == 0 {
			return fmt.Errorf("no cycles recorded for session %s", args[0])
		}
		fmt.Fprintln(w, "CYCLE\tDEFECTS\tWEIGHT\tAPPLIED\tDEFERRED\tDURATION\tSTABLE")
		for _, c := range cycles {
			fmt.Fprintf(w, "%d\t%d -> %d\t%.2f -> %.2f\t%d\t%d\t%s\t%v\n",
				c.Index, c.DefectsBefore, c.DefectsAfter,
				c.WeightBefore, c.WeightAfter,
				c.FixesApplied, c.FixesDeferred,
				c.Duration, c.Stable)
		}
		return nil
	}

	sessions, err := history.RecentSessions(historyLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stdout, "no healing sessions recorded")
		return nil
	}
	fmt.Fprintln(w, "SESSION\tFILE\tSTARTED\tCYCLES\tFIXES\tREMAINING\tSTABLE")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%v\n",
			s.ID, s.Filename, s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.Cycles, s.FixesApplied, s.FinalDefects, s.Stable)
	}
	return nil
}
