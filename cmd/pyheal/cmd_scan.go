package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pyheal/internal/report"
	"pyheal/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Report defects without changing anything",
	Long: `Scans each file and lists every detected defect with its line,
severity, and message. Exits non-zero when any defect is found, so the
command can gate CI.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	scanner := scan.NewScanner(cfg.ScanOptions())
	rep := report.New(os.Stdout)

	total := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		defects, err := scanner.Scan(string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		rep.Defects(path, defects)
		total += len(defects)
	}

	if total > 0 {
		return fmt.Errorf("%d defects found", total)
	}
	return nil
}
