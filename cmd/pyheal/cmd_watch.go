package main

import (
	"bytes"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and heal Python files as they change",
	Long: `Watches a directory for writes to .py files and runs a healing
session over each changed file. Writes made by pyheal itself are
debounced so a heal does not immediately re-trigger.

Stop with Ctrl+C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

// debounceWindow suppresses re-triggers caused by our own write-back.
const debounceWindow = 2 * time.Second

func runWatch(cmd *cobra.Command, args []string) error {
	dir := workspace
	if len(args) == 1 {
		dir = args[0]
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}
	logger.Info("watching for changes", zap.String("dir", dir))

	history, err := openHistory()
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	lastHealed := make(map[string]time.Time)
	for {
		select {
		case <-sigCh:
			logger.Info("shutting down watcher")
			return nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".py") {
				continue
			}
			path := filepath.Clean(ev.Name)
			if time.Since(lastHealed[path]) < debounceWindow {
				continue
			}

			var buf bytes.Buffer
			if err := healFile(&buf, path, cfg.Engine.DefaultCycles, history); err != nil {
				logger.Warn("heal failed", zap.String("file", path), zap.Error(err))
				continue
			}
			lastHealed[path] = time.Now()
			os.Stdout.Write(buf.Bytes())
		}
	}
}
