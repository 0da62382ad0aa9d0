package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tstit/packages/core/config"
	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

// watchPlans re-runs the testplans whenever one of them changes. Re-runs
// happen on this goroutine, one at a time, until the process is
// interrupted.
func (o *runOptions) watchPlans(ctx context.Context, c *cobra.Command, cfg *config.Config, paths []string, s *sinks, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range watchDirs(paths) {
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(c.ErrOrStderr(), "warning: failed to watch %s: %v\n", dir, err)
		}
	}

	out := c.OutOrStdout()
	fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")

	var (
		debounce <-chan time.Time
		changed  string
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && plan.IsPlanFile(event.Name) {
				changed = event.Name
				debounce = time.After(WatchDebounceDelay)
			}

		case <-debounce:
			debounce = nil
			fmt.Fprintf(out, "\nFile changed: %s\nRe-running testplans...\n\n", changed)
			if _, err := o.runPlans(ctx, c, cfg, paths, s, logger); err != nil {
				fmt.Fprintf(c.ErrOrStderr(), "Error: %v\n", err)
			}
			fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(c.ErrOrStderr(), "warning: watcher error: %v\n", err)
		}
	}
}

// watchDirs returns every directory under paths, and the parent directory
// of each file path.
func watchDirs(paths []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			add(filepath.Dir(p))
			continue
		}
		_ = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				add(path)
			}
			return nil
		})
	}
	return dirs
}
