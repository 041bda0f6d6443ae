package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// defaultWatchDelay batches the burst of events editors emit on save.
const defaultWatchDelay = 200 * time.Millisecond

// watchCommand creates the watch command: render once, then re-render each
// time the document changes on disk, until interrupted.
func (c *CLI) watchCommand() *cobra.Command {
	var formatsStr, stepsStr string
	var opts renderOpts
	var delay time.Duration

	cmd := &cobra.Command{
		Use:               "watch [file]",
		Short:             "Re-render a document whenever it changes",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDocument,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.applyRenderFlags(cmd, formatsStr, stepsStr, &opts); err != nil {
				return err
			}
			if opts.output == stdoutPath {
				return fmt.Errorf("watch cannot write to stdout")
			}
			ctx := cmd.Context()
			input := args[0]

			var mu sync.Mutex
			rerender := func() {
				mu.Lock()
				defer mu.Unlock()
				if ctx.Err() != nil {
					return
				}
				if err := c.runRender(ctx, cmd.OutOrStdout(), input, opts); err != nil {
					printWarning("%v", err)
				}
			}

			w, err := newFileWatcher(input, loggerFromContext(ctx))
			if err != nil {
				return err
			}
			defer w.Close()

			rerender()
			printInfo("Watching %s (ctrl+c to stop)", input)
			return w.run(ctx, delay, rerender)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single artifact) or base path")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, dot, json (comma-separated)")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	cmd.Flags().StringVar(&stepsStr, "steps", "", "steps to render, e.g. 0,2,5 or 1-4 (default all)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label nodes with their identifiers and edges with their slots")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the artifact cache")
	cmd.Flags().DurationVar(&delay, "delay", defaultWatchDelay, "quiet period before re-rendering")

	return cmd
}

// fileWatcher reports changes to a single file. It watches the parent
// directory so editors that save by rename are still seen.
type fileWatcher struct {
	watcher *fsnotify.Watcher
	target  string
	logger  *log.Logger
}

func newFileWatcher(path string, logger *log.Logger) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &fileWatcher{watcher: watcher, target: abs, logger: logger}, nil
}

// run calls fn once per burst of changes to the target, after delay of
// quiet. It returns when ctx is done.
func (w *fileWatcher) run(ctx context.Context, delay time.Duration, fn func()) error {
	debounced := debounce.New(delay)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("document changed", "path", event.Name, "op", event.Op.String())
			debounced(fn)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *fileWatcher) relevant(event fsnotify.Event) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != w.target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Close stops the underlying watcher.
func (w *fileWatcher) Close() error {
	return w.watcher.Close()
}
