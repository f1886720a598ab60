package cli

import (
	"context"
	"errors"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	photoimage "photocarve/internal/image"
	"photocarve/internal/pipeline"
)

func newWatchCmd(root *Root) *cobra.Command {
	var (
		out      string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-align a directory of images whenever it changes",
		Long: `watch loads every supported image in <dir> in file-name order (the first
one is the baseline), aligns them, and runs again whenever a file is added,
rewritten or removed. Results of a pass that was overtaken by a newer change
are discarded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := root.renderer(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return root.watch(ctx, args[0], out, debounce)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "rewrite the aligned overlay to this PNG after every pass")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before a pass starts")
	addRenderFlags(cmd, root)
	return cmd
}

// relevantEvent reports whether a filesystem event can change the image set.
func relevantEvent(event fsnotify.Event) bool {
	if !photoimage.IsSupportedFormat(event.Name) {
		return false
	}
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create,
		event.Op&fsnotify.Write == fsnotify.Write,
		event.Op&fsnotify.Remove == fsnotify.Remove,
		event.Op&fsnotify.Rename == fsnotify.Rename:
		return true
	}
	return false
}

func (r *Root) watch(ctx context.Context, dir, out string, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}
	r.log.Info("watching directory", "dir", dir)

	store := photoimage.NewStore()
	p := r.newPipeline(store)
	worker := pipeline.NewWorker(p, r.log)
	worker.Start(ctx)

	submit := func() {
		layers, err := photoimage.LoadDir(dir)
		if err != nil {
			// usually a file that is still being written; the next event retries
			r.log.Warn("reload failed", "dir", dir, "err", err)
			return
		}
		store.Replace(layers)
		if len(layers) < 2 {
			r.log.Info("waiting for images", "dir", dir, "count", len(layers))
			return
		}
		gen := worker.Submit(r.cfg)
		r.log.Debug("pass submitted", "generation", gen, "images", len(layers))
	}
	submit()

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event) {
				continue
			}
			r.log.Debug("change detected", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("watch error", "err", err)

		case <-timer.C:
			submit()

		case res := <-worker.Results():
			report, err := worker.Apply(res)
			if errors.Is(err, pipeline.ErrSuperseded) {
				continue
			}
			if err != nil {
				r.log.Error("pass failed", "generation", res.Generation, "err", err)
				continue
			}
			r.printAlignment(p, report)
			if out != "" {
				if err := r.writeOverlay(p, out); err != nil {
					r.log.Error("write overlay", "path", out, "err", err)
				}
			}
		}
	}
}
