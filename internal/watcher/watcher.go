// Package watcher hot-reloads or restarts the bar when its config and
// style files change, holding changes back while a theme switch runs.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/waybarctl/internal/supervisor"
)

// Controller is the part of the supervisor the watcher drives.
type Controller interface {
	Running() bool
	Start() error
	Stop(ctx context.Context)
	Send(cmd supervisor.Command) error
}

// Options configures a Watcher.
type Options struct {
	Dirs       []string
	Interval   time.Duration
	Lock       *ThemeLock
	HiddenFile string
	Controller Controller

	// Source overrides event discovery; by default fsnotify with a polling
	// fallback.
	Source Source
	Logger hclog.Logger
}

// Watcher runs the watch loop.
type Watcher struct {
	dirs       []string
	interval   time.Duration
	lock       *ThemeLock
	hiddenFile string
	ctrl       Controller
	source     Source
	logger     hclog.Logger

	batcher Batcher
}

// New creates a Watcher.
func New(opts Options) *Watcher {
	w := &Watcher{
		dirs:       opts.Dirs,
		interval:   opts.Interval,
		lock:       opts.Lock,
		hiddenFile: opts.HiddenFile,
		ctrl:       opts.Controller,
		source:     opts.Source,
		logger:     opts.Logger,
	}
	if w.interval <= 0 {
		w.interval = 200 * time.Millisecond
	}
	if w.logger == nil {
		w.logger = hclog.NewNullLogger()
	}
	return w
}

func (w *Watcher) openSource() Source {
	if w.source != nil {
		return w.source
	}
	src, err := NewFSNotifySource(w.dirs, w.logger)
	if err != nil {
		w.logger.Warn("inotify unavailable, using polling", "error", err)
		return NewPollSource(w.dirs)
	}
	w.logger.Debug("using inotify for file watching", "dirs", w.dirs)
	return src
}

func (w *Watcher) lockActive() bool {
	return w.lock != nil && w.lock.Active()
}

func (w *Watcher) hidden() bool {
	if w.hiddenFile == "" {
		return false
	}
	_, err := os.Stat(w.hiddenFile)
	return err == nil
}

// Run watches until ctx is cancelled, then stops the bar.
func (w *Watcher) Run(ctx context.Context) error {
	src := w.openSource()
	defer src.Close()

	for {
		if ctx.Err() != nil {
			w.logger.Debug("watcher shutting down")
			w.ctrl.Stop(context.Background())
			return nil
		}
		if err := w.tick(ctx, src); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
}

// tick runs one iteration of the watch loop.
func (w *Watcher) tick(ctx context.Context, src Source) error {
	if !w.ctrl.Running() && !w.hidden() {
		if err := w.ctrl.Start(); err != nil {
			w.logger.Error("failed to start waybar", "error", err)
		}
	}

	wasIdle := w.batcher.Phase() == Idle
	w.batcher.Begin(w.lockActive())
	if wasIdle && w.batcher.Phase() == ThemeUpdateInProgress {
		w.logger.Debug("theme update started, batching events")
	}

	events, err := src.Next(ctx, w.interval)
	if err != nil {
		return err
	}
	events = Filter(events)

	if batch := w.batcher.Add(events, w.lockActive()); batch != nil {
		w.logger.Debug("processing file changes after idle tick", "count", len(batch))
		w.React(ctx, batch)
	}
	return nil
}

// React applies the reaction for a batch of changed paths.
func (w *Watcher) React(_ context.Context, paths []string) {
	if !w.ctrl.Running() {
		if err := w.ctrl.Start(); err != nil {
			w.logger.Error("failed to start waybar", "error", err)
		}
		return
	}

	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}

	switch Classify(paths) {
	case ActionRestart:
		w.logger.Debug("structural files changed, full restart", "files", names)
		// A cancelled ctx must not skip the graceful stop before the restart.
		w.ctrl.Stop(context.Background())
		if err := w.ctrl.Start(); err != nil {
			w.logger.Error("failed to start waybar", "error", err)
		}
	case ActionReload:
		w.logger.Debug("style files changed, hot reload", "files", names)
		err := w.ctrl.Send(supervisor.Reload)
		if errors.Is(err, supervisor.ErrNotRunning) {
			err = w.ctrl.Start()
		}
		if err != nil {
			w.logger.Error("reload failed", "error", err)
		}
	}
}
