package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// Source produces the paths that changed during one tick.
type Source interface {
	// Next blocks for at most interval and returns the changed paths.
	Next(ctx context.Context, interval time.Duration) ([]string, error)
	Close() error
}

// FSNotifySource reports changes through inotify.
type FSNotifySource struct {
	watcher *fsnotify.Watcher
	logger  hclog.Logger
}

// NewFSNotifySource watches dirs. Directories that cannot be watched are
// logged and skipped; an error is returned only when none can be.
func NewFSNotifySource(dirs []string, logger hclog.Logger) (*FSNotifySource, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	added := 0
	var lastErr error
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			logger.Warn("cannot watch directory", "dir", dir, "error", err)
			lastErr = err
			continue
		}
		added++
	}
	if added == 0 && lastErr != nil {
		_ = w.Close()
		return nil, lastErr
	}
	return &FSNotifySource{watcher: w, logger: logger}, nil
}

const watchOps = fsnotify.Write | fsnotify.Create | fsnotify.Chmod

// Next waits for the first event or the interval, then drains whatever
// else is already queued.
func (s *FSNotifySource) Next(ctx context.Context, interval time.Duration) ([]string, error) {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	var paths []string
	for {
		select {
		case <-ctx.Done():
			return paths, ctx.Err()
		case <-timer.C:
			return paths, nil
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return paths, nil
			}
			s.logger.Warn("watch error", "error", err)
		case event, ok := <-s.watcher.Events:
			if !ok {
				return paths, nil
			}
			if event.Op&watchOps != 0 {
				paths = append(paths, event.Name)
			}
			if len(paths) > 0 {
				return s.drain(paths), nil
			}
		}
	}
}

func (s *FSNotifySource) drain(paths []string) []string {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return paths
			}
			if event.Op&watchOps != 0 {
				paths = append(paths, event.Name)
			}
		default:
			return paths
		}
	}
}

// Close releases the inotify watch.
func (s *FSNotifySource) Close() error {
	return s.watcher.Close()
}

// PollSource detects changes by comparing modification times. The first
// sighting of a file only records it; vanished files are forgotten.
type PollSource struct {
	dirs   []string
	mtimes map[string]time.Time
}

// NewPollSource creates a poller over dirs.
func NewPollSource(dirs []string) *PollSource {
	return &PollSource{dirs: dirs, mtimes: map[string]time.Time{}}
}

// Scan compares the directories against the last scan.
func (s *PollSource) Scan() []string {
	var changed []string
	seen := make(map[string]bool, len(s.mtimes))
	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || !Relevant(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			path := filepath.Join(dir, e.Name())
			seen[path] = true
			prev, ok := s.mtimes[path]
			s.mtimes[path] = info.ModTime()
			if ok && !prev.Equal(info.ModTime()) {
				changed = append(changed, path)
			}
		}
	}
	for path := range s.mtimes {
		if !seen[path] {
			delete(s.mtimes, path)
		}
	}
	return changed
}

// Next scans, then waits out the interval.
func (s *PollSource) Next(ctx context.Context, interval time.Duration) ([]string, error) {
	changed := s.Scan()
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return changed, ctx.Err()
	case <-timer.C:
		return changed, nil
	}
}

// Close is a no-op.
func (s *PollSource) Close() error {
	return nil
}
