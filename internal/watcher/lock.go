package watcher

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// DefaultLockHint is expected in the lock holder's command line.
const DefaultLockHint = "color.set.sh"

// ProcChecker answers liveness questions about a PID.
type ProcChecker interface {
	Alive(pid int) bool
	Cmdline(pid int) string
}

// ThemeLock is the advisory lock a theme switch holds while it rewrites
// the files the watcher observes. Stale locks are removed on sight.
type ThemeLock struct {
	Path string
	// TTL bounds how long a lock without a PID is honoured; 0 means forever.
	TTL   time.Duration
	Hint  string
	Procs ProcChecker
	Now   func() time.Time

	Logger hclog.Logger
}

type lockMeta struct {
	pid int
	cmd string
}

func readLockMeta(path string) (lockMeta, error) {
	var meta lockMeta
	f, err := os.Open(path)
	if err != nil {
		return meta, err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "pid":
			if pid, err := strconv.Atoi(value); err == nil {
				meta.pid = pid
			}
		case "cmd":
			meta.cmd = value
		}
	}
	return meta, s.Err()
}

func (l *ThemeLock) logger() hclog.Logger {
	if l.Logger == nil {
		return hclog.NewNullLogger()
	}
	return l.Logger
}

func (l *ThemeLock) remove(reason string) {
	l.logger().Warn("removing stale theme update lock", "path", l.Path, "reason", reason)
	if err := os.Remove(l.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.logger().Error("failed to remove theme update lock", "error", err)
	}
}

// Active reports whether a theme update is in progress.
func (l *ThemeLock) Active() bool {
	info, err := os.Stat(l.Path)
	if err != nil {
		return false
	}

	meta, err := readLockMeta(l.Path)
	if err != nil {
		l.logger().Debug("failed to read theme lock", "error", err)
		return false
	}

	if meta.pid > 0 {
		hint := meta.cmd
		if hint == "" {
			hint = l.Hint
		}
		if hint == "" {
			hint = DefaultLockHint
		}
		if l.holderActive(meta.pid, hint) {
			return true
		}
		l.remove("holder exited")
		return false
	}

	if l.TTL <= 0 {
		return true
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	if age := now().Sub(info.ModTime()); age > l.TTL {
		l.remove("ttl expired: " + age.Round(100*time.Millisecond).String())
		return false
	}
	return true
}

// holderActive is true when pid is alive and, if its command line is
// readable, mentions hint.
func (l *ThemeLock) holderActive(pid int, hint string) bool {
	if l.Procs == nil || !l.Procs.Alive(pid) {
		return false
	}
	cmdline := l.Procs.Cmdline(pid)
	if cmdline != "" && !strings.Contains(cmdline, hint) {
		l.logger().Warn("theme update lock pid does not match", "pid", pid, "hint", hint)
		return false
	}
	return true
}
