// Package supervisor starts, stops and signals the user's waybar process.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/waybarctl/internal/fsutil"
	"github.com/jmylchreest/waybarctl/internal/sysexec"
)

// ErrNotRunning is returned when a command targets a bar that is not running.
var ErrNotRunning = errors.New("waybar is not running")

// State is the supervisor's view of the bar lifecycle.
type State int

const (
	NotRunning State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case NotRunning:
		return "not-running"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Command is a message delivered to a running bar.
type Command int

const (
	// ToggleVisibility hides or shows the bar.
	ToggleVisibility Command = iota
	// Reload re-reads the style without restarting.
	Reload
)

// Signal maps the command to the signal waybar listens for.
func (c Command) Signal() syscall.Signal {
	if c == ToggleVisibility {
		return syscall.SIGUSR1
	}
	return syscall.SIGUSR2
}

func (c Command) String() string {
	if c == ToggleVisibility {
		return "toggle-visibility"
	}
	return "reload"
}

// Options configures a Supervisor.
type Options struct {
	// Binary is the waybar executable; its base name is used for lookups.
	Binary   string
	LockFile string

	Table   ProcessTable
	Spawner Spawner
	Units   *Units

	StopTimeout  time.Duration
	PollInterval time.Duration

	Logger hclog.Logger
}

// Supervisor owns the lifecycle of one user's bar.
type Supervisor struct {
	binary       string
	lockFile     string
	table        ProcessTable
	spawner      Spawner
	units        *Units
	stopTimeout  time.Duration
	pollInterval time.Duration
	logger       hclog.Logger

	mu    sync.Mutex
	state State
}

// New creates a Supervisor.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		binary:       opts.Binary,
		lockFile:     opts.LockFile,
		table:        opts.Table,
		spawner:      opts.Spawner,
		units:        opts.Units,
		stopTimeout:  opts.StopTimeout,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
	if s.binary == "" {
		s.binary = "waybar"
	}
	if s.table == nil {
		s.table = SystemProcessTable{}
	}
	if s.spawner == nil {
		s.spawner = ExecSpawner{}
	}
	if s.stopTimeout <= 0 {
		s.stopTimeout = 5 * time.Second
	}
	if s.pollInterval <= 0 {
		s.pollInterval = 100 * time.Millisecond
	}
	if s.logger == nil {
		s.logger = hclog.NewNullLogger()
	}
	if s.units == nil {
		s.units = NewUnits(sysexec.NewRealProcessRunner(), os.Getenv("XDG_SESSION_DESKTOP"), s.logger)
	}
	return s
}

// State returns the last lifecycle state the supervisor recorded.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// PIDs returns the live, non-zombie bar processes.
func (s *Supervisor) PIDs() []int {
	pids, err := s.table.FindByName(filepath.Base(s.binary))
	if err != nil {
		s.logger.Error("error checking waybar pid", "error", err)
		return nil
	}
	live := pids[:0]
	for _, pid := range pids {
		if s.table.IsZombie(pid) {
			s.logger.Debug("ignoring zombie waybar", "pid", pid)
			continue
		}
		live = append(live, pid)
	}
	return live
}

// PID returns the first live bar process.
func (s *Supervisor) PID() (int, bool) {
	pids := s.PIDs()
	if len(pids) == 0 {
		return 0, false
	}
	return pids[0], true
}

// Running reports whether a bar process is alive.
func (s *Supervisor) Running() bool {
	_, ok := s.PID()
	return ok
}

func (s *Supervisor) readLock() (int, error) {
	data, err := os.ReadFile(s.lockFile)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func (s *Supervisor) removeLock() {
	if err := os.Remove(s.lockFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove lock", "path", s.lockFile, "error", err)
	}
}

// Start spawns the bar unless the lock file already names the live instance.
// A stale or unreadable lock is discarded.
func (s *Supervisor) Start() error {
	if fsutil.Exists(s.lockFile) {
		old, err := s.readLock()
		if err == nil {
			if live, ok := s.PID(); ok && live == old {
				s.logger.Debug("waybar already running", "pid", old)
				s.setState(Running)
				return nil
			}
		}
		s.removeLock()
	}

	s.setState(Starting)
	pid, err := s.spawner.Spawn(s.binary)
	if err != nil {
		s.setState(NotRunning)
		return fmt.Errorf("failed to start waybar: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.lockFile, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		s.logger.Warn("failed to write lock", "path", s.lockFile, "error", err)
	}
	s.setState(Running)
	s.logger.Debug("started waybar", "pid", pid)
	return nil
}

// Ensure starts the bar if no instance is running.
func (s *Supervisor) Ensure() error {
	if s.Running() {
		s.logger.Debug("waybar already running")
		s.setState(Running)
		return nil
	}
	return s.Start()
}

// Stop terminates every bar process: SIGTERM, then SIGKILL for survivors
// once the stop timeout passes or ctx is done. The lock is always removed.
func (s *Supervisor) Stop(ctx context.Context) {
	defer s.removeLock()

	pids := s.PIDs()
	if len(pids) == 0 {
		s.logger.Debug("waybar not running")
		s.setState(NotRunning)
		return
	}

	s.setState(Stopping)
	defer s.setState(NotRunning)

	s.signalAll(pids, syscall.SIGTERM)

	deadline := time.NewTimer(s.stopTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(s.pollInterval)
	defer tick.Stop()

wait:
	for len(s.PIDs()) > 0 {
		select {
		case <-tick.C:
		case <-deadline.C:
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	if pids := s.PIDs(); len(pids) > 0 {
		s.logger.Warn("waybar didn't stop, sending SIGKILL", "pids", pids)
		s.signalAll(pids, syscall.SIGKILL)
		return
	}
	s.logger.Debug("waybar stopped gracefully")
}

func (s *Supervisor) signalAll(pids []int, sig syscall.Signal) {
	for _, pid := range pids {
		if err := s.table.Signal(pid, sig); err != nil {
			s.logger.Debug("signal failed", "pid", pid, "signal", sig, "error", err)
			continue
		}
		s.logger.Debug("sent signal", "pid", pid, "signal", sig)
	}
}

// Restart stops and starts the bar, unless a watcher unit is active and
// will do it instead.
func (s *Supervisor) Restart(ctx context.Context) error {
	if unit, ok := s.units.Active(ctx); ok {
		s.logger.Debug("watcher active, skipping restart", "unit", unit)
		return nil
	}
	s.logger.Debug("no watcher detected, restarting")
	s.Stop(ctx)
	return s.Ensure()
}

// Send delivers cmd to the first live bar process.
func (s *Supervisor) Send(cmd Command) error {
	pid, ok := s.PID()
	if !ok {
		return ErrNotRunning
	}
	if err := s.table.Signal(pid, cmd.Signal()); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return ErrNotRunning
		}
		return fmt.Errorf("failed to send %s to waybar (PID %d): %w", cmd, pid, err)
	}
	s.logger.Debug("sent command", "command", cmd, "pid", pid)
	return nil
}

// KillAll stops the bar and every active watcher unit.
func (s *Supervisor) KillAll(ctx context.Context) {
	s.Stop(ctx)
	s.logger.Debug("killed waybar processes")
	if stopped := s.units.StopActive(ctx); len(stopped) > 0 {
		s.logger.Debug("stopped watcher units", "units", stopped)
	}
}
