package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"syscall"

	"github.com/mitchellh/go-ps"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// ProcessTable is the view of the OS process table the supervisor needs.
type ProcessTable interface {
	// FindByName returns the PIDs whose executable name is exactly name.
	FindByName(name string) ([]int, error)

	// IsZombie reports whether pid has exited but not been reaped.
	IsZombie(pid int) bool

	// Alive reports whether pid exists. A process owned by another user
	// counts as alive.
	Alive(pid int) bool

	// Cmdline returns the space-joined command line of pid, or "" if it
	// cannot be read.
	Cmdline(pid int) string

	// Signal delivers sig to pid.
	Signal(pid int, sig syscall.Signal) error
}

// SystemProcessTable reads the live process table.
type SystemProcessTable struct{}

// FindByName lists processes by executable name using go-ps.
func (SystemProcessTable) FindByName(name string) ([]int, error) {
	processes, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to get process list: %w", err)
	}

	var pids []int
	for _, p := range processes {
		if p.Executable() == name {
			pids = append(pids, p.Pid())
		}
	}
	slices.Sort(pids)
	return pids, nil
}

// IsZombie checks the process status via gopsutil.
func (SystemProcessTable) IsZombie(pid int) bool {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	status, err := p.Status()
	if err != nil {
		return false
	}
	return slices.Contains(status, process.Zombie)
}

// Alive sends signal 0 to pid.
func (SystemProcessTable) Alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Cmdline reads the command line via gopsutil.
func (SystemProcessTable) Cmdline(pid int) string {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	cmdline, err := p.Cmdline()
	if err != nil {
		return ""
	}
	return cmdline
}

// Signal sends sig to pid.
func (SystemProcessTable) Signal(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}

// Spawner launches the bar detached from the caller.
type Spawner interface {
	Spawn(binary string) (pid int, err error)
}

// ExecSpawner starts the binary in a new session with stdio on /dev/null, so
// the bar outlives the command that started it.
//
// SIGCHLD is left at its default. Ignoring it here would be inherited by the
// bar but would also make every exec.Cmd.Wait in this process fail with
// ECHILD, so the direct child is reaped by a waiting goroutine instead and
// init adopts it once waybarctl exits.
type ExecSpawner struct{}

// Spawn starts binary and returns its PID.
func (ExecSpawner) Spawn(binary string) (int, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return 0, err
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, err
	}
	defer devnull.Close()

	cmd := exec.Command(path)
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	// Reap the child if it exits while we are still running.
	go func() { _ = cmd.Wait() }()
	return cmd.Process.Pid, nil
}
