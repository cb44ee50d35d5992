package supervisor

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/waybarctl/internal/sysexec"
)

const unitCheckTimeout = 2 * time.Second

// Units queries the systemd user units that run the watcher.
type Units struct {
	runner  sysexec.ProcessRunner
	session string
	logger  hclog.Logger
}

// NewUnits creates a Units for the given XDG_SESSION_DESKTOP value.
func NewUnits(runner sysexec.ProcessRunner, session string, logger hclog.Logger) *Units {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Units{runner: runner, session: session, logger: logger}
}

// WatcherUnits lists the candidate watcher unit names for a session, most
// specific first, without duplicates.
func WatcherUnits(session string) []string {
	session = strings.TrimSpace(session)
	var candidates []string
	if session != "" {
		candidates = append(candidates, session+"-waybar-watcher.service")
		candidates = append(candidates, strings.ToLower(session)+"-waybar-watcher.service")
	}
	candidates = append(candidates, "hyprland-waybar-watcher.service")

	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, u := range candidates {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// IsActive runs `systemctl --user is-active --quiet unit`. Any failure,
// including a timeout, counts as inactive.
func (u *Units) IsActive(ctx context.Context, unit string) bool {
	ctx, cancel := context.WithTimeout(ctx, unitCheckTimeout)
	defer cancel()
	_, _, err := u.runner.Run(ctx, "systemctl", []string{"--user", "is-active", "--quiet", unit}, nil)
	return err == nil
}

// Active returns the first active watcher unit.
func (u *Units) Active(ctx context.Context) (string, bool) {
	for _, unit := range WatcherUnits(u.session) {
		if u.IsActive(ctx, unit) {
			return unit, true
		}
	}
	return "", false
}

// StopActive stops every active watcher unit and returns their names.
func (u *Units) StopActive(ctx context.Context) []string {
	var stopped []string
	for _, unit := range WatcherUnits(u.session) {
		if !u.IsActive(ctx, unit) {
			continue
		}
		if _, stderr, err := u.runner.Run(ctx, "systemctl", []string{"--user", "stop", unit}, nil); err != nil {
			u.logger.Error("failed to stop watcher unit", "unit", unit, "error", err, "stderr", strings.TrimSpace(string(stderr)))
			continue
		}
		stopped = append(stopped, unit)
	}
	return stopped
}
