// Package notify sends desktop notifications via dunstify or notify-send.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmylchreest/waybarctl/internal/sysexec"
)

// ErrNoNotifier means neither dunstify nor notify-send is on $PATH.
var ErrNoNotifier = errors.New("neither dunstify nor notify-send found on $PATH")

const (
	appName = "waybarctl"
	icon    = "preferences-desktop-theme"
	timeout = 5 * time.Second
)

// Notifier sends notifications that replace each other through a shared id.
type Notifier struct {
	runner    sysexec.ProcessRunner
	replaceID int
}

// New creates a Notifier. A replaceID of 0 disables replacement.
func New(runner sysexec.ProcessRunner, replaceID int) *Notifier {
	return &Notifier{runner: runner, replaceID: replaceID}
}

// Send posts a low-urgency notification.
func (n *Notifier) Send(ctx context.Context, summary, body string) error {
	path, err := n.binary()
	if err != nil {
		return err
	}

	args := []string{
		"-a", appName,
		"-i", icon,
		"-u", "low", // urgency: low, normal, critical
		"-t", "5000", // timeout in milliseconds
	}
	if n.replaceID > 0 {
		args = append(args, "-r", strconv.Itoa(n.replaceID))
	}
	args = append(args, summary, body)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, _, err := n.runner.Run(ctx, path, args, nil); err != nil {
		return fmt.Errorf("notification failed: %w", err)
	}
	return nil
}

// binary prefers dunstify, which supports more features.
func (n *Notifier) binary() (string, error) {
	if p, err := n.runner.LookPath("dunstify"); err == nil {
		return p, nil
	}
	if p, err := n.runner.LookPath("notify-send"); err == nil {
		return p, nil
	}
	return "", ErrNoNotifier
}
