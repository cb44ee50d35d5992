// Package picker shows an interactive menu through rofi's dmenu mode.
package picker

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmylchreest/waybarctl/internal/sysexec"
)

// Item is one menu entry. Label is shown; Value is returned.
type Item struct {
	Label string
	Value string
}

// Picker runs a dmenu-compatible launcher.
type Picker struct {
	runner  sysexec.ProcessRunner
	command string
	theme   string
}

// New creates a Picker for command (usually "rofi") using theme.
func New(runner sysexec.ProcessRunner, command, theme string) *Picker {
	if command == "" {
		command = "rofi"
	}
	return &Picker{runner: runner, command: command, theme: theme}
}

// Pick shows items and returns the value of the chosen one. selected is the
// label to preselect. A cancelled menu returns "" and no error.
func (p *Picker) Pick(ctx context.Context, prompt string, items []Item, selected string) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("nothing to select for %q", prompt)
	}
	path, err := p.runner.LookPath(p.command)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", p.command, err)
	}

	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.Label
	}
	if selected == "" {
		selected = labels[0]
	}

	args := []string{"-dmenu", "-p", prompt, "-select", selected}
	if p.theme != "" {
		args = append(args, "-theme", p.theme)
	}

	stdout, _, err := p.runner.Run(ctx, path, args, strings.NewReader(strings.Join(labels, "\n")+"\n"))
	if err != nil {
		// rofi exits 1 when the menu is dismissed.
		if sysexec.ExitCode(err) == 1 {
			return "", nil
		}
		return "", fmt.Errorf("%s failed: %w", p.command, err)
	}

	choice := strings.TrimSpace(string(stdout))
	if choice == "" {
		return "", nil
	}
	for _, it := range items {
		if it.Label == choice {
			return it.Value, nil
		}
	}
	return "", nil
}
