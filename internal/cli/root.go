// Package cli provides the command-line interface for waybarctl.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/jmylchreest/waybarctl/internal/config"
	"github.com/jmylchreest/waybarctl/internal/manager"
	"github.com/jmylchreest/waybarctl/internal/paths"
	"github.com/jmylchreest/waybarctl/internal/version"
)

// Flags that only touch CSS. On their own they skip the layout sync.
var cssOnlyFlags = []string{"update-border-radius", "update-global-css", "style"}

// Flags that act on the layout or config and therefore need it in sync.
var structuralFlags = []string{
	"update", "update-icon-size", "generate-includes", "config",
	"set", "next", "prev", "select-layout", "select-style", "select",
	"watch", "json", "list",
}

type options struct {
	set          string
	next         bool
	prev         bool
	selectLayout bool
	selectStyle  bool
	selectBoth   bool
	jsonOut      bool
	list         bool

	update       bool
	iconSize     bool
	borderRadius bool
	globalCSS    bool
	includes     bool
	configSrc    string
	style        string

	watch bool
	hide  bool
	kill  bool

	dumpTemplates bool
	force         bool
	verbose       bool
}

// BuildFunc constructs the manager for one invocation.
type BuildFunc func(p *paths.Paths, cfg *config.Config, logger hclog.Logger) *manager.Manager

func defaultBuild(p *paths.Paths, cfg *config.Config, logger hclog.Logger) *manager.Manager {
	return manager.NewBuilder().
		WithPaths(p).
		WithConfig(cfg).
		WithLogger(logger).
		Build()
}

type app struct {
	paths  *paths.Paths
	build  BuildFunc
	stdout io.Writer
	stderr io.Writer
	opts   options
}

// NewRootCmd creates the waybarctl command for the current user.
func NewRootCmd() *cobra.Command {
	return newRootCmd(paths.Default(), defaultBuild, os.Stdout, os.Stderr)
}

func newRootCmd(p *paths.Paths, build BuildFunc, stdout, stderr io.Writer) *cobra.Command {
	a := &app{paths: p, build: build, stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "waybarctl",
		Short: "Manage waybar layouts, styles and the running bar",
		Long: `waybarctl switches waybar between layout and style files, regenerates the
files derived from the current theme, and keeps the bar running.

Without flags it regenerates everything and restarts the bar.`,
		Version:      version.Short(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         a.run,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate(version.String() + "\n")

	o := &a.opts
	f := cmd.Flags()
	f.StringVar(&o.set, "set", "", "set a specific layout (path, name or basename)")
	f.BoolVarP(&o.next, "next", "n", false, "switch to the next layout")
	f.BoolVarP(&o.prev, "prev", "p", false, "switch to the previous layout")
	f.BoolVarP(&o.selectLayout, "select-layout", "L", false, "select a layout using rofi")
	f.BoolVarP(&o.selectStyle, "select-style", "Y", false, "select a style using rofi")
	f.BoolVarP(&o.selectBoth, "select", "S", false, "select a layout and then a style")
	f.BoolVarP(&o.jsonOut, "json", "j", false, "list all layouts in JSON format")
	f.BoolVarP(&o.list, "list", "l", false, "list all layouts as a table")

	f.BoolVarP(&o.update, "update", "u", false, "update icon size, border radius, includes and global.css")
	f.BoolVarP(&o.iconSize, "update-icon-size", "i", false, "update icon sizes in includes.json")
	f.BoolVarP(&o.borderRadius, "update-border-radius", "b", false, "update border radius in border-radius.css")
	f.BoolVarP(&o.globalCSS, "update-global-css", "g", false, "update global.css")
	f.BoolVarP(&o.includes, "generate-includes", "G", false, "generate includes.json")
	f.StringVarP(&o.configSrc, "config", "c", "", "path to the source config.jsonc file")
	f.StringVarP(&o.style, "style", "s", "", "path to the source style.css file")

	f.BoolVarP(&o.watch, "watch", "w", false, "watch files and keep waybar running")
	f.BoolVar(&o.hide, "hide", false, "toggle waybar visibility")
	f.BoolVarP(&o.kill, "kill", "k", false, "kill waybar and the watcher service")

	f.BoolVar(&o.dumpTemplates, "dump-templates", false, "write the built-in templates for customisation")
	f.BoolVar(&o.force, "force", false, "overwrite existing templates with --dump-templates")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose output")

	return cmd
}

// newLogger builds the root logger. Colour is only used on a terminal.
func newLogger(w io.Writer, level string, verbose bool) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	if verbose {
		lvl = hclog.Debug
	}

	color := hclog.ColorOff
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		color = hclog.AutoColor
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "waybarctl",
		Output: w,
		Level:  lvl,
		Color:  color,
	})
}

func anyChanged(flags *pflag.FlagSet, names []string) bool {
	for _, n := range names {
		if flags.Changed(n) {
			return true
		}
	}
	return false
}

// needsLayoutSync is false only when every requested action is CSS-only.
func needsLayoutSync(flags *pflag.FlagSet) bool {
	return !anyChanged(flags, cssOnlyFlags) || anyChanged(flags, structuralFlags)
}

// hasAction reports whether any flag other than --verbose was given.
func hasAction(flags *pflag.FlagSet) bool {
	return anyChanged(flags, cssOnlyFlags) || anyChanged(flags, structuralFlags)
}

func (a *app) run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(a.paths.ToolConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", a.paths.ToolConfigFile, err)
	}
	logger := newLogger(a.stderr, cfg.LogLevel, a.opts.verbose)
	m := a.build(a.paths, cfg, logger)

	switch {
	case a.opts.dumpTemplates:
		written, err := m.DumpTemplates(a.opts.force)
		for _, p := range written {
			fmt.Fprintln(a.stdout, p)
		}
		return err
	case a.opts.hide:
		return m.Hide()
	case a.opts.kill:
		m.Kill(ctx)
		return nil
	}

	m.SourceEnvironment()

	flags := cmd.Flags()
	if needsLayoutSync(flags) {
		if err := m.SyncLayout(); err != nil {
			return err
		}
	} else {
		logger.Debug("css-only update, skipping layout sync")
	}
	if err := m.EnsureState(); err != nil {
		logger.Warn("failed to ensure state file", "error", err)
	}

	if !hasAction(flags) {
		return m.DefaultRun(ctx)
	}
	return a.dispatch(ctx, m)
}

// dispatch runs the requested actions in a fixed order.
func (a *app) dispatch(ctx context.Context, m *manager.Manager) error {
	o := a.opts
	steps := []struct {
		enabled bool
		run     func() error
	}{
		{o.update, func() error { return m.UpdateAll(ctx) }},
		{o.globalCSS, func() error { return m.UpdateGlobalCSS(ctx) }},
		{o.iconSize, func() error { return m.UpdateIconSize(ctx) }},
		{o.borderRadius, m.UpdateBorderRadius},
		{o.includes, m.GenerateIncludes},
		{o.configSrc != "", func() error { return m.UpdateConfig(o.configSrc) }},
		{o.style != "", func() error { return m.UpdateStyle(o.style) }},
		{o.next, func() error { return m.Navigate(ctx, 1) }},
		{o.prev && !o.next, func() error { return m.Navigate(ctx, -1) }},
		{o.set != "" && !o.next && !o.prev, func() error { return m.SetLayout(ctx, o.set) }},
		{o.jsonOut, func() error { return m.ListJSON(a.stdout) }},
		{o.list, func() error { return printLayouts(a.stdout, m.Listing(), m.CurrentLayout(), terminalWidth(a.stdout)) }},
		{o.selectLayout, func() error { _, err := m.SelectLayout(ctx); return err }},
		{o.selectStyle, func() error { return m.SelectStyle(ctx) }},
		{o.selectBoth, func() error { return m.Select(ctx) }},
		{o.watch, func() error { return m.Watch(ctx) }},
	}
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if err := s.run(); err != nil {
			return err
		}
	}
	return nil
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
