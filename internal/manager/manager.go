// Package manager ties layout discovery, file generation, the bar's
// process lifecycle and the interactive menus into the operations the CLI
// exposes.
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/waybarctl/internal/config"
	"github.com/jmylchreest/waybarctl/internal/fsutil"
	"github.com/jmylchreest/waybarctl/internal/generate"
	"github.com/jmylchreest/waybarctl/internal/layout"
	"github.com/jmylchreest/waybarctl/internal/notify"
	"github.com/jmylchreest/waybarctl/internal/paths"
	"github.com/jmylchreest/waybarctl/internal/picker"
	"github.com/jmylchreest/waybarctl/internal/state"
	"github.com/jmylchreest/waybarctl/internal/supervisor"
	"github.com/jmylchreest/waybarctl/internal/sysexec"
	"github.com/jmylchreest/waybarctl/internal/template"
	"github.com/jmylchreest/waybarctl/internal/theme"
	"github.com/jmylchreest/waybarctl/internal/watcher"
)

const (
	notifySummary     = "Waybar"
	syncScriptTimeout = 5 * time.Second

	// backupsItem is the picker value of the synthetic "show backups" entry.
	backupsItem = "\x00backups"
)

// Builder provides a fluent interface for constructing a Manager.
type Builder struct {
	paths   *paths.Paths
	config  *config.Config
	logger  hclog.Logger
	runner  sysexec.ProcessRunner
	table   supervisor.ProcessTable
	spawner supervisor.Spawner
	source  watcher.Source
	getenv  func(string) string
	now     func() time.Time
}

// NewBuilder creates a Builder with the current user's paths and the
// built-in settings.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithPaths sets the file layout.
func (b *Builder) WithPaths(p *paths.Paths) *Builder {
	b.paths = p
	return b
}

// WithConfig sets the tool settings.
func (b *Builder) WithConfig(cfg *config.Config) *Builder {
	b.config = cfg
	return b
}

// WithLogger sets the parent logger; components log through named children.
func (b *Builder) WithLogger(logger hclog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithRunner sets the runner used for external commands (useful for testing).
func (b *Builder) WithRunner(runner sysexec.ProcessRunner) *Builder {
	b.runner = runner
	return b
}

// WithProcesses replaces the process table and spawner (useful for testing).
func (b *Builder) WithProcesses(table supervisor.ProcessTable, spawner supervisor.Spawner) *Builder {
	b.table = table
	b.spawner = spawner
	return b
}

// WithWatchSource overrides the watcher's event source (useful for testing).
func (b *Builder) WithWatchSource(src watcher.Source) *Builder {
	b.source = src
	return b
}

// WithGetenv sets the environment lookup used for per-session overrides.
func (b *Builder) WithGetenv(getenv func(string) string) *Builder {
	b.getenv = getenv
	return b
}

// WithClock sets the clock used for backup timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build constructs the Manager and its components.
func (b *Builder) Build() *Manager {
	p := b.paths
	if p == nil {
		p = paths.Default()
	}
	cfg := b.config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := b.logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	runner := b.runner
	if runner == nil {
		runner = sysexec.NewRealProcessRunner()
	}
	getenv := b.getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	st := state.New(p.StateFile)
	resolver := layout.New(layout.Options{
		LayoutDirs: p.LayoutDirs,
		StyleDirs:  p.StyleDirs,
		Ignore:     cfg.LayoutIgnore,
		ConfigFile: p.ConfigFile,
		BackupDir:  p.BackupDir,
		State:      st,
		Logger:     logger.Named("layout"),
		Now:        b.now,
	})
	templates := template.New(p.TemplatesDir).WithLogger(logger.Named("template"))
	themes := theme.NewReader(p.ThemesDir, st, runner, logger.Named("theme"))

	supLogger := logger.Named("supervisor")
	sup := supervisor.New(supervisor.Options{
		Binary:       cfg.Binary,
		LockFile:     p.BarLockFile,
		Table:        b.table,
		Spawner:      b.spawner,
		Units:        supervisor.NewUnits(runner, getenv("XDG_SESSION_DESKTOP"), supLogger),
		StopTimeout:  cfg.StopTimeout.Duration,
		PollInterval: cfg.StopPollInterval.Duration,
		Logger:       supLogger,
	})

	return &Manager{
		paths:    p,
		config:   cfg,
		logger:   logger,
		runner:   runner,
		state:    st,
		resolver: resolver,
		generator: generate.New(generate.Options{
			Paths:     p,
			Resolver:  resolver,
			State:     st,
			Theme:     themes,
			Templates: templates,
			Logger:    logger.Named("generate"),
			Getenv:    getenv,
		}),
		templates:  templates,
		supervisor: sup,
		notifier:   notify.New(runner, cfg.NotifyReplaceID),
		picker:     picker.New(runner, cfg.Picker, cfg.PickerTheme),
		table:      b.table,
		source:     b.source,
	}
}

// Manager runs the user-facing operations.
type Manager struct {
	paths      *paths.Paths
	config     *config.Config
	logger     hclog.Logger
	runner     sysexec.ProcessRunner
	state      *state.Store
	resolver   *layout.Resolver
	generator  *generate.Generator
	templates  *template.Loader
	supervisor *supervisor.Supervisor
	notifier   *notify.Notifier
	picker     *picker.Picker
	table      supervisor.ProcessTable
	source     watcher.Source
}

// Paths returns the file layout in use.
func (m *Manager) Paths() *paths.Paths {
	return m.paths
}

// Supervisor returns the bar's process supervisor.
func (m *Manager) Supervisor() *supervisor.Supervisor {
	return m.supervisor
}

// SourceEnvironment exports the session environment and the hypr user
// config into the process environment.
func (m *Manager) SourceEnvironment() {
	for _, f := range []string{m.paths.HyprEnvFile, m.paths.HyprConfigFile} {
		if err := config.SourceEnvFile(f); err != nil {
			m.logger.Warn("failed to source environment file", "path", f, "error", err)
		}
	}
}

// SyncLayout reconciles the persisted layout with config.jsonc at startup.
// A config that diverges from the persisted layout is backed up before the
// layout is copied over it.
func (m *Manager) SyncLayout() error {
	if m.state.Empty() {
		return m.EnsureState()
	}

	persisted, _ := m.state.Lookup(state.KeyLayoutPath)
	if persisted == "" {
		current, err := m.resolver.CurrentLayout()
		if err != nil {
			return err
		}
		return m.generator.CopyConfig(current)
	}

	if fsutil.IsFile(persisted) {
		return m.installOver(persisted, layout.BaseName(persisted))
	}

	m.logger.Debug("persisted layout missing", "layout", persisted)
	name, _ := m.state.Lookup(state.KeyLayoutName)
	if name != "" {
		if found, ok := m.resolver.ByBaseName(name); ok {
			m.logger.Debug("found layout by name", "layout", found)
			if err := m.state.Set(state.KeyLayoutPath, found); err != nil {
				return err
			}
			return m.installOver(found, name)
		}
	}

	first, err := m.resolver.First()
	if err != nil {
		return err
	}
	m.logger.Warn("layout not found, using first available", "name", name, "layout", first)
	if err := m.resolver.Persist(first); err != nil {
		return err
	}
	return m.generator.CopyConfig(first)
}

// installOver copies src to config.jsonc, backing up a differing config
// under name first.
func (m *Manager) installOver(src, name string) error {
	cfgFile := m.paths.ConfigFile
	if !fsutil.IsFile(cfgFile) {
		return m.generator.CopyConfig(src)
	}
	if fsutil.SameContent(src, cfgFile) {
		return nil
	}
	if backup, err := m.resolver.Backup(name); err != nil {
		m.logger.Error("backup failed", "error", err)
	} else if backup != "" {
		m.logger.Info("config changed, backed up", "backup", backup)
	}
	return m.generator.CopyConfig(src)
}

// EnsureState creates the state file, or fills in whichever of the
// layout path, layout name and style path it lacks. A persisted layout
// that no longer exists is replaced by the current one.
func (m *Manager) EnsureState() error {
	path, hasPath := m.state.Lookup(state.KeyLayoutPath)
	_, hasName := m.state.Lookup(state.KeyLayoutName)
	_, hasStyle := m.state.Lookup(state.KeyStylePath)
	if hasPath && hasName && hasStyle {
		return nil
	}

	if path == "" || !fsutil.IsFile(path) {
		current, err := m.resolver.CurrentLayout()
		if err != nil {
			return err
		}
		if hasPath && current != path {
			if err := m.state.Set(state.KeyLayoutPath, current); err != nil {
				return err
			}
		}
		path = current
	}

	style := ""
	if !hasStyle {
		var err error
		if style, err = m.resolver.ResolveStyle(path); err != nil {
			m.logger.Warn("no style for layout", "layout", path, "error", err)
		}
	}
	m.logger.Debug("writing state", "path", m.state.Path(), "layout", path)
	return m.state.EnsureEntries(path, style)
}

// SetLayout switches to layout, given as a path, relative name or basename.
func (m *Manager) SetLayout(ctx context.Context, name string) error {
	entry, err := m.resolver.Lookup(name)
	if err != nil {
		return err
	}
	if err := m.apply(ctx, entry); err != nil {
		return err
	}
	return m.supervisor.Restart(ctx)
}

// apply installs entry, regenerates the derived files and announces it.
func (m *Manager) apply(ctx context.Context, entry layout.Entry) error {
	if entry.Style == "" {
		return fmt.Errorf("%w: %s", layout.ErrNoStyle, entry.Layout)
	}
	if err := m.generator.CopyConfig(entry.Layout); err != nil {
		return err
	}
	if err := m.state.SetAll(
		[2]string{state.KeyLayoutPath, entry.Layout},
		[2]string{state.KeyLayoutName, layout.BaseName(entry.Layout)},
		[2]string{state.KeyStylePath, entry.Style},
	); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	if err := m.generator.WriteStyle(entry.Style); err != nil {
		return err
	}
	m.updateAll(ctx)
	m.runSyncScript(ctx)
	m.notify(ctx, "Layout changed to "+layout.BaseName(entry.Layout))
	m.logger.Info("layout changed", "layout", entry.Layout, "style", entry.Style)
	return nil
}

// updateAll regenerates the derived files; failures are logged only.
func (m *Manager) updateAll(ctx context.Context) {
	if err := m.generator.UpdateAll(ctx); err != nil {
		m.logger.Error("failed to update generated files", "error", err)
	}
}

func (m *Manager) runSyncScript(ctx context.Context) {
	script := m.config.SyncScript
	if script == "" || !fsutil.IsFile(script) {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, syncScriptTimeout)
	defer cancel()
	if _, stderr, err := m.runner.Run(ctx, script, nil, nil); err != nil {
		m.logger.Warn("sync script failed", "script", script, "error", err, "stderr", strings.TrimSpace(string(stderr)))
		return
	}
	m.logger.Debug("ran sync script", "script", script)
}

func (m *Manager) notify(ctx context.Context, body string) {
	if !m.config.Notify {
		return
	}
	if err := m.notifier.Send(ctx, notifySummary, body); err != nil {
		m.logger.Debug("notification not sent", "error", err)
	}
}

// Navigate moves delta steps through the sorted layouts, wrapping around.
func (m *Manager) Navigate(ctx context.Context, delta int) error {
	current, _ := m.state.Lookup(state.KeyLayoutPath)
	if current == "" {
		return errors.New("current layout not found in state file")
	}

	next, err := m.resolver.Neighbour(current, delta)
	if errors.Is(err, layout.ErrLayoutNotFound) {
		m.logger.Debug("state layout not in list, detecting from config", "layout", current)
		if current, err = m.resolver.CurrentLayout(); err != nil {
			return err
		}
		next, err = m.resolver.Neighbour(current, delta)
	}
	if err != nil {
		return err
	}
	return m.SetLayout(ctx, next)
}

// SelectLayout shows the layout menu. It reports whether a layout was
// applied, so that Select can go on to the style menu.
func (m *Manager) SelectLayout(ctx context.Context) (bool, error) {
	listing := m.resolver.List()
	if len(listing.Layouts) == 0 {
		return false, layout.ErrNoLayouts
	}

	current, _ := m.state.Lookup(state.KeyLayoutPath)
	var items []picker.Item
	selected := ""
	for _, e := range listing.Layouts {
		items = append(items, picker.Item{Label: e.Name, Value: e.Layout})
		if e.Layout == current {
			selected = e.Name
		}
	}
	if n := len(listing.Backups); n > 0 {
		items = append(items, picker.Item{
			Label: fmt.Sprintf("List all %d Backup(s) saved", n),
			Value: backupsItem,
		})
	}

	choice, err := m.picker.Pick(ctx, "Select layout:", items, selected)
	if err != nil {
		return false, err
	}
	switch choice {
	case "":
		m.logger.Debug("layout selection cancelled")
		return false, m.EnsureState()
	case backupsItem:
		return false, m.ShowBackups(ctx)
	}

	idx := slices.IndexFunc(listing.Layouts, func(e layout.Entry) bool { return e.Layout == choice })
	if idx < 0 {
		return false, fmt.Errorf("%w: %s", layout.ErrLayoutNotFound, choice)
	}
	if err := m.apply(ctx, listing.Layouts[idx]); err != nil {
		return false, err
	}
	if err := m.supervisor.Restart(ctx); err != nil {
		return true, err
	}
	return true, m.EnsureState()
}

// ShowBackups lists saved backups and tries the chosen one. A tried backup
// is copied over config.jsonc without being recorded as the layout.
func (m *Manager) ShowBackups(ctx context.Context) error {
	backups := m.resolver.List().Backups
	if len(backups) == 0 {
		m.notify(ctx, "No backup layouts found")
		m.logger.Info("no backup layouts found")
		return nil
	}

	items := make([]picker.Item, len(backups))
	for i, b := range backups {
		items[i] = picker.Item{Label: b.Name, Value: b.Layout}
	}
	choice, err := m.picker.Pick(ctx, "Select a backup to try:", items, "")
	if err != nil || choice == "" {
		return err
	}
	if err := m.generator.CopyConfig(choice); err != nil {
		return err
	}
	m.notify(ctx, "Trying backup "+layout.BaseName(choice))
	return m.supervisor.Restart(ctx)
}

// styleFiles lists the *.css files directly inside the style directories.
// Earlier directories shadow later ones with the same file name.
func (m *Manager) styleFiles() []picker.Item {
	var items []picker.Item
	seen := map[string]bool{}
	for _, dir := range m.paths.StyleDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".css" || seen[e.Name()] {
				continue
			}
			seen[e.Name()] = true
			items = append(items, picker.Item{
				Label: strings.TrimSuffix(e.Name(), ".css"),
				Value: filepath.Join(dir, e.Name()),
			})
		}
	}
	return items
}

// SelectStyle shows the style menu and applies the chosen style.
func (m *Manager) SelectStyle(ctx context.Context) error {
	items := m.styleFiles()
	if len(items) == 0 {
		return fmt.Errorf("no styles found in %s", strings.Join(m.paths.StyleDirs, ", "))
	}

	selected := ""
	if current, ok := m.state.Lookup(state.KeyStylePath); ok && current != "" {
		selected = strings.TrimSuffix(filepath.Base(current), ".css")
	}
	choice, err := m.picker.Pick(ctx, "Select style:", items, selected)
	if err != nil {
		return err
	}
	if choice == "" {
		m.logger.Debug("style selection cancelled")
		return nil
	}

	if err := m.generator.WriteStyle(choice); err != nil {
		return err
	}
	if err := m.state.Set(state.KeyStylePath, choice); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	m.updateAll(ctx)
	m.notify(ctx, "Style changed to "+filepath.Base(choice))
	m.logger.Info("style changed", "style", choice)
	return m.supervisor.Restart(ctx)
}

// Select runs the layout menu, then the style menu if a layout was chosen.
func (m *Manager) Select(ctx context.Context) error {
	applied, err := m.SelectLayout(ctx)
	if err != nil || !applied {
		return err
	}
	return m.SelectStyle(ctx)
}

// CurrentLayout returns the persisted layout path, or "".
func (m *Manager) CurrentLayout() string {
	return m.state.Get(state.KeyLayoutPath, "")
}

// Listing returns the layouts with their styles and the backups.
func (m *Manager) Listing() *layout.Listing {
	return m.resolver.List()
}

// ListJSON writes the listing as indented JSON.
func (m *Manager) ListJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(m.resolver.List())
}

// UpdateConfig installs src as config.jsonc.
func (m *Manager) UpdateConfig(src string) error {
	if !fsutil.IsFile(src) {
		return fmt.Errorf("config source does not exist: %s", src)
	}
	return m.generator.CopyConfig(src)
}

// UpdateStyle rewrites style.css for stylePath, or for the current layout
// when stylePath is empty.
func (m *Manager) UpdateStyle(stylePath string) error {
	return m.generator.UpdateStyle(stylePath)
}

// UpdateIconSize rescales module icons in the layout and module files.
func (m *Manager) UpdateIconSize(ctx context.Context) error {
	return m.generator.UpdateIconSize(ctx)
}

// UpdateBorderRadius rewrites border-radius.css.
func (m *Manager) UpdateBorderRadius() error {
	return m.generator.UpdateBorderRadius()
}

// UpdateGlobalCSS rewrites global.css.
func (m *Manager) UpdateGlobalCSS(ctx context.Context) error {
	return m.generator.UpdateGlobalCSS(ctx)
}

// GenerateIncludes rewrites includes.json.
func (m *Manager) GenerateIncludes() error {
	return m.generator.GenerateIncludes()
}

// UpdateAll runs every generator in order.
func (m *Manager) UpdateAll(ctx context.Context) error {
	return m.generator.UpdateAll(ctx)
}

// DefaultRun regenerates everything, rewrites the style and restarts the bar.
func (m *Manager) DefaultRun(ctx context.Context) error {
	m.updateAll(ctx)
	if err := m.generator.UpdateStyle(""); err != nil {
		return err
	}
	return m.supervisor.Restart(ctx)
}

// Watch supervises the bar until ctx is cancelled, reloading or restarting
// it as its files change.
func (m *Manager) Watch(ctx context.Context) error {
	var procs watcher.ProcChecker = supervisor.SystemProcessTable{}
	if m.table != nil {
		procs = m.table
	}
	w := watcher.New(watcher.Options{
		Dirs:     []string{m.paths.WaybarDir, m.paths.IncludesDir},
		Interval: m.config.WatchInterval.Duration,
		Lock: &watcher.ThemeLock{
			Path:   m.paths.ThemeLockFile,
			TTL:    m.config.ThemeLockTTL.Duration,
			Hint:   m.config.ThemeLockHint,
			Procs:  procs,
			Logger: m.logger.Named("lock"),
		},
		HiddenFile: m.paths.HiddenStateFile,
		Controller: m.supervisor,
		Source:     m.source,
		Logger:     m.logger.Named("watcher"),
	})
	m.logger.Info("watching waybar files", "dirs", []string{m.paths.WaybarDir, m.paths.IncludesDir})
	return w.Run(ctx)
}

// Hide toggles the bar's visibility. A stopped bar is only a warning.
func (m *Manager) Hide() error {
	err := m.supervisor.Send(supervisor.ToggleVisibility)
	if errors.Is(err, supervisor.ErrNotRunning) {
		m.logger.Warn("waybar not running, cannot toggle visibility")
		return nil
	}
	return err
}

// Kill stops the bar and any watcher service.
func (m *Manager) Kill(ctx context.Context) {
	m.supervisor.KillAll(ctx)
}

// DumpTemplates writes the embedded templates to the override directory.
func (m *Manager) DumpTemplates(force bool) ([]string, error) {
	return m.templates.DumpAllTemplates(force)
}
