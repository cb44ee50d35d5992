package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/jmylchreest/waybarctl/internal/config"
	"github.com/jmylchreest/waybarctl/internal/layout"
	"github.com/jmylchreest/waybarctl/internal/paths"
	"github.com/jmylchreest/waybarctl/internal/state"
	"github.com/jmylchreest/waybarctl/internal/sysexec"
)

// fakeProcs is an in-memory process table that also spawns processes.
type fakeProcs struct {
	mu      sync.Mutex
	procs   map[int]string
	nextPID int
	spawned int
	signals []syscall.Signal
}

func newFakeProcs() *fakeProcs {
	return &fakeProcs{procs: map[int]string{}, nextPID: 200}
}

func (f *fakeProcs) FindByName(name string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pids []int
	for pid, n := range f.procs {
		if n == name {
			pids = append(pids, pid)
		}
	}
	slices.Sort(pids)
	return pids, nil
}

func (f *fakeProcs) IsZombie(int) bool { return false }

func (f *fakeProcs) Alive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.procs[pid]
	return ok
}

func (f *fakeProcs) Cmdline(int) string { return "" }

func (f *fakeProcs) Signal(pid int, sig syscall.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.procs[pid]; !ok {
		return syscall.ESRCH
	}
	f.signals = append(f.signals, sig)
	if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
		delete(f.procs, pid)
	}
	return nil
}

func (f *fakeProcs) Spawn(binary string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPID++
	f.spawned++
	f.procs[f.nextPID] = filepath.Base(binary)
	return f.nextPID, nil
}

type fixture struct {
	root    string
	paths   *paths.Paths
	cfg     *config.Config
	runner  *sysexec.MockProcessRunner
	procs   *fakeProcs
	layouts string
	styles  string
	rofi    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	p := paths.New(paths.Roots{
		ConfigHome: filepath.Join(root, "config"),
		DataHome:   filepath.Join(root, "data"),
		StateHome:  filepath.Join(root, "state"),
		CacheHome:  filepath.Join(root, "cache"),
		RuntimeDir: filepath.Join(root, "run"),
		TempDir:    root,
		UID:        1000,
	})

	f := &fixture{
		root:    root,
		paths:   p,
		cfg:     config.Default(),
		procs:   newFakeProcs(),
		layouts: p.LayoutDirs[0],
		styles:  p.StyleDirs[0],
	}
	f.cfg.SyncScript = ""
	f.cfg.StopPollInterval = config.Duration{Duration: time.Millisecond}

	f.runner = sysexec.NewMockProcessRunner()
	f.runner.Executables = []string{"rofi", "dunstify"}
	f.runner.RunFunc = func(ctx context.Context, path string, args []string, stdin io.Reader) ([]byte, []byte, error) {
		if path == "systemctl" {
			return nil, nil, os.ErrNotExist
		}
		if strings.HasSuffix(path, "/rofi") {
			return []byte(f.rofi + "\n"), nil, nil
		}
		return nil, nil, nil
	}

	f.write(t, filepath.Join(f.layouts, "alpha.jsonc"), `{"layer": "top"}`)
	f.write(t, filepath.Join(f.layouts, "beta.jsonc"), `{"layer": "bottom"}`)
	f.write(t, filepath.Join(f.styles, "alpha.css"), "/* alpha */")
	f.write(t, filepath.Join(f.styles, "defaults.css"), "/* defaults */")
	return f
}

func (f *fixture) write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func (f *fixture) layout(name string) string {
	return filepath.Join(f.layouts, name+".jsonc")
}

func (f *fixture) build() *Manager {
	return NewBuilder().
		WithPaths(f.paths).
		WithConfig(f.cfg).
		WithRunner(f.runner).
		WithProcesses(f.procs, f.procs).
		WithGetenv(func(string) string { return "" }).
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }).
		Build()
}

func (f *fixture) state() *state.Store {
	return state.New(f.paths.StateFile)
}

func (f *fixture) notifications() []string {
	var out []string
	for _, c := range f.runner.Calls() {
		if strings.HasSuffix(c.Path, "/dunstify") {
			out = append(out, c.Args[len(c.Args)-1])
		}
	}
	return out
}

func (f *fixture) rofiCalls() []sysexec.Call {
	var out []sysexec.Call
	for _, c := range f.runner.Calls() {
		if strings.HasSuffix(c.Path, "/rofi") {
			out = append(out, c)
		}
	}
	return out
}

func TestSetLayout(t *testing.T) {
	f := newFixture(t)
	script := filepath.Join(f.root, "sync.sh")
	f.write(t, script, "#!/bin/sh\n")
	f.cfg.SyncScript = script
	m := f.build()

	if err := m.SetLayout(context.Background(), "beta"); err != nil {
		t.Fatalf("SetLayout failed: %v", err)
	}

	if got := f.read(t, f.paths.ConfigFile); got != `{"layer": "bottom"}` {
		t.Errorf("config not replaced, got %q", got)
	}
	st := f.state()
	if got := st.Get(state.KeyLayoutPath, ""); got != f.layout("beta") {
		t.Errorf("Expected layout path %s, got %s", f.layout("beta"), got)
	}
	if got := st.Get(state.KeyLayoutName, ""); got != "beta" {
		t.Errorf("Expected layout name beta, got %s", got)
	}
	wantStyle := filepath.Join(f.styles, "defaults.css")
	if got := st.Get(state.KeyStylePath, ""); got != wantStyle {
		t.Errorf("Expected style %s, got %s", wantStyle, got)
	}
	if !strings.Contains(f.read(t, f.paths.StyleFile), wantStyle) {
		t.Error("style.css does not import the layout style")
	}

	if notes := f.notifications(); !slices.Contains(notes, "Layout changed to beta") {
		t.Errorf("Expected layout notification, got %v", notes)
	}
	ran := false
	for _, c := range f.runner.Calls() {
		if c.Path == script {
			ran = true
		}
	}
	if !ran {
		t.Error("sync script was not run")
	}
	if f.procs.spawned != 1 {
		t.Errorf("Expected waybar to be started once, got %d", f.procs.spawned)
	}
}

func TestSetLayoutUnknown(t *testing.T) {
	f := newFixture(t)
	err := f.build().SetLayout(context.Background(), "gamma")
	if err == nil {
		t.Fatal("Expected error for unknown layout")
	}
	if fileExists(f.paths.ConfigFile) {
		t.Error("config must not be written for an unknown layout")
	}
}

func TestSetLayoutRestartsRunningBar(t *testing.T) {
	f := newFixture(t)
	if _, err := f.procs.Spawn("waybar"); err != nil {
		t.Fatal(err)
	}
	if err := f.build().SetLayout(context.Background(), "alpha"); err != nil {
		t.Fatalf("SetLayout failed: %v", err)
	}
	if !slices.Contains(f.procs.signals, syscall.SIGTERM) {
		t.Error("running bar was not stopped")
	}
	if f.procs.spawned != 2 {
		t.Errorf("Expected a fresh bar, spawned %d", f.procs.spawned)
	}
}

func TestSyncLayout(t *testing.T) {
	tests := []struct {
		name       string
		state      map[string]string
		config     string
		wantConfig string
		wantPath   string
		wantBackup string
	}{
		{
			name:       "persisted layout copied when config missing",
			state:      map[string]string{state.KeyLayoutPath: "alpha"},
			wantConfig: `{"layer": "top"}`,
			wantPath:   "alpha",
		},
		{
			name:       "diverged config backed up",
			state:      map[string]string{state.KeyLayoutPath: "alpha"},
			config:     `{"edited": true}`,
			wantConfig: `{"layer": "top"}`,
			wantPath:   "alpha",
			wantBackup: "alpha_20260102_030405.jsonc",
		},
		{
			name:       "matching config left alone",
			state:      map[string]string{state.KeyLayoutPath: "beta"},
			config:     `{"layer": "bottom"}`,
			wantConfig: `{"layer": "bottom"}`,
			wantPath:   "beta",
		},
		{
			name:       "stale path recovered by name",
			state:      map[string]string{state.KeyLayoutPath: "/gone/beta.jsonc", state.KeyLayoutName: "beta"},
			config:     `{"edited": true}`,
			wantConfig: `{"layer": "bottom"}`,
			wantPath:   "beta",
			wantBackup: "beta_20260102_030405.jsonc",
		},
		{
			name:       "unknown name falls back to first layout",
			state:      map[string]string{state.KeyLayoutPath: "/gone/x.jsonc", state.KeyLayoutName: "x"},
			wantConfig: `{"layer": "top"}`,
			wantPath:   "alpha",
		},
		{
			name:       "empty path detected from config",
			state:      map[string]string{state.KeyLayoutName: ""},
			config:     `{"layer": "bottom"}`,
			wantConfig: `{"layer": "bottom"}`,
			wantPath:   "beta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			st := f.state()
			for k, v := range tt.state {
				if k == state.KeyLayoutPath && !filepath.IsAbs(v) {
					v = f.layout(v)
				}
				if err := st.Set(k, v); err != nil {
					t.Fatal(err)
				}
			}
			if tt.config != "" {
				f.write(t, f.paths.ConfigFile, tt.config)
			}

			if err := f.build().SyncLayout(); err != nil {
				t.Fatalf("SyncLayout failed: %v", err)
			}

			if got := f.read(t, f.paths.ConfigFile); got != tt.wantConfig {
				t.Errorf("Expected config %q, got %q", tt.wantConfig, got)
			}
			if got := st.Get(state.KeyLayoutPath, ""); got != f.layout(tt.wantPath) {
				t.Errorf("Expected state path %s, got %s", f.layout(tt.wantPath), got)
			}
			backup := filepath.Join(f.paths.BackupDir, tt.wantBackup)
			if tt.wantBackup != "" {
				if got := f.read(t, backup); got != tt.config {
					t.Errorf("Backup holds %q, want %q", got, tt.config)
				}
			} else if entries, _ := os.ReadDir(f.paths.BackupDir); len(entries) > 0 {
				t.Errorf("Unexpected backups: %d", len(entries))
			}
		})
	}
}

func TestSyncLayoutCreatesState(t *testing.T) {
	f := newFixture(t)
	if err := f.build().SyncLayout(); err != nil {
		t.Fatalf("SyncLayout failed: %v", err)
	}
	st := f.state()
	if got := st.Get(state.KeyLayoutPath, ""); got != f.layout("alpha") {
		t.Errorf("Expected first layout, got %s", got)
	}
	if got := st.Get(state.KeyLayoutName, ""); got != "alpha" {
		t.Errorf("Expected name alpha, got %s", got)
	}
	if got := st.Get(state.KeyStylePath, ""); got != filepath.Join(f.styles, "alpha.css") {
		t.Errorf("Expected alpha style, got %s", got)
	}
}

func TestEnsureStateFillsMissingKeys(t *testing.T) {
	f := newFixture(t)
	st := f.state()
	if err := st.Set(state.KeyLayoutPath, f.layout("beta")); err != nil {
		t.Fatal(err)
	}
	if err := st.Set(state.KeyStylePath, "/custom.css"); err != nil {
		t.Fatal(err)
	}

	if err := f.build().EnsureState(); err != nil {
		t.Fatalf("EnsureState failed: %v", err)
	}
	if got := st.Get(state.KeyLayoutName, ""); got != "beta" {
		t.Errorf("Expected name from persisted path, got %q", got)
	}
	if got := st.Get(state.KeyStylePath, ""); got != "/custom.css" {
		t.Errorf("Existing style must be kept, got %q", got)
	}
}

func TestSyncLayoutTreatsEmptyStateAsMissing(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.paths.StateFile, "")

	if err := f.build().SyncLayout(); err != nil {
		t.Fatalf("SyncLayout failed: %v", err)
	}
	st := f.state()
	if got := st.Get(state.KeyLayoutPath, ""); got != f.layout("alpha") {
		t.Errorf("Expected first layout recorded, got %q", got)
	}
	if got := st.Get(state.KeyLayoutName, ""); got != "alpha" {
		t.Errorf("Expected layout name alpha, got %q", got)
	}
	if got := st.Get(state.KeyStylePath, ""); got != filepath.Join(f.styles, "alpha.css") {
		t.Errorf("Expected alpha style, got %q", got)
	}
}

func TestNavigate(t *testing.T) {
	tests := []struct {
		name    string
		current string
		delta   int
		want    string
	}{
		{"next", "alpha", 1, "beta"},
		{"next wraps", "beta", 1, "alpha"},
		{"prev wraps", "alpha", -1, "beta"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.state().Set(state.KeyLayoutPath, f.layout(tt.current)); err != nil {
				t.Fatal(err)
			}
			if err := f.build().Navigate(context.Background(), tt.delta); err != nil {
				t.Fatalf("Navigate failed: %v", err)
			}
			if got := f.state().Get(state.KeyLayoutPath, ""); got != f.layout(tt.want) {
				t.Errorf("Expected %s, got %s", f.layout(tt.want), got)
			}
		})
	}
}

func TestNavigateRecoversUnlistedLayout(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.paths.ConfigFile, `{"layer": "top"}`)
	if err := f.state().Set(state.KeyLayoutPath, "/elsewhere/old.jsonc"); err != nil {
		t.Fatal(err)
	}
	if err := f.build().Navigate(context.Background(), 1); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if got := f.state().Get(state.KeyLayoutPath, ""); got != f.layout("beta") {
		t.Errorf("Expected beta after alpha, got %s", got)
	}
}

func TestNavigateWithoutState(t *testing.T) {
	f := newFixture(t)
	if err := f.build().Navigate(context.Background(), 1); err == nil {
		t.Error("Expected error without a persisted layout")
	}
}

func TestSelectLayout(t *testing.T) {
	f := newFixture(t)
	f.write(t, filepath.Join(f.paths.BackupDir, "alpha_20250101_000000.jsonc"), "{}")
	if err := f.state().Set(state.KeyLayoutPath, f.layout("alpha")); err != nil {
		t.Fatal(err)
	}
	f.rofi = "beta"

	applied, err := f.build().SelectLayout(context.Background())
	if err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	if !applied {
		t.Error("Expected layout to be applied")
	}

	calls := f.rofiCalls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 menu, got %d", len(calls))
	}
	if calls[0].Stdin != "alpha\nbeta\nList all 1 Backup(s) saved\n" {
		t.Errorf("Unexpected menu %q", calls[0].Stdin)
	}
	if !slices.Contains(calls[0].Args, "alpha") {
		t.Errorf("Current layout not preselected: %v", calls[0].Args)
	}
	if got := f.read(t, f.paths.ConfigFile); got != `{"layer": "bottom"}` {
		t.Errorf("config not replaced, got %q", got)
	}
}

func TestSelectLayoutCancelled(t *testing.T) {
	f := newFixture(t)
	f.rofi = ""

	applied, err := f.build().SelectLayout(context.Background())
	if err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	if applied {
		t.Error("Cancelled menu must not apply a layout")
	}
	if !f.state().Exists() {
		t.Error("state file should be ensured after cancel")
	}
}

func TestSelectLayoutShowsBackups(t *testing.T) {
	f := newFixture(t)
	backup := filepath.Join(f.paths.BackupDir, "alpha_20250101_000000.jsonc")
	f.write(t, backup, `{"backup": 1}`)
	f.rofi = "List all 1 Backup(s) saved"

	m := f.build()
	// The second menu lists the backups.
	f.runner.RunFunc = func(ctx context.Context, path string, args []string, stdin io.Reader) ([]byte, []byte, error) {
		if path == "systemctl" {
			return nil, nil, os.ErrNotExist
		}
		if strings.HasSuffix(path, "/rofi") {
			if slices.Contains(args, "Select a backup to try:") {
				return []byte("backup/alpha_20250101_000000\n"), nil, nil
			}
			return []byte(f.rofi + "\n"), nil, nil
		}
		return nil, nil, nil
	}

	applied, err := m.SelectLayout(context.Background())
	if err != nil {
		t.Fatalf("SelectLayout failed: %v", err)
	}
	if applied {
		t.Error("Trying a backup is not a layout change")
	}
	if got := f.read(t, f.paths.ConfigFile); got != `{"backup": 1}` {
		t.Errorf("Expected backup installed, got %q", got)
	}
	if f.state().Get(state.KeyLayoutPath, "") == backup {
		t.Error("A tried backup must not be persisted")
	}
}

func TestShowBackupsEmpty(t *testing.T) {
	f := newFixture(t)
	if err := f.build().ShowBackups(context.Background()); err != nil {
		t.Fatalf("ShowBackups failed: %v", err)
	}
	if len(f.rofiCalls()) != 0 {
		t.Error("No menu expected without backups")
	}
	if notes := f.notifications(); !slices.Contains(notes, "No backup layouts found") {
		t.Errorf("Expected notification, got %v", notes)
	}
}

func TestSelectStyle(t *testing.T) {
	f := newFixture(t)
	if err := f.state().Set(state.KeyStylePath, filepath.Join(f.styles, "defaults.css")); err != nil {
		t.Fatal(err)
	}
	f.rofi = "alpha"

	if err := f.build().SelectStyle(context.Background()); err != nil {
		t.Fatalf("SelectStyle failed: %v", err)
	}
	want := filepath.Join(f.styles, "alpha.css")
	if got := f.state().Get(state.KeyStylePath, ""); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
	calls := f.rofiCalls()
	if len(calls) != 1 || calls[0].Stdin != "alpha\ndefaults\n" {
		t.Fatalf("Unexpected style menu: %v", calls)
	}
	if !slices.Contains(calls[0].Args, "defaults") {
		t.Errorf("Current style not preselected: %v", calls[0].Args)
	}
	if notes := f.notifications(); !slices.Contains(notes, "Style changed to alpha.css") {
		t.Errorf("Expected style notification, got %v", notes)
	}
}

func TestSelectStopsWhenLayoutCancelled(t *testing.T) {
	f := newFixture(t)
	f.rofi = ""
	if err := f.build().Select(context.Background()); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if n := len(f.rofiCalls()); n != 1 {
		t.Errorf("Expected only the layout menu, got %d menus", n)
	}
}

func TestListJSON(t *testing.T) {
	f := newFixture(t)
	f.write(t, filepath.Join(f.paths.BackupDir, "beta_20250101_000000.jsonc"), "{}")

	var buf bytes.Buffer
	if err := f.build().ListJSON(&buf); err != nil {
		t.Fatalf("ListJSON failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\n    \"layouts\"") {
		t.Errorf("Expected four-space indent, got:\n%s", buf.String())
	}

	var listing layout.Listing
	if err := json.Unmarshal(buf.Bytes(), &listing); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(listing.Layouts) != 2 || len(listing.Backups) != 1 {
		t.Errorf("Expected 2 layouts and 1 backup, got %d and %d", len(listing.Layouts), len(listing.Backups))
	}
	if listing.Layouts[0].Style != filepath.Join(f.styles, "alpha.css") {
		t.Errorf("Unexpected style for alpha: %s", listing.Layouts[0].Style)
	}
}

func TestUpdateConfigMissingSource(t *testing.T) {
	f := newFixture(t)
	if err := f.build().UpdateConfig(filepath.Join(f.root, "missing.jsonc")); err == nil {
		t.Error("Expected error for missing source")
	}
}

func TestDefaultRun(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.paths.ConfigFile, `{"layer": "bottom"}`)

	if err := f.build().DefaultRun(context.Background()); err != nil {
		t.Fatalf("DefaultRun failed: %v", err)
	}
	if !strings.Contains(f.read(t, f.paths.StyleFile), filepath.Join(f.styles, "defaults.css")) {
		t.Error("style.css should import beta's style")
	}
	for _, p := range []string{f.paths.IncludesFile, f.paths.BorderRadiusFile, f.paths.GlobalCSSFile, f.paths.UserStyleFile} {
		if !fileExists(p) {
			t.Errorf("Expected %s to be generated", p)
		}
	}
	if f.procs.spawned != 1 {
		t.Errorf("Expected waybar started, spawned %d", f.procs.spawned)
	}
}

func TestDefaultRunSkipsRestartUnderWatcher(t *testing.T) {
	f := newFixture(t)
	f.runner.RunFunc = func(ctx context.Context, path string, args []string, stdin io.Reader) ([]byte, []byte, error) {
		return nil, nil, nil
	}
	if err := f.build().DefaultRun(context.Background()); err != nil {
		t.Fatalf("DefaultRun failed: %v", err)
	}
	if f.procs.spawned != 0 {
		t.Error("an active watcher unit owns the restart")
	}
}

func TestHide(t *testing.T) {
	f := newFixture(t)
	m := f.build()
	if err := m.Hide(); err != nil {
		t.Errorf("Hide without a bar should only warn, got %v", err)
	}

	if _, err := f.procs.Spawn("waybar"); err != nil {
		t.Fatal(err)
	}
	if err := m.Hide(); err != nil {
		t.Fatalf("Hide failed: %v", err)
	}
	if !slices.Contains(f.procs.signals, syscall.SIGUSR1) {
		t.Errorf("Expected SIGUSR1, got %v", f.procs.signals)
	}
}

func TestKill(t *testing.T) {
	f := newFixture(t)
	if _, err := f.procs.Spawn("waybar"); err != nil {
		t.Fatal(err)
	}
	m := f.build()
	m.Kill(context.Background())
	if m.Supervisor().Running() {
		t.Error("bar still running after Kill")
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	if _, err := f.procs.Spawn("waybar"); err != nil {
		t.Fatal(err)
	}
	m := NewBuilder().
		WithPaths(f.paths).
		WithConfig(f.cfg).
		WithRunner(f.runner).
		WithProcesses(f.procs, f.procs).
		WithWatchSource(idleSource{}).
		Build()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Watch(ctx); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if m.Supervisor().Running() {
		t.Error("bar should be stopped when the watcher exits")
	}
}

type idleSource struct{}

func (idleSource) Next(ctx context.Context, _ time.Duration) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (idleSource) Close() error { return nil }

func TestDumpTemplates(t *testing.T) {
	f := newFixture(t)
	written, err := f.build().DumpTemplates(false)
	if err != nil {
		t.Fatalf("DumpTemplates failed: %v", err)
	}
	if len(written) == 0 {
		t.Fatal("Expected templates to be written")
	}
	for _, p := range written {
		if !strings.HasPrefix(p, f.paths.TemplatesDir) {
			t.Errorf("template written outside override dir: %s", p)
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
