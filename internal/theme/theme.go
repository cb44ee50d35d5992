// Package theme reads values declared by the selected Hyprland theme and
// resolves settings from an ordered list of sources.
package theme

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/waybarctl/internal/config"
	"github.com/jmylchreest/waybarctl/internal/state"
	"github.com/jmylchreest/waybarctl/internal/sysexec"
)

const queryTimeout = 5 * time.Second

// Reader queries the hypr.theme of the theme named by HYPR_THEME.
type Reader struct {
	themesDir string
	state     *state.Store
	runner    sysexec.ProcessRunner
	logger    hclog.Logger
}

// NewReader creates a Reader. themesDir holds one directory per theme.
func NewReader(themesDir string, st *state.Store, runner sysexec.ProcessRunner, logger hclog.Logger) *Reader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Reader{themesDir: themesDir, state: st, runner: runner, logger: logger}
}

// Name returns the selected theme, or "" when none is recorded.
func (r *Reader) Name() string {
	if r.state == nil {
		return ""
	}
	name, _ := r.state.Lookup(state.KeyTheme)
	return config.Unquote(name)
}

// File returns the selected theme's hypr.theme, or "" if it does not exist.
func (r *Reader) File() string {
	name := r.Name()
	if name == "" {
		r.logger.Debug("no theme name in state file")
		return ""
	}
	path := filepath.Join(r.themesDir, name, "hypr.theme")
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("hypr.theme not found", "path", path)
		return ""
	}
	return path
}

// Query returns the value of a theme variable such as "$BAR_FONT".
// It asks hyq when available and otherwise scans the file itself.
func (r *Reader) Query(ctx context.Context, variable string) string {
	file := r.File()
	if file == "" {
		return ""
	}

	if r.runner != nil {
		if hyq, err := r.runner.LookPath("hyq"); err == nil {
			ctx, cancel := context.WithTimeout(ctx, queryTimeout)
			defer cancel()

			stdout, stderr, err := r.runner.Run(ctx, hyq, []string{file, "--query", variable}, nil)
			if err != nil {
				r.logger.Debug("hyq failed", "variable", variable, "error", err, "stderr", strings.TrimSpace(string(stderr)))
				return ""
			}
			return lastValue(string(stdout))
		}
	}

	v, _ := ScanVariable(file, variable)
	return v
}

// Rounding returns the rounding value declared in the selected hypr.theme.
func (r *Reader) Rounding() string {
	file := r.File()
	if file == "" {
		return ""
	}
	v, _ := Rounding(file)
	return v
}

// lastValue picks the last non-empty, non-comment line of hyq output.
func lastValue(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" && !strings.HasPrefix(line, "#") {
			return line
		}
	}
	return ""
}

// ScanVariable finds "variable = value" in a hyprlang file.
func ScanVariable(path, variable string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		key, val, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != variable {
			continue
		}
		if i := strings.Index(val, "#"); i >= 0 {
			val = val[:i]
		}
		return config.Unquote(strings.TrimSpace(val)), true
	}
	return "", false
}

// Rounding returns the first word after '=' on the first line of path that
// mentions "rounding".
func Rounding(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if !strings.Contains(line, "rounding") {
			continue
		}
		_, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields := strings.Fields(val)
		if len(fields) == 0 {
			return "", false
		}
		return fields[0], true
	}
	return "", false
}

// Source is one candidate location for a setting.
type Source struct {
	Name string
	Get  func() string
}

// ResolveInt returns the first source value that parses as an integer.
func ResolveInt(logger hclog.Logger, what string, def int, sources ...Source) int {
	for _, src := range sources {
		raw := strings.TrimSpace(src.Get())
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			logger.Debug("invalid value", "setting", what, "source", src.Name, "value", raw)
			continue
		}
		logger.Debug("resolved setting", "setting", what, "source", src.Name, "value", v)
		return v
	}
	logger.Debug("using default", "setting", what, "value", def)
	return def
}

// ResolveString returns the first non-empty source value with quotes removed.
func ResolveString(logger hclog.Logger, what, def string, sources ...Source) string {
	for _, src := range sources {
		raw := config.Unquote(strings.TrimSpace(src.Get()))
		if raw == "" {
			continue
		}
		logger.Debug("resolved setting", "setting", what, "source", src.Name, "value", raw)
		return raw
	}
	logger.Debug("using default", "setting", what, "value", def)
	return def
}
