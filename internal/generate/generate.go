// Package generate writes the files waybar reads: the active config, the
// style import file, the includes manifest and the derived CSS fragments.
// Every write goes through a temp file and rename so a running bar never
// observes a partial file.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/waybarctl/internal/config"
	"github.com/jmylchreest/waybarctl/internal/fsutil"
	"github.com/jmylchreest/waybarctl/internal/layout"
	"github.com/jmylchreest/waybarctl/internal/paths"
	"github.com/jmylchreest/waybarctl/internal/state"
	"github.com/jmylchreest/waybarctl/internal/template"
	"github.com/jmylchreest/waybarctl/internal/theme"
)

const (
	defaultIconSize     = 10
	defaultFontSize     = 10
	defaultFontFamily   = "monospace"
	defaultBorderRadius = 2
	defaultPosition     = "top"

	userStyleHeader = "/* User custom styles */\n"
)

// Environment and hypr config keys.
const (
	EnvIconSize     = "WAYBAR_ICON_SIZE"
	EnvScale        = "WAYBAR_SCALE"
	EnvFont         = "WAYBAR_FONT"
	EnvPosition     = "WAYBAR_POSITION"
	EnvBorderRadius = "WAYBAR_BORDER_RADIUS"
	EnvReloadFlag   = "reload_flag"
	EnvHyprBorder   = "hypr_border"
)

var ptPattern = regexp.MustCompile(`\d+pt`)

// iconKeys are rewritten wherever they already appear in a module definition.
var iconKeys = []string{"icon-size", "tooltip-icon-size", "size"}

// ErrStyleMissing means the requested style file does not exist.
var ErrStyleMissing = errors.New("style file does not exist")

// Options configures a Generator.
type Options struct {
	Paths     *paths.Paths
	Resolver  *layout.Resolver
	State     *state.Store
	Theme     *theme.Reader
	Templates *template.Loader
	Logger    hclog.Logger

	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Generator writes waybar's derived files.
type Generator struct {
	paths     *paths.Paths
	resolver  *layout.Resolver
	state     *state.Store
	theme     *theme.Reader
	templates *template.Loader
	logger    hclog.Logger
	getenv    func(string) string
}

// New creates a Generator.
func New(opts Options) *Generator {
	g := &Generator{
		paths:     opts.Paths,
		resolver:  opts.Resolver,
		state:     opts.State,
		theme:     opts.Theme,
		templates: opts.Templates,
		logger:    opts.Logger,
		getenv:    opts.Getenv,
	}
	if g.logger == nil {
		g.logger = hclog.NewNullLogger()
	}
	if g.getenv == nil {
		g.getenv = os.Getenv
	}
	if g.templates == nil {
		g.templates = template.New(opts.Paths.TemplatesDir)
	}
	return g
}

// CopyConfig installs src as the active config.jsonc.
func (g *Generator) CopyConfig(src string) error {
	if err := fsutil.CopyFileAtomic(src, g.paths.ConfigFile); err != nil {
		return fmt.Errorf("failed to copy config: %w", err)
	}
	g.logger.Debug("copied config", "from", src, "to", g.paths.ConfigFile)
	return nil
}

// WriteStyle rewrites style.css so that it imports source.
func (g *Generator) WriteStyle(source string) error {
	data := struct {
		Source string
		WalGTK string
	}{Source: source}
	if fsutil.IsFile(g.paths.WalGTKFile) {
		data.WalGTK = g.paths.WalGTKFile
	}

	content, err := g.templates.Render(template.StyleCSS, data)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(g.paths.StyleFile, content, 0o644); err != nil {
		return fmt.Errorf("failed to write style: %w", err)
	}
	g.logger.Debug("wrote style", "path", g.paths.StyleFile, "source", source)
	return nil
}

// UpdateStyle writes style.css for stylePath, or for the current layout's
// style when stylePath is empty. It also creates user-style.css if needed.
func (g *Generator) UpdateStyle(stylePath string) error {
	if !fsutil.Exists(g.paths.UserStyleFile) {
		if err := fsutil.WriteFileAtomic(g.paths.UserStyleFile, []byte(userStyleHeader), 0o644); err != nil {
			return fmt.Errorf("failed to create user style: %w", err)
		}
		g.logger.Debug("created user style", "path", g.paths.UserStyleFile)
	}
	if !fsutil.Exists(g.paths.ThemeStyleFile) {
		g.logger.Error("missing theme style, run 'hyprshell reload' to generate it", "path", g.paths.ThemeStyleFile)
	}

	if stylePath == "" {
		current, err := g.resolver.CurrentLayout()
		if err != nil {
			return fmt.Errorf("failed to get current layout: %w", err)
		}
		g.logger.Debug("detected current layout", "layout", current)
		if stylePath, err = g.resolver.ResolveStyle(current); err != nil {
			return err
		}
	}
	if !fsutil.IsFile(stylePath) {
		return fmt.Errorf("%w: %s", ErrStyleMissing, stylePath)
	}
	return g.WriteStyle(stylePath)
}

// configValue reads a key from the hypr user config, then the environment.
func (g *Generator) configValue(key string) string {
	if v, ok := config.ExportValue(g.paths.HyprConfigFile, key); ok {
		return v
	}
	return g.getenv(key)
}

func (g *Generator) stateValue(key string) string {
	if g.state == nil {
		return ""
	}
	v, _ := g.state.Lookup(key)
	return v
}

func (g *Generator) themeValue(ctx context.Context, variable string) string {
	if g.theme == nil {
		return ""
	}
	return g.theme.Query(ctx, variable)
}

// IconSize resolves the global icon size.
func (g *Generator) IconSize(ctx context.Context) int {
	return theme.ResolveInt(g.logger, "icon size", defaultIconSize,
		theme.Source{Name: EnvIconSize, Get: func() string { return g.configValue(EnvIconSize) }},
		theme.Source{Name: EnvScale, Get: func() string { return g.configValue(EnvScale) }},
		theme.Source{Name: "state " + state.KeyBarIconSize, Get: func() string { return g.stateValue(state.KeyBarIconSize) }},
		theme.Source{Name: "hypr.theme", Get: func() string { return g.themeValue(ctx, "$BAR_ICON_SIZE") }},
	)
}

// FontSize resolves the global font size.
func (g *Generator) FontSize(ctx context.Context) int {
	return theme.ResolveInt(g.logger, "font size", defaultFontSize,
		theme.Source{Name: EnvScale, Get: func() string { return g.configValue(EnvScale) }},
		theme.Source{Name: "state " + state.KeyBarFontSize, Get: func() string { return g.stateValue(state.KeyBarFontSize) }},
		theme.Source{Name: "hypr.theme", Get: func() string { return g.themeValue(ctx, "$BAR_FONT_SIZE") }},
	)
}

// FontFamily resolves the global font family.
func (g *Generator) FontFamily(ctx context.Context) string {
	return theme.ResolveString(g.logger, "font family", defaultFontFamily,
		theme.Source{Name: EnvFont, Get: func() string { return g.configValue(EnvFont) }},
		theme.Source{Name: "hypr.theme", Get: func() string { return g.themeValue(ctx, "$BAR_FONT") }},
		theme.Source{Name: "state " + state.KeyBarFont, Get: func() string { return g.stateValue(state.KeyBarFont) }},
	)
}

// BorderRadius resolves the border radius in points.
func (g *Generator) BorderRadius() int {
	sources := []theme.Source{
		{Name: EnvBorderRadius, Get: func() string { return g.getenv(EnvBorderRadius) }},
	}
	if g.getenv(EnvReloadFlag) == "1" {
		sources = append(sources, theme.Source{Name: "theme.conf", Get: func() string {
			v, _ := theme.Rounding(g.paths.ThemeConfFile)
			return v
		}})
	} else {
		sources = append(sources, theme.Source{Name: EnvHyprBorder, Get: func() string { return g.getenv(EnvHyprBorder) }})
	}
	if g.theme != nil {
		sources = append(sources, theme.Source{Name: "hypr.theme", Get: g.theme.Rounding})
	}

	radius := theme.ResolveInt(g.logger, "border radius", defaultBorderRadius, sources...)
	if radius < 0 {
		g.logger.Debug("negative border radius, using default", "value", radius)
		return defaultBorderRadius
	}
	return radius
}

// readIncludes loads includes.json, starting fresh when it is missing or
// unreadable.
func (g *Generator) readIncludes() map[string]any {
	data := map[string]any{"include": []any{}}
	raw, err := os.ReadFile(g.paths.IncludesFile)
	if err != nil {
		return data
	}
	parsed := map[string]any{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		g.logger.Warn("invalid includes file, regenerating", "path", g.paths.IncludesFile, "error", err)
		return data
	}
	return parsed
}

// moduleFiles lists module definitions with one of the given extensions,
// in search-dir order and sorted within each directory.
func (g *Generator) moduleFiles(exts ...string) []string {
	var files []string
	for _, dir := range g.paths.ModuleDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			g.logger.Debug("module directory unavailable, skipping", "dir", dir)
			continue
		}
		for _, ext := range exts {
			for _, e := range entries {
				if !e.IsDir() && filepath.Ext(e.Name()) == ext {
					files = append(files, filepath.Join(dir, e.Name()))
				}
			}
		}
	}
	return files
}

// UpdateIconSize merges every module definition into includes.json with
// its icon sizes scaled by the module's icon-size-multiplier.
func (g *Generator) UpdateIconSize(ctx context.Context) error {
	includes := g.readIncludes()
	size := g.IconSize(ctx)

	updated := 0
	for _, file := range g.moduleFiles(".json") {
		raw, err := os.ReadFile(file)
		if err != nil {
			g.logger.Warn("failed to read module", "path", file, "error", err)
			continue
		}
		modules := map[string]any{}
		if err := json.Unmarshal(raw, &modules); err != nil {
			g.logger.Warn("invalid module definition", "path", file, "error", err)
			continue
		}
		for name, def := range modules {
			if obj, ok := def.(map[string]any); ok {
				final := int(float64(size) * multiplier(obj))
				for _, key := range iconKeys {
					setExisting(obj, key, final)
				}
			}
			includes[name] = def
			updated++
		}
	}

	if err := fsutil.WriteJSONAtomic(g.paths.IncludesFile, includes); err != nil {
		return fmt.Errorf("failed to write includes: %w", err)
	}
	g.logger.Debug("updated icon sizes", "path", g.paths.IncludesFile, "entries", updated, "size", size)
	return nil
}

func multiplier(obj map[string]any) float64 {
	switch v := obj["icon-size-multiplier"].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 1
}

// setExisting replaces key wherever it already occurs inside v.
func setExisting(v any, key string, value int) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if k == key {
				t[k] = value
				continue
			}
			setExisting(child, key, value)
		}
	case []any:
		for _, item := range t {
			if _, ok := item.(map[string]any); ok {
				setExisting(item, key, value)
			}
		}
	}
}

// GenerateIncludes rewrites the include list and bar position in includes.json.
func (g *Generator) GenerateIncludes() error {
	includes := g.readIncludes()

	files := g.moduleFiles(".json", ".jsonc")
	list := make([]any, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if !seen[f] {
			seen[f] = true
			list = append(list, f)
		}
	}
	includes["include"] = list

	position := config.Unquote(g.configValue(EnvPosition))
	if position == "" {
		position = defaultPosition
	}
	includes["position"] = position

	if err := fsutil.WriteJSONAtomic(g.paths.IncludesFile, includes); err != nil {
		return fmt.Errorf("failed to write includes: %w", err)
	}
	g.logger.Debug("generated includes", "path", g.paths.IncludesFile, "entries", len(list), "position", position)
	return nil
}

// UpdateBorderRadius rewrites every "<n>pt" in border-radius.css. The file
// is seeded from the first includes directory that ships one, or from the
// embedded template.
func (g *Generator) UpdateBorderRadius() error {
	target := g.paths.BorderRadiusFile
	if !fsutil.Exists(target) {
		if err := g.seedBorderRadius(target); err != nil {
			return err
		}
	}

	radius := g.BorderRadius()
	content, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("failed to read border radius css: %w", err)
	}
	updated := ptPattern.ReplaceAll(content, []byte(strconv.Itoa(radius)+"pt"))
	if slices.Equal(updated, content) {
		g.logger.Debug("border radius unchanged, skipping write", "radius", radius)
		return nil
	}
	if err := fsutil.WriteFileAtomic(target, updated, 0o644); err != nil {
		return fmt.Errorf("failed to write border radius css: %w", err)
	}
	g.logger.Debug("updated border radius", "path", target, "radius", radius)
	return nil
}

func (g *Generator) seedBorderRadius(target string) error {
	for _, dir := range g.paths.IncludesDirs {
		src := filepath.Join(dir, filepath.Base(target))
		if src == target || !fsutil.IsFile(src) {
			continue
		}
		g.logger.Debug("seeding border radius css", "from", src)
		return fsutil.CopyFileAtomic(src, target)
	}

	content, _, err := g.templates.Load(template.BorderRadiusCSS)
	if err != nil {
		return err
	}
	g.logger.Debug("seeding border radius css from template")
	return fsutil.WriteFileAtomic(target, content, 0o644)
}

// UpdateGlobalCSS regenerates global.css with the resolved font settings.
func (g *Generator) UpdateGlobalCSS(ctx context.Context) error {
	data := struct {
		FontFamily string
		FontSize   int
	}{
		FontFamily: cssString(g.FontFamily(ctx)),
		FontSize:   g.FontSize(ctx),
	}
	content, err := g.templates.Render(template.GlobalCSS, data)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(g.paths.GlobalCSSFile, content, 0o644); err != nil {
		return fmt.Errorf("failed to write global css: %w", err)
	}
	g.logger.Debug("generated global css", "path", g.paths.GlobalCSSFile, "size", data.FontSize, "family", data.FontFamily)
	return nil
}

// UpdateAll regenerates every derived file. All steps run; the errors are joined.
func (g *Generator) UpdateAll(ctx context.Context) error {
	return errors.Join(
		g.UpdateIconSize(ctx),
		g.UpdateBorderRadius(),
		g.GenerateIncludes(),
		g.UpdateGlobalCSS(ctx),
	)
}

// cssString escapes s for use inside a double-quoted CSS string. Control
// characters, which a CSS string cannot hold unescaped, become spaces.
func cssString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case unicode.IsControl(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
