// Package paths resolves every file location waybarctl reads or writes.
package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Roots are the XDG base directories everything else derives from.
type Roots struct {
	ConfigHome string
	DataHome   string
	StateHome  string
	CacheHome  string
	RuntimeDir string
	DataDirs   []string
	TempDir    string
	UID        int
}

// Paths holds the resolved file layout.
type Paths struct {
	Roots Roots

	LayoutDirs   []string
	StyleDirs    []string
	ModuleDirs   []string
	IncludesDirs []string

	WaybarDir        string
	ConfigFile       string
	StyleFile        string
	UserStyleFile    string
	ThemeStyleFile   string
	IncludesDir      string
	IncludesFile     string
	BorderRadiusFile string
	GlobalCSSFile    string
	BackupDir        string

	StateFile      string
	HyprConfigFile string
	HyprEnvFile    string
	ThemesDir      string
	ThemeConfFile  string
	WalGTKFile     string

	ThemeLockFile   string
	HiddenStateFile string
	BarLockFile     string

	ToolConfigFile string
	TemplatesDir   string
}

// DefaultRoots reads the XDG roots of the current user.
func DefaultRoots() Roots {
	return Roots{
		ConfigHome: xdg.ConfigHome,
		DataHome:   xdg.DataHome,
		StateHome:  xdg.StateHome,
		CacheHome:  xdg.CacheHome,
		RuntimeDir: xdg.RuntimeDir,
		DataDirs:   xdg.DataDirs,
		TempDir:    os.TempDir(),
		UID:        os.Getuid(),
	}
}

// Default returns the layout for the current user.
func Default() *Paths {
	return New(DefaultRoots())
}

// New derives the full layout from r.
func New(r Roots) *Paths {
	waybar := filepath.Join(r.ConfigHome, "waybar")
	includes := filepath.Join(waybar, "includes")
	themes := filepath.Join(r.ConfigHome, "hypr", "themes")

	return &Paths{
		Roots: r,

		LayoutDirs:   searchDirs(r, "layouts", true),
		StyleDirs:    searchDirs(r, "styles", false),
		ModuleDirs:   searchDirs(r, "modules", true),
		IncludesDirs: searchDirs(r, "includes", true),

		WaybarDir:        waybar,
		ConfigFile:       filepath.Join(waybar, "config.jsonc"),
		StyleFile:        filepath.Join(waybar, "style.css"),
		UserStyleFile:    filepath.Join(waybar, "user-style.css"),
		ThemeStyleFile:   filepath.Join(waybar, "theme.css"),
		IncludesDir:      includes,
		IncludesFile:     filepath.Join(includes, "includes.json"),
		BorderRadiusFile: filepath.Join(includes, "border-radius.css"),
		GlobalCSSFile:    filepath.Join(includes, "global.css"),
		BackupDir:        filepath.Join(waybar, "layouts", "backup"),

		StateFile:      filepath.Join(r.StateHome, "hypr", "staterc"),
		HyprConfigFile: filepath.Join(r.StateHome, "hypr", "config"),
		HyprEnvFile:    filepath.Join(r.RuntimeDir, "hypr", "environment"),
		ThemesDir:      themes,
		ThemeConfFile:  filepath.Join(themes, "theme.conf"),
		WalGTKFile:     filepath.Join(r.CacheHome, "wal", "colors-gtk.css"),

		ThemeLockFile:   filepath.Join(r.RuntimeDir, "theme-update.lock"),
		HiddenStateFile: filepath.Join(r.RuntimeDir, "waybar-hidden"),
		BarLockFile:     filepath.Join(r.TempDir, fmt.Sprintf("waybar-%d.lock", r.UID)),

		ToolConfigFile: filepath.Join(r.ConfigHome, "waybarctl", "config.toml"),
		TemplatesDir:   filepath.Join(r.ConfigHome, "waybarctl", "templates"),
	}
}

// searchDirs lists user config, user data and (optionally) the system data
// dirs for one waybar subdirectory, most specific first, without duplicates.
func searchDirs(r Roots, sub string, system bool) []string {
	dirs := []string{
		filepath.Join(r.ConfigHome, "waybar", sub),
		filepath.Join(r.DataHome, "waybar", sub),
	}
	if system {
		for _, d := range r.DataDirs {
			dirs = append(dirs, filepath.Join(d, "waybar", sub))
		}
	}

	seen := make(map[string]bool, len(dirs))
	out := dirs[:0]
	for _, d := range dirs {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
