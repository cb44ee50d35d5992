// Package layout discovers waybar layout (*.jsonc) and style (*.css) files
// and works out which layout is currently active.
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/waybarctl/internal/fsutil"
	"github.com/jmylchreest/waybarctl/internal/state"
)

const (
	layoutExt    = ".jsonc"
	styleExt     = ".css"
	defaultStyle = "defaults.css"
	unknownName  = "unknown"
)

var (
	// ErrNoLayouts means no layout file exists in any search directory.
	ErrNoLayouts = errors.New("no layout files found")

	// ErrLayoutNotFound means layouts exist but none matches the request.
	ErrLayoutNotFound = errors.New("layout not found")

	// ErrNoStyle means neither a matching style nor defaults.css exists.
	ErrNoStyle = errors.New("no style found and no defaults.css in any style directory")
)

// Entry pairs a layout with the style resolved for it.
type Entry struct {
	Layout string `json:"layout"`
	Name   string `json:"name"`
	Style  string `json:"style"`
}

// Backup is a snapshot of a previous config.jsonc.
type Backup struct {
	Layout string `json:"layout"`
	Name   string `json:"name"`
}

// Listing is the result of List.
type Listing struct {
	Layouts []Entry  `json:"layouts"`
	Backups []Backup `json:"backups"`
}

// Options configures a Resolver.
type Options struct {
	LayoutDirs []string
	StyleDirs  []string
	Ignore     []string

	// ConfigFile is the active config.jsonc waybar reads.
	ConfigFile string
	BackupDir  string

	State  *state.Store
	Logger hclog.Logger
	Now    func() time.Time
}

// Resolver answers layout and style questions against the filesystem.
// Nothing is cached; each call rescans the search directories.
type Resolver struct {
	layoutDirs []string
	styleDirs  []string
	ignore     []string
	configFile string
	backupDir  string
	state      *state.Store
	logger     hclog.Logger
	now        func() time.Time
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	r := &Resolver{
		layoutDirs: opts.LayoutDirs,
		styleDirs:  opts.StyleDirs,
		ignore:     opts.Ignore,
		configFile: opts.ConfigFile,
		backupDir:  opts.BackupDir,
		state:      opts.State,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if r.logger == nil {
		r.logger = hclog.NewNullLogger()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// BaseName returns a layout's file name without the .jsonc suffix.
func BaseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), layoutExt)
}

// IsBackup reports whether path lives under a backup directory.
func IsBackup(path string) bool {
	return strings.Contains(filepath.ToSlash(path), "/backup/")
}

// FindLayouts returns every layout file under the layout directories,
// including backups, sorted and without duplicates.
func (r *Resolver) FindLayouts() []string {
	var found []string
	for _, dir := range r.layoutDirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Missing or unreadable directories are simply skipped.
				if d == nil || d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			name := d.Name()
			if !strings.HasSuffix(name, layoutExt) || slices.Contains(r.ignore, name) {
				return nil
			}
			found = append(found, path)
			return nil
		})
	}
	slices.Sort(found)
	return slices.Compact(found)
}

// candidates returns the non-backup layouts.
func (r *Resolver) candidates() []string {
	var out []string
	for _, l := range r.FindLayouts() {
		if !IsBackup(l) {
			out = append(out, l)
		}
	}
	return out
}

// relativeName names a layout by its path below the owning layout directory.
func (r *Resolver) relativeName(path string) string {
	for _, dir := range r.layoutDirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		return strings.TrimSuffix(rel, layoutExt)
	}
	return BaseName(path)
}

// List returns all layouts with their styles, and the backups separately.
// A layout whose style cannot be resolved is listed with an empty style.
func (r *Resolver) List() *Listing {
	listing := &Listing{Layouts: []Entry{}, Backups: []Backup{}}
	for _, l := range r.FindLayouts() {
		name := r.relativeName(l)
		if IsBackup(l) {
			listing.Backups = append(listing.Backups, Backup{Layout: l, Name: name})
			continue
		}
		style, err := r.ResolveStyle(l)
		if err != nil {
			r.logger.Warn("no style for layout", "layout", l, "error", err)
			style = ""
		}
		listing.Layouts = append(listing.Layouts, Entry{Layout: l, Name: name, Style: style})
	}
	return listing
}

// Lookup finds a non-backup layout by path, relative name or basename.
func (r *Resolver) Lookup(layout string) (Entry, error) {
	listing := r.List()
	if len(listing.Layouts) == 0 {
		return Entry{}, ErrNoLayouts
	}
	for _, e := range listing.Layouts {
		if layout == e.Layout || layout == e.Name {
			return e, nil
		}
	}
	for _, e := range listing.Layouts {
		if layout == BaseName(e.Layout) {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrLayoutNotFound, layout)
}

// ByBaseName returns the first non-backup layout with the given basename.
func (r *Resolver) ByBaseName(name string) (string, bool) {
	for _, l := range r.candidates() {
		if BaseName(l) == name {
			return l, true
		}
	}
	return "", false
}

// First returns the first non-backup layout in sorted order.
func (r *Resolver) First() (string, error) {
	layouts := r.candidates()
	if len(layouts) == 0 {
		return "", ErrNoLayouts
	}
	return layouts[0], nil
}

// Neighbour returns the layout delta steps away from current, wrapping
// around the sorted list. Backups are never selected.
func (r *Resolver) Neighbour(current string, delta int) (string, error) {
	layouts := r.candidates()
	if len(layouts) == 0 {
		return "", ErrNoLayouts
	}
	idx := slices.Index(layouts, current)
	if idx < 0 {
		return "", fmt.Errorf("%w: %s", ErrLayoutNotFound, current)
	}
	n := len(layouts)
	return layouts[((idx+delta)%n+n)%n], nil
}

// ResolveStyle picks the style for a layout. Within each style directory it
// tries the layout name, the name before any '#', then the parent directory
// name; failing all of those it uses the first defaults.css found.
func (r *Resolver) ResolveStyle(layoutPath string) (string, error) {
	name := BaseName(layoutPath)
	dirName := filepath.Base(filepath.Dir(layoutPath))
	prefix, _, _ := strings.Cut(name, "#")

	for _, dir := range r.styleDirs {
		if exact := filepath.Join(dir, name+styleExt); fsutil.IsFile(exact) {
			r.logger.Debug("resolved style", "style", exact)
			return exact, nil
		}
		for _, candidate := range []string{name, prefix, dirName} {
			if candidate == "" || candidate == "." || candidate == string(filepath.Separator) {
				continue
			}
			if match := firstMatch(dir, candidate); match != "" {
				r.logger.Debug("resolved style", "style", match, "by", candidate)
				return match, nil
			}
		}
	}

	for _, dir := range r.styleDirs {
		p := filepath.Join(dir, defaultStyle)
		if fsutil.IsFile(p) {
			r.logger.Debug("using default style", "style", p)
			return p, nil
		}
	}
	return "", ErrNoStyle
}

// firstMatch returns the lexically first "<prefix>*.css" file in dir.
func firstMatch(dir, prefix string) string {
	matches, err := filepath.Glob(filepath.Join(globEscape(dir), globEscape(prefix)+"*"+styleExt))
	if err != nil {
		return ""
	}
	for _, m := range matches {
		if fsutil.IsFile(m) {
			return m
		}
	}
	return ""
}

func globEscape(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Backup snapshots the active config into the backup directory as
// <name>_<timestamp>.jsonc. It returns "" when there is no config to save.
func (r *Resolver) Backup(name string) (string, error) {
	if !fsutil.IsFile(r.configFile) {
		r.logger.Debug("no config file to back up")
		return "", nil
	}
	name = filepath.Base(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = unknownName
	}
	dst := filepath.Join(r.backupDir, fmt.Sprintf("%s_%s%s", name, r.now().Format("20060102_150405"), layoutExt))
	if err := fsutil.CopyFileAtomic(r.configFile, dst); err != nil {
		return "", fmt.Errorf("failed to back up config: %w", err)
	}
	r.logger.Debug("created backup", "path", dst)
	return dst, nil
}

// Persist records layout as the active one in the state store.
func (r *Resolver) Persist(layoutPath string) error {
	if r.state == nil {
		return nil
	}
	return r.state.SetAll(
		[2]string{state.KeyLayoutPath, layoutPath},
		[2]string{state.KeyLayoutName, BaseName(layoutPath)},
	)
}

// CurrentLayout determines the active layout:
//
//  1. the persisted path, if it still exists
//  2. the persisted name, matched against the discovered layouts
//  3. a layout whose bytes equal the active config (first in sorted order)
//  4. the first layout, after backing up an unrecognised active config
//
// Tiers 3 and 4 persist their answer; tier 4 also copies the layout over
// the active config.
func (r *Resolver) CurrentLayout() (string, error) {
	if r.state != nil {
		if p, ok := r.state.Lookup(state.KeyLayoutPath); ok && p != "" && fsutil.IsFile(p) {
			r.logger.Debug("current layout from state", "layout", p)
			return p, nil
		}
	}

	layouts := r.candidates()
	if len(layouts) == 0 {
		r.logger.Error("no layout files found", "dirs", r.layoutDirs)
		return "", ErrNoLayouts
	}

	if r.state != nil {
		if name, ok := r.state.Lookup(state.KeyLayoutName); ok && name != "" {
			if l, ok := r.ByBaseName(name); ok {
				r.logger.Debug("current layout by name", "layout", l)
				return l, nil
			}
		}
	}

	if !fsutil.IsFile(r.configFile) {
		first := layouts[0]
		r.logger.Debug("config file missing, using first layout", "layout", first)
		return first, r.install(first)
	}

	configHash, err := fsutil.HashFile(r.configFile)
	if err == nil {
		for _, l := range layouts {
			if h, err := fsutil.HashFile(l); err == nil && h == configHash {
				r.logger.Debug("current layout by hash", "layout", l)
				return l, r.Persist(l)
			}
		}
	}

	r.logger.Debug("active config matches no layout, backing it up")
	if _, err := r.Backup(unknownName); err != nil {
		r.logger.Error("backup failed", "error", err)
	}
	first := layouts[0]
	return first, r.install(first)
}

// install persists layout and copies it over the active config.
func (r *Resolver) install(layoutPath string) error {
	if err := r.Persist(layoutPath); err != nil {
		return err
	}
	if err := fsutil.CopyFileAtomic(layoutPath, r.configFile); err != nil {
		return fmt.Errorf("failed to install layout: %w", err)
	}
	return nil
}

