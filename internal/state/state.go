// Package state implements the flat KEY=VALUE state file shared with the
// rest of the Hyprland session scripts.
package state

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/waybarctl/internal/fsutil"
)

// Keys owned by waybarctl.
const (
	KeyLayoutPath = "WAYBAR_LAYOUT_PATH"
	KeyLayoutName = "WAYBAR_LAYOUT_NAME"
	KeyStylePath  = "WAYBAR_STYLE_PATH"
)

// Keys written by other session tools and only read here.
const (
	KeyTheme       = "HYPR_THEME"
	KeyBarFont     = "BAR_FONT"
	KeyBarFontSize = "BAR_FONT_SIZE"
	KeyBarIconSize = "BAR_ICON_SIZE"
)

// Store reads and rewrites a KEY=VALUE state file.
// It holds no cached data: every call goes back to disk.
type Store struct {
	path string
}

// New returns a Store backed by path. The file need not exist.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the state file exists.
func (s *Store) Exists() bool {
	return fsutil.IsFile(s.path)
}

// Empty reports whether the state file is missing or zero length.
func (s *Store) Empty() bool {
	info, err := os.Stat(s.path)
	return err != nil || info.Size() == 0
}

// Lookup returns the value of the first line starting with key=.
// An unreadable file has no keys.
func (s *Store) Lookup(key string) (string, bool) {
	entries, _ := s.read()
	for _, e := range entries {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

// Get returns the value for key, or def when the key is absent.
func (s *Store) Get(key, def string) string {
	if v, ok := s.Lookup(key); ok {
		return v
	}
	return def
}

// Set rewrites the file with key=value, keeping the first occurrence of every
// other key and dropping any previous value for key.
func (s *Store) Set(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, "=\n") {
		return fmt.Errorf("invalid state key %q", key)
	}
	if strings.Contains(value, "\n") {
		return fmt.Errorf("state value for %s contains a newline", key)
	}

	entries, err := s.read()
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var buf bytes.Buffer
	seen := map[string]bool{key: true}
	for _, e := range entries {
		if seen[e.key] {
			continue
		}
		seen[e.key] = true
		fmt.Fprintf(&buf, "%s=%s\n", e.key, e.value)
	}
	fmt.Fprintf(&buf, "%s=%s\n", key, strings.TrimSpace(value))

	if err := fsutil.WriteFileAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// SetAll applies Set for each pair in order.
func (s *Store) SetAll(pairs ...[2]string) error {
	for _, p := range pairs {
		if err := s.Set(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// EnsureEntries records current as the layout, its basename as the layout
// name and style as the style, but only for the keys the file lacks.
// Present keys keep their values.
func (s *Store) EnsureEntries(current, style string) error {
	want := [][2]string{
		{KeyLayoutPath, current},
		{KeyLayoutName, strings.TrimSuffix(filepath.Base(current), ".jsonc")},
		{KeyStylePath, style},
	}
	var missing [][2]string
	for _, p := range want {
		if _, ok := s.Lookup(p[0]); !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return s.SetAll(missing...)
}

type entry struct {
	key   string
	value string
}

// read parses the file, skipping blank and malformed lines. A missing file
// reads as empty. Lines have no length limit.
func (s *Store) read() ([]entry, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []entry
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			key, value, ok := strings.Cut(line, "=")
			if ok && strings.TrimSpace(key) != "" {
				entries = append(entries, entry{key: strings.TrimSpace(key), value: strings.TrimSpace(value)})
			}
		}
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
