package watcher

import (
	"path/filepath"
	"slices"
	"strings"
)

var watchedSuffixes = []string{".css", ".json", ".jsonc"}

// structuralFiles change the bar's module tree and need a full restart.
var structuralFiles = []string{"config.jsonc", "includes.json"}

// Action is how the bar reacts to a batch of changes.
type Action int

const (
	// ActionReload hot-reloads styles.
	ActionReload Action = iota
	// ActionRestart restarts the bar.
	ActionRestart
)

func (a Action) String() string {
	if a == ActionRestart {
		return "restart"
	}
	return "reload"
}

// Relevant reports whether a changed path should trigger a reaction.
// Hidden files, editor backups and swap files are ignored.
func Relevant(path string) bool {
	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") {
		return false
	}
	return slices.Contains(watchedSuffixes, strings.ToLower(filepath.Ext(name)))
}

// Filter keeps the relevant paths, in order.
func Filter(paths []string) []string {
	var out []string
	for _, p := range paths {
		if Relevant(p) {
			out = append(out, p)
		}
	}
	return out
}

// Classify decides the reaction to a set of changed paths.
func Classify(paths []string) Action {
	for _, p := range paths {
		if slices.Contains(structuralFiles, filepath.Base(p)) {
			return ActionRestart
		}
	}
	return ActionReload
}
