package config

import (
	"bufio"
	"os"
	"strings"
)

// SourceEnvFile reads a KEY=VALUE file and exports every pair into the
// process environment, overriding existing values. Lines starting with '#'
// and lines without '=' are ignored; an "export " prefix is accepted and
// surrounding quotes are stripped. A missing file is not an error.
func SourceEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		key, val, ok := parseLine(s.Text())
		if !ok {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

// ExportValue returns the value assigned to key in a shell-style config file
// such as $XDG_STATE_HOME/hypr/config. The first assignment wins.
func ExportValue(path, key string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		k, v, ok := parseLine(s.Text())
		if ok && k == key {
			return v, true
		}
	}
	return "", false
}

func parseLine(raw string) (key, val string, ok bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	if strings.HasPrefix(line, "export ") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	}
	i := strings.IndexByte(line, '=')
	if i <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	val = Unquote(strings.TrimSpace(line[i+1:]))
	return key, val, true
}

// Unquote strips one pair of matching single or double quotes.
func Unquote(val string) string {
	if len(val) >= 2 {
		if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
			return val[1 : len(val)-1]
		}
	}
	return val
}
