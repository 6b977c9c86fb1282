// Package snap reads configuration that snapd provides when pandatv runs as a snap, and falls
// back to plain environment variables everywhere else.
package snap

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/canonical/go-snapctl"
)

// Active reports whether the process runs inside a snap.
func Active() bool {
	return os.Getenv("SNAP_NAME") != ""
}

// LoadEnv exports the KEY=value lines of filename in SNAP_COMMON. Blank lines and lines
// starting with # are skipped, values may be quoted. Outside a snap, or when the file does not
// exist, it does nothing.
func LoadEnv(filename string) error {
	if !Active() {
		return nil
	}

	snapCommon := os.Getenv("SNAP_COMMON")
	if snapCommon == "" {
		return nil
	}

	file, err := os.Open(filepath.Join(snapCommon, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if err := os.Setenv(strings.TrimSpace(key), value); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// Get returns the value of a snap configuration option, or of the environment variable key
// outside a snap.
func Get(key string) (string, error) {
	if !Active() {
		return os.Getenv(key), nil
	}

	return snapctl.Get(key).Run()
}

// GetOr is Get with a default for unset or unreadable options.
func GetOr(key, def string) string {
	value, err := Get(key)
	if err != nil || value == "" {
		return def
	}
	return value
}
