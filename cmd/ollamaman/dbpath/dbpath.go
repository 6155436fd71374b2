// Package dbpath resolves where the ollamaman SQLite database lives.
package dbpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvVar overrides the default database location.
const EnvVar = "OLLAMAMAN_DB"

const defaultFile = "ollamaman.db"

// ResolveDBPath picks the database path: the explicit value when set, then
// $OLLAMAMAN_DB, then ~/.ollamaman/ollamaman.db. A leading "~/" is expanded.
func ResolveDBPath(explicit string) (string, error) {
	if p := strings.TrimSpace(explicit); p != "" {
		return expandHome(p)
	}
	if p := strings.TrimSpace(os.Getenv(EnvVar)); p != "" {
		return expandHome(p)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ollamaman", defaultFile), nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not expand %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
