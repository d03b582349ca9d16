package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// hiddenDirEntry is the gitignore line this package ensures is present.
const hiddenDirEntry = ".blameprompt/"

// EnsureIgnored appends the staging hidden directory to repoRoot's
// .gitignore if it isn't already listed, creating .gitignore if absent.
// Safe to call on every write: it is a no-op once the entry exists.
func EnsureIgnored(repoRoot string) error {
	path := filepath.Join(repoRoot, ".gitignore")

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read .gitignore: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == hiddenDirEntry || trimmed == strings.TrimSuffix(hiddenDirEntry, "/") {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open .gitignore: %w", err)
	}
	defer f.Close()

	prefix := "\n"
	if len(data) == 0 {
		prefix = ""
	}
	if _, err := fmt.Fprintf(f, "%s# blameprompt staging (auto-generated)\n%s\n", prefix, hiddenDirEntry); err != nil {
		return fmt.Errorf("write .gitignore: %w", err)
	}
	return nil
}
