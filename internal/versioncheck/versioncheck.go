// Package versioncheck looks up whether a newer blameprompt release is
// available and prints a one-line notice, throttled to once per 24h via a
// cache under the user's home directory. Every failure is silent: a version
// check must never interrupt or fail a CLI invocation.
package versioncheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/blameprompt/blameprompt/internal/logging"
)

const (
	globalConfigDirName = ".blameprompt"
	cacheFileName       = "version_check.json"
	checkInterval       = 24 * time.Hour
	httpTimeout         = 2 * time.Second
	githubAPIURL        = "https://api.github.com/repos/blameprompt/blameprompt/releases/latest"
)

// VersionCache persists the last time a check ran, so every invocation
// doesn't hit the network.
type VersionCache struct {
	LastCheckTime time.Time `json:"last_check_time"`
}

type githubRelease struct {
	TagName    string `json:"tag_name"`
	Prerelease bool   `json:"prerelease"`
}

// CheckAndNotify checks for and announces a newer release, silently, at
// most once per checkInterval. Skipped entirely for hidden commands and dev
// builds.
func CheckAndNotify(cmd *cobra.Command, currentVersion string) {
	if cmd.Hidden {
		return
	}
	if currentVersion == "" || currentVersion == "dev" {
		return
	}

	if err := ensureConfigDir(); err != nil {
		return
	}

	cache, err := loadCache()
	if err != nil {
		cache = &VersionCache{}
	}
	if time.Since(cache.LastCheckTime) < checkInterval {
		return
	}

	latest, err := fetchLatestVersion()

	cache.LastCheckTime = time.Now()
	if saveErr := saveCache(cache); saveErr != nil {
		logging.Debug(context.Background(), "version check: failed to save cache", "error", saveErr.Error())
	}
	if err != nil {
		logging.Debug(context.Background(), "version check: failed to fetch latest version", "error", err.Error())
		return
	}

	if isOutdated(currentVersion, latest) {
		printNotification(cmd, currentVersion, latest)
	}
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, globalConfigDirName), nil
}

func ensureConfigDir() error {
	dir, err := configDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

func cachePath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, cacheFileName), nil
}

func loadCache() (*VersionCache, error) {
	path, err := cachePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read version cache: %w", err)
	}
	var c VersionCache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse version cache: %w", err)
	}
	return &c, nil
}

func saveCache(c *VersionCache) error {
	path, err := cachePath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal version cache: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".version_check_tmp_")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write version cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func fetchLatestVersion() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubAPIURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "blameprompt-cli")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch release info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var release githubRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return "", fmt.Errorf("parse release: %w", err)
	}
	if release.Prerelease {
		return "", errors.New("latest release is a prerelease")
	}
	if release.TagName == "" {
		return "", errors.New("empty tag name")
	}
	return release.TagName, nil
}

func isOutdated(current, latest string) bool {
	if !strings.HasPrefix(current, "v") {
		current = "v" + current
	}
	if !strings.HasPrefix(latest, "v") {
		latest = "v" + latest
	}
	return semver.Compare(current, latest) < 0
}

func printNotification(cmd *cobra.Command, current, latest string) {
	fmt.Fprintf(cmd.OutOrStderr(), "\nblameprompt: a newer version is available: %s (current: %s)\n", latest, current)
}
