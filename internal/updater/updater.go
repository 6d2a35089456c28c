// Package updater replaces the running mediahub binary with the latest GitHub release.
package updater

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/guiyumin/mediahub/internal/core/version"
)

const (
	repoOwner = "guiyumin"
	repoName  = "mediahub"
)

// ErrDevBuild is returned when the running binary carries no release version.
var ErrDevBuild = errors.New("development build, install a release to enable updates")

// currentVersion strips the leading "v" the release tags carry.
func currentVersion() (string, error) {
	v := strings.TrimPrefix(strings.TrimSpace(version.Version), "v")
	if v == "" || v == "dev" {
		return "", ErrDevBuild
	}
	return v, nil
}

func newUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, err
	}
	return selfupdate.NewUpdater(selfupdate.Config{
		Source: source,
	})
}

// CheckUpdate reports the latest release and whether it is newer than the running binary.
func CheckUpdate(ctx context.Context) (*selfupdate.Release, bool, error) {
	current, err := currentVersion()
	if err != nil {
		return nil, false, err
	}

	updater, err := newUpdater()
	if err != nil {
		return nil, false, err
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return nil, false, fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	return latest, !latest.LessOrEqual(current), nil
}

// Update installs the latest release over the running executable.
// It returns the installed version, or "" when already up to date.
func Update(ctx context.Context) (string, error) {
	current, err := currentVersion()
	if err != nil {
		return "", err
	}

	updater, err := newUpdater()
	if err != nil {
		return "", err
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return "", fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return "", fmt.Errorf("no releases found for %s/%s", repoOwner, repoName)
	}
	if latest.LessOrEqual(current) {
		return "", nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return "", fmt.Errorf("failed to update: %w", err)
	}
	return latest.Version(), nil
}
