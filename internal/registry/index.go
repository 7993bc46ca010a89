// Package registry integrates with the external package registry: the git
// index listing every release, the metadata API, and version resolution.
package registry

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/docserve/internal/logfields"
)

// Index is a local clone of the registry index repository. The index is the
// crates.io layout: one file per crate, one JSON document per release line.
type Index struct {
	url  string
	path string
}

// NewIndex points at an index repository to be cloned into path.
func NewIndex(url, path string) *Index {
	return &Index{url: url, path: path}
}

// Sync clones the index repository, or pulls if a clone already exists.
func (i *Index) Sync(ctx context.Context) error {
	repo, err := git.PlainOpen(i.path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		slog.Info("cloning registry index", logfields.Path(i.path))
		_, err := git.PlainCloneContext(ctx, i.path, false, &git.CloneOptions{
			URL:          i.url,
			Depth:        1,
			SingleBranch: true,
		})
		if err != nil {
			return fmt.Errorf("clone index: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("index worktree: %w", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{SingleBranch: true})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pull index: %w", err)
	}
	return nil
}

// IndexRelease is one release line of a crate file in the index.
type IndexRelease struct {
	Name    string `json:"name"`
	Version string `json:"vers"`
	Yanked  bool   `json:"yanked"`
}

// Releases walks the index and parses every release line. Unparsable lines
// are skipped with a warning so one bad entry cannot block a sync.
func (i *Index) Releases() ([]IndexRelease, error) {
	var releases []IndexRelease
	err := filepath.WalkDir(i.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "config.json" || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		parsed, perr := parseCrateFile(p)
		if perr != nil {
			slog.Warn("skipping unreadable index file", logfields.Path(p), logfields.Error(perr))
			return nil
		}
		releases = append(releases, parsed...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk index: %w", err)
	}
	return releases, nil
}

func parseCrateFile(path string) ([]IndexRelease, error) {
	// #nosec G304 - path comes from walking the local index clone
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var releases []IndexRelease
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rel IndexRelease
		if err := json.Unmarshal([]byte(line), &rel); err != nil {
			slog.Warn("skipping malformed index line", logfields.Path(path), logfields.Error(err))
			continue
		}
		if rel.Name == "" || rel.Version == "" {
			continue
		}
		releases = append(releases, rel)
	}
	return releases, scanner.Err()
}
