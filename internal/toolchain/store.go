package toolchain

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/fault"
)

// How many directory levels below the store root are searched for version
// folders. Archives that nest their tree one or two levels deep are still
// found; deeper trees are not.
const maxSearchDepth = 3

// A local directory of toolchain trees named by canonical version.
type Store struct {
	Root string // Directory holding the version folders.
}

// A version found in the store.
type Installation struct {
	Version Version `json:"version"`
	Path    string  `json:"path"`
}

// Creates a store rooted at root. The directory need not exist yet.
func NewStore(root string) *Store {
	return &Store{Root: root}
}

// Returns the canonical location of v directly under the store root.
func (s *Store) Path(v Version) string {
	return filepath.Join(s.Root, v.String())
}

// Locates the toolchain tree for v.
//
// A directory directly under the root is preferred. Otherwise the store is
// searched up to [maxSearchDepth] levels deep for a directory named by the
// canonical version string, in lexical order.
func (s *Store) Find(v Version) (string, bool) {
	direct := s.Path(v)
	if isDir(direct) {
		return direct, true
	}

	name := v.String()
	var found string

	s.walk(func(path string, version Version, _ int) bool {
		if version.String() == name {
			found = path
			return false
		}
		return true
	})

	return found, found != ""
}

// Reports whether a tree for v exists anywhere in the store.
func (s *Store) IsInstalled(v Version) bool {
	_, ok := s.Find(v)
	return ok
}

// Lists installed versions, newest first.
//
// Versions nested below other directories are included. When the same
// version appears more than once, the folder directly under the root wins,
// then the first in lexical order. A missing root yields an empty list.
func (s *Store) Installed() ([]Installation, error) {
	if _, err := os.Stat(s.Root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fault.Wrap(err, ErrStore, nil, "")
	}

	byName := make(map[Version]Installation)
	s.walk(func(path string, version Version, depth int) bool {
		prev, seen := byName[version]
		if !seen || (depth == 1 && filepath.Dir(prev.Path) != filepath.Clean(s.Root)) {
			byName[version] = Installation{Version: version, Path: path}
		}
		return true
	})

	versions := make([]Version, 0, len(byName))
	for v := range byName {
		versions = append(versions, v)
	}
	versions = SortDescending(versions)

	out := make([]Installation, len(versions))
	for i, v := range versions {
		out[i] = byName[v]
	}
	return out, nil
}

// Deletes every tree for v from the store.
func (s *Store) Remove(v Version) error {
	var targets []string
	s.walk(func(path string, version Version, _ int) bool {
		if version == v {
			targets = append(targets, path)
		}
		return true
	})

	if len(targets) == 0 {
		return errors.Wrapf(ErrNotInstalled, "version %s", v)
	}

	for _, target := range targets {
		slog.Debug("removing toolchain", "version", v.String(), "path", target)
		if err := os.RemoveAll(target); err != nil {
			return fault.Wrap(err, ErrStore, nil, "")
		}
	}
	return nil
}

// Walks the store and calls fn for every directory whose name is a version.
//
// Version directories are not descended into, since their content is a
// toolchain tree. Hidden directories (scratch extraction folders) are
// skipped. Returning false from fn stops the walk. Unreadable directories
// are skipped silently.
func (s *Store) walk(fn func(path string, version Version, depth int) bool) {
	root := filepath.Clean(s.Root)

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return fs.SkipDir
		}
		if path == root || !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fs.SkipDir
		}
		depth := strings.Count(filepath.ToSlash(rel), "/") + 1

		if version, err := Parse(d.Name()); err == nil {
			if !fn(path, version, depth) {
				return fs.SkipAll
			}
			return fs.SkipDir
		}

		if depth >= maxSearchDepth {
			return fs.SkipDir
		}
		return nil
	})
}

// Reports whether path exists and is a directory.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
