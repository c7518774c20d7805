package stage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/fault"
	"github.com/scratcheverywhere/sebuild/internal/paths"
	"github.com/scratcheverywhere/sebuild/internal/project"
	"github.com/scratcheverywhere/sebuild/internal/toolchain"
)

// A located build recipe inside a populated workspace.
type Recipe struct {
	Path        string // Recipe file.
	Workspace   string // Build context the recipe refers to.
	Platform    string // Platform the recipe was selected for.
	Fingerprint string // Content hash of the staged tree.
}

// Prepares workspaces from projects.
type Engine struct {
	Store  *toolchain.Store // Source of toolchain templates. Read only.
	Layout Layout           // Where project files go inside the workspace.
}

// Creates an engine reading templates from store, using [DefaultLayout].
func NewEngine(store *toolchain.Store) *Engine {
	return &Engine{Store: store, Layout: DefaultLayout}
}

// Populates workspace from p and returns the recipe to build.
//
// The workspace must be empty or not exist yet. The target version and the
// asset bundle are checked before anything is written; a failure there
// leaves the file system untouched. Missing icon and banner images are
// skipped. Errors for a missing version, bundle or recipe are marked
// [fault.ErrPrecondition].
func (e *Engine) Prepare(ctx context.Context, p *project.Project, workspace string) (*Recipe, error) {
	if err := p.Validate(); err != nil {
		return nil, fault.As(err, fault.ErrPrecondition)
	}
	platform := p.PlatformName()

	template, ok := e.Store.Find(p.TargetVersion)
	if !ok {
		return nil, precondition(ErrVersionNotInstalled, "version %s under %s", p.TargetVersion, e.Store.Root)
	}

	if err := checkAssets(p.Assets); err != nil {
		return nil, err
	}

	if err := ensureEmpty(workspace); err != nil {
		return nil, err
	}

	slog.Debug("staging toolchain", "version", p.TargetVersion.String(), "template", template, "workspace", workspace)

	if err := copyTree(template, workspace); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	icon := e.Layout.resolve(workspace, e.Layout.Icon, platform)
	banner := e.Layout.resolve(workspace, e.Layout.Banner, platform)
	assets := e.Layout.resolve(workspace, e.Layout.Assets, platform)

	for _, dir := range []string{filepath.Dir(icon), filepath.Dir(banner), assets} {
		if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
			return nil, fault.Wrap(err, ErrWorkspace, nil, dir)
		}
	}

	if err := copyOptional(p.Icon, icon); err != nil {
		return nil, err
	}
	if err := copyOptional(p.Banner, banner); err != nil {
		return nil, err
	}

	if err := e.copyAssets(p.Assets, workspace, platform); err != nil {
		return nil, err
	}

	recipe := e.Layout.resolve(workspace, e.Layout.Recipe, platform)
	if info, err := os.Stat(recipe); err != nil || !info.Mode().IsRegular() {
		return nil, precondition(ErrRecipeNotFound, "%s", recipe)
	}

	fingerprint, err := Fingerprint(workspace)
	if err != nil {
		return nil, fault.Wrap(err, ErrWorkspace, nil, "fingerprint")
	}

	slog.Debug("workspace staged", "recipe", recipe, "fingerprint", fingerprint)

	return &Recipe{
		Path:        recipe,
		Workspace:   workspace,
		Platform:    platform,
		Fingerprint: fingerprint,
	}, nil
}

// Copies the bundle file or the asset folder's contents into place.
func (e *Engine) copyAssets(src project.AssetSource, workspace, platform string) error {
	switch src.Kind {
	case project.AssetFile:
		dst := e.Layout.resolve(workspace, e.Layout.Bundle, platform)
		slog.Debug("copying bundle", "src", src.Path, "dest", dst)
		if err := copyFile(src.Path, dst, paths.DefaultFileMode); err != nil {
			return fault.Wrap(err, ErrCopy, nil, src.Path)
		}
		return nil

	case project.AssetFolder:
		dst := e.Layout.resolve(workspace, e.Layout.Assets, platform)
		slog.Debug("copying asset folder", "src", src.Path, "dest", dst)
		return copyTree(src.Path, dst)
	}
	return precondition(ErrMissingAssetBundle, "unknown asset kind %d", int(src.Kind))
}

// Requires the asset reference to be present and of the declared shape.
func checkAssets(src project.AssetSource) error {
	if !src.IsSet() {
		return precondition(ErrMissingAssetBundle, "project references no bundle file or folder")
	}

	info, err := os.Stat(src.Path)
	if err != nil {
		return precondition(ErrMissingAssetBundle, "%s: %v", src.Path, err)
	}

	switch src.Kind {
	case project.AssetFile:
		if !info.Mode().IsRegular() {
			return precondition(ErrMissingAssetBundle, "%s is not a file", src.Path)
		}
	case project.AssetFolder:
		if !info.IsDir() {
			return precondition(ErrMissingAssetBundle, "%s is not a directory", src.Path)
		}
	}
	return nil
}

// Copies an optional image. An empty reference or a missing file is skipped.
func copyOptional(src, dst string) error {
	if src == "" {
		return nil
	}

	info, err := os.Stat(src)
	if err != nil || !info.Mode().IsRegular() {
		slog.Debug("skipping optional asset", "path", src)
		return nil
	}

	if err := copyFile(src, dst, paths.DefaultFileMode); err != nil {
		return fault.Wrap(err, ErrCopy, nil, src)
	}
	return nil
}

// Creates dir if needed and requires it to be empty.
func ensureEmpty(dir string) error {
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return fault.Wrap(err, ErrWorkspace, nil, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fault.Wrap(err, ErrWorkspace, nil, dir)
	}
	if len(entries) > 0 {
		return precondition(ErrWorkspace, "%s is not empty", dir)
	}
	return nil
}

// Wraps kind with a formatted detail and marks it as a precondition failure.
func precondition(kind error, format string, args ...any) error {
	return fault.As(errors.Wrapf(kind, format, args...), fault.ErrPrecondition)
}
