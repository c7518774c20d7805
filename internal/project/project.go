package project

import (
	"path/filepath"
	"regexp"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/toolchain"
)

// Platform targeted when a project does not name one.
const DefaultPlatform = "3ds"

// Platform names double as file name components, so they are kept simple.
var platformPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Distinguishes the two asset reference shapes.
type AssetKind int

const (
	AssetNone   AssetKind = iota // No asset reference.
	AssetFile                    // A single packaged bundle file.
	AssetFolder                  // A folder whose contents are copied as-is.
)

// Returns a short name for the kind.
func (k AssetKind) String() string {
	switch k {
	case AssetFile:
		return "file"
	case AssetFolder:
		return "folder"
	default:
		return "none"
	}
}

// Where the project's visual programming bundle comes from.
type AssetSource struct {
	Kind AssetKind
	Path string
}

// Creates a single-file asset source.
func BundleFile(path string) AssetSource {
	return AssetSource{Kind: AssetFile, Path: path}
}

// Creates a folder asset source.
func BundleFolder(path string) AssetSource {
	return AssetSource{Kind: AssetFolder, Path: path}
}

// Reports whether a bundle file or folder is referenced.
func (a AssetSource) IsSet() bool {
	return a.Kind != AssetNone && a.Path != ""
}

// A buildable project.
//
// The build core only reads a Project; it never modifies one.
type Project struct {
	Name          string            // Display name.
	Description   string            // Free text description.
	Icon          string            // Icon image path. Empty if absent.
	Banner        string            // Banner image path. Empty if absent.
	Assets        AssetSource       // The bundle to embed.
	TargetVersion toolchain.Version // Toolchain version the project is built with.
	Platform      string            // Target platform variant (e.g., "3ds").
}

// Creates a project, requiring a name and description.
func New(name, description string, version toolchain.Version) (*Project, error) {
	p := &Project{
		Name:          name,
		Description:   description,
		TargetVersion: version,
		Platform:      DefaultPlatform,
	}
	if name == "" {
		return nil, errors.Wrap(ErrInvalidProject, "name is required")
	}
	if description == "" {
		return nil, errors.Wrap(ErrInvalidProject, "description is required")
	}
	return p, nil
}

// Returns the platform, defaulting to [DefaultPlatform].
func (p *Project) PlatformName() string {
	if p.Platform == "" {
		return DefaultPlatform
	}
	return p.Platform
}

// Checks the fields the build relies on.
//
// File existence is not checked here; missing optional images are skipped
// at staging time and a missing bundle is reported there.
func (p *Project) Validate() error {
	if !platformPattern.MatchString(p.PlatformName()) {
		return errors.Wrapf(ErrInvalidProject, "platform %q", p.Platform)
	}
	if p.Assets.Kind != AssetNone && p.Assets.Path == "" {
		return errors.Wrapf(ErrInvalidProject, "asset %s reference has no path", p.Assets.Kind)
	}
	return nil
}

// Returns a copy with every relative path joined onto base.
func (p *Project) Resolve(base string) *Project {
	out := *p
	out.Icon = resolvePath(base, p.Icon)
	out.Banner = resolvePath(base, p.Banner)
	out.Assets.Path = resolvePath(base, p.Assets.Path)
	return &out
}

// Joins path onto base unless it is empty or absolute.
func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
