package project

import (
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/paths"
	"github.com/scratcheverywhere/sebuild/internal/toolchain"
)

// Conventional manifest file extension.
const Extension = ".sebx"

// On-disk form of a project.
//
// Older manifests reference an asset folder, newer ones a bundle file; both
// elements are read and the shape is fixed once in [manifest.project].
type manifest struct {
	XMLName       xml.Name `xml:"SebxProject"`
	Name          string   `xml:"ProjectName"`
	Description   string   `xml:"ProjectDescription"`
	Icon          string   `xml:"IconFile,omitempty"`
	Banner        string   `xml:"BannerFile,omitempty"`
	BundleFile    string   `xml:"Sb3File,omitempty"`
	BundleFolder  string   `xml:"Sb3Folder,omitempty"`
	TargetVersion string   `xml:"TargetVersion"`
	Platform      string   `xml:"Platform,omitempty"`
}

// Reads a manifest and resolves its relative paths against the manifest's
// directory.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidManifest, "%s: %v", path, err)
	}

	var m manifest
	if err := xml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(ErrInvalidManifest, "%s: %v", path, err)
	}

	p, err := m.project()
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidManifest, "%s: %v", path, err)
	}
	return p.Resolve(dir), nil
}

// Writes p to path as a manifest.
func Save(p *Project, path string) error {
	m := manifest{
		Name:          p.Name,
		Description:   p.Description,
		Icon:          p.Icon,
		Banner:        p.Banner,
		TargetVersion: p.TargetVersion.String(),
		Platform:      p.Platform,
	}

	switch p.Assets.Kind {
	case AssetFile:
		m.BundleFile = p.Assets.Path
	case AssetFolder:
		m.BundleFolder = p.Assets.Path
	}

	data, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode manifest")
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')

	return os.WriteFile(path, data, paths.DefaultFileMode)
}

// Converts the on-disk form to a [Project].
//
// A bundle file takes precedence over a bundle folder when both are present.
func (m *manifest) project() (*Project, error) {
	version, err := toolchain.Parse(m.TargetVersion)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidManifest, "target version: %v", err)
	}

	p := &Project{
		Name:          m.Name,
		Description:   m.Description,
		Icon:          m.Icon,
		Banner:        m.Banner,
		TargetVersion: version,
		Platform:      m.Platform,
	}

	switch {
	case m.BundleFile != "":
		p.Assets = BundleFile(m.BundleFile)
	case m.BundleFolder != "":
		p.Assets = BundleFolder(m.BundleFolder)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
