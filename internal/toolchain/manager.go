package toolchain

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/docker/go-units"
	"github.com/opencontainers/go-digest"

	"github.com/scratcheverywhere/sebuild/internal/fault"
	"github.com/scratcheverywhere/sebuild/internal/paths"
	"github.com/scratcheverywhere/sebuild/internal/progress"
)

// Milestones reported by [Manager.Install].
const (
	percentDownloading = 10
	percentDownloaded  = 40
	percentExtracted   = 70
	percentNormalized  = 90
	percentDone        = 100
)

// Resolves, fetches, and installs toolchain versions.
type Manager struct {
	Store   *Store // Local version store.
	Source  Source // Remote archive host.
	TempDir string // Directory for scratch downloads. Empty uses the OS default.

	mu sync.Mutex // Serializes installs and removals.
}

// Controls a single install.
type InstallOptions struct {
	Digest   digest.Digest // Expected digest of the archive. Empty skips verification.
	Progress progress.Sink // Receives coarse milestones. May be nil.
}

// Creates a manager over store and source.
func NewManager(store *Store, source Source) *Manager {
	return &Manager{Store: store, Source: source}
}

// Lists the versions offered by the source, newest first.
//
// Tags that are not exactly "major.minor" are dropped. Any failure yields
// an error wrapping [ErrRemoteListing] and marked [fault.ErrNetwork]; partial
// listings are never returned.
func (m *Manager) ListRemoteVersions(ctx context.Context) ([]Version, error) {
	tags, err := m.Source.Tags(ctx)
	if err != nil {
		return nil, fault.Wrap(err, ErrRemoteListing, fault.ErrNetwork, "")
	}
	return ParseAll(tags), nil
}

// Reports whether v is present in the store.
func (m *Manager) IsInstalled(v Version) bool {
	return m.Store.IsInstalled(v)
}

// Lists installed versions, newest first.
func (m *Manager) ListInstalledVersions() ([]Installation, error) {
	return m.Store.Installed()
}

// Deletes v from the store.
func (m *Manager) Remove(v Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Store.Remove(v)
}

// Downloads and installs v into the store.
//
// The archive is written to a scratch file and extracted into a private
// directory inside the store root. The first extracted folder whose name
// contains the canonical version string (case-insensitive, lexical order)
// is moved to "<root>/<major>.<minor>", replacing any existing tree. The
// private directory and the scratch file are always removed, so a failed
// install leaves the store as it was.
//
// When no extracted folder matches, the error wraps [ErrCacheConsistency]
// and is marked [fault.ErrCacheConsistency]. Download failures wrap
// [ErrDownload] and are marked [fault.ErrNetwork].
func (m *Manager) Install(ctx context.Context, v Version, opts InstallOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sink := progress.Or(opts.Progress)
	log := slog.With("version", v.String())

	sink.Report(progress.Update{Phase: progress.PhaseDownloading, Percent: percentDownloading})

	archive, format, err := m.download(ctx, v, opts.Digest)
	if archive != "" {
		defer removeScratch(archive)
	}
	if err != nil {
		return err
	}

	sink.Report(progress.Update{Phase: progress.PhaseDownloaded, Percent: percentDownloaded})

	if err := os.MkdirAll(m.Store.Root, paths.DefaultDirMode); err != nil {
		return fault.Wrap(err, ErrStore, nil, "")
	}

	staging, err := os.MkdirTemp(m.Store.Root, ".extract-")
	if err != nil {
		return fault.Wrap(err, ErrStore, nil, "")
	}
	defer removeScratch(staging)

	if err := extract(archive, format, staging); err != nil {
		return err
	}

	sink.Report(progress.Update{Phase: progress.PhaseExtracted, Percent: percentExtracted})

	if err := m.normalize(staging, v); err != nil {
		return err
	}

	sink.Report(progress.Update{Phase: progress.PhaseNormalized, Percent: percentNormalized})

	removeScratch(staging)
	removeScratch(archive)

	log.Info("toolchain installed", "path", m.Store.Path(v))
	sink.Report(progress.Update{Phase: progress.PhaseDone, Percent: percentDone})

	return nil
}

// Downloads the archive for v to a scratch file.
//
// Returns the scratch path even on failure when the file was created, so
// the caller can remove it.
func (m *Manager) download(ctx context.Context, v Version, want digest.Digest) (string, Format, error) {
	body, format, err := m.Source.Open(ctx, v)
	if err != nil {
		return "", "", downloadError(v, err)
	}
	defer body.Close()

	f, err := os.CreateTemp(m.TempDir, "sebuild-"+v.String()+"-*"+format.Ext())
	if err != nil {
		return "", "", fault.Wrap(err, ErrStore, nil, "")
	}

	digester := digest.Canonical.Digester()
	n, err := io.Copy(io.MultiWriter(f, digester.Hash()), body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return f.Name(), "", downloadError(v, err)
	}

	got := digester.Digest()
	slog.Info("toolchain downloaded",
		"version", v.String(),
		"size", units.HumanSize(float64(n)),
		"digest", got.String(),
	)

	if want != "" && got != want {
		return f.Name(), "", fault.As(
			errors.Wrapf(ErrDigestMismatch, "version %s: got %s, want %s", v, got, want),
			fault.ErrNetwork,
		)
	}

	return f.Name(), format, nil
}

// Moves the extracted folder matching v to its canonical store location.
func (m *Manager) normalize(staging string, v Version) error {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return fault.Wrap(err, ErrStore, nil, "")
	}

	want := strings.ToLower(v.String())
	for _, entry := range entries {
		if !entry.IsDir() || !strings.Contains(strings.ToLower(entry.Name()), want) {
			continue
		}

		src := filepath.Join(staging, entry.Name())
		if err := replaceDir(src, m.Store.Path(v), staging+".previous"); err != nil {
			return fault.Wrap(err, ErrStore, nil, "")
		}

		slog.Debug("normalized toolchain folder", "from", entry.Name(), "to", v.String())
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return fault.As(
		errors.Wrapf(ErrCacheConsistency, "version %s, extracted %v", v, names),
		fault.ErrCacheConsistency,
	)
}

// Swapped out by tests.
var rename = os.Rename

// Moves src to dest. An existing dest is parked at backup and put back if
// the move fails.
func replaceDir(src, dest, backup string) error {
	if _, err := os.Lstat(dest); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		return rename(src, dest)
	}

	if err := rename(dest, backup); err != nil {
		return err
	}
	if err := rename(src, dest); err != nil {
		if rerr := rename(backup, dest); rerr != nil {
			slog.Warn("failed to restore previous toolchain", "path", dest, "backup", backup, "error", rerr)
		}
		return err
	}

	removeScratch(backup)
	return nil
}

// Wraps a transport failure for v.
func downloadError(v Version, err error) error {
	return fault.Wrap(err, ErrDownload, fault.ErrNetwork, "version "+v.String())
}

// Removes a scratch file or directory, logging failures.
func removeScratch(path string) {
	if err := os.RemoveAll(path); err != nil {
		slog.Debug("failed to remove scratch path", "path", path, "error", err)
	}
}
