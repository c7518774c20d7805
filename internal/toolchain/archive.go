package toolchain

import (
	"archive/tar"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"

	"github.com/scratcheverywhere/sebuild/internal/fault"
)

// Archive container and compression of a toolchain download.
type Format string

const (
	FormatZip    Format = "zip"
	FormatTarGz  Format = "tar.gz"
	FormatTarXz  Format = "tar.xz"
	FormatTarZst Format = "tar.zst"
)

// File extension for the format, including the leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Parses a format name as used in configuration ("zip", "tar.gz", "tgz", ...).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "zip":
		return FormatZip, nil
	case "tar.gz", "tgz":
		return FormatTarGz, nil
	case "tar.xz", "txz":
		return FormatTarXz, nil
	case "tar.zst", "tzst":
		return FormatTarZst, nil
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "%q", s)
}

// Splits an archive file name into its base name and format.
//
// Returns false if the name has no recognised archive extension.
func splitArchiveName(name string) (string, Format, bool) {
	lower := strings.ToLower(name)
	for _, ext := range []string{".tar.gz", ".tgz", ".tar.xz", ".txz", ".tar.zst", ".tzst", ".zip"} {
		if strings.HasSuffix(lower, ext) {
			format, _ := ParseFormat(ext)
			return name[:len(name)-len(ext)], format, true
		}
	}
	return "", "", false
}

// Extracts the archive at src into dest, which must exist.
//
// Entries that would land outside dest are rejected. Errors are wrapped in
// [ErrExtract].
func extract(src string, format Format, dest string) error {
	dest, err := filepath.Abs(dest)
	if err != nil {
		return fault.Wrap(err, ErrExtract, nil, "")
	}
	if dest, err = filepath.EvalSymlinks(dest); err != nil {
		return fault.Wrap(err, ErrExtract, nil, "")
	}

	slog.Debug("extracting archive", "src", src, "dest", dest, "format", format)

	switch format {
	case FormatZip:
		err = unzip(src, dest)
	case FormatTarGz, FormatTarXz, FormatTarZst:
		err = untarFile(src, format, dest)
	default:
		err = errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}

	return fault.Wrap(err, ErrExtract, nil, filepath.Base(src))
}

// Extracts a zip archive.
func unzip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath, err := entryPath(dest, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0755); err != nil {
				return err
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeFile(fpath, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// Opens a compressed tarball and extracts it.
func untarFile(src string, format Format, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader
	switch format {
	case FormatTarGz:
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		r = gz
	case FormatTarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return err
		}
		r = xzr
	case FormatTarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return err
		}
		defer zr.Close()
		r = zr
	}

	return untar(r, dest)
}

// Extracts a plain tar stream.
//
// Directories, regular files, and symlinks that resolve inside dest are
// created. Other entry types (pax global headers, devices, hard links) are
// skipped.
func untar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fpath, err := entryPath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(fpath, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(fpath, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			target, err := linkTarget(dest, fpath, hdr.Linkname)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
				return err
			}
			if err := os.Symlink(target, fpath); err != nil {
				return err
			}
		default:
			slog.Debug("skipping archive entry", "name", hdr.Name, "type", hdr.Typeflag)
		}
	}
}

// Writes r to path, creating parents. Zero permissions fall back to 0644.
func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = 0644
	}

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Joins an archive entry name onto dest, rejecting names that escape it.
func safeJoin(dest, name string) (string, error) {
	fpath := filepath.Join(dest, name)
	if !within(dest, fpath) {
		return "", errors.Newf("illegal file path in archive: %s", name)
	}
	return fpath, nil
}

// Like [safeJoin], but also rejects names that pass through or land on a
// symlink already extracted under dest.
//
// With no symlink on the way, the lexical path is the physical one, so
// nothing is ever written outside dest.
func entryPath(dest, name string) (string, error) {
	fpath, err := safeJoin(dest, name)
	if err != nil {
		return "", err
	}

	cur := dest
	for _, part := range strings.Split(strings.TrimPrefix(fpath, dest), string(os.PathSeparator)) {
		if part == "" {
			continue
		}
		cur = filepath.Join(cur, part)

		info, err := os.Lstat(cur)
		if os.IsNotExist(err) {
			break
		}
		if err != nil {
			return "", err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return "", errors.Newf("archive entry %s passes through symlink %s", name, mustRel(dest, cur))
		}
	}
	return fpath, nil
}

// Returns the target to give a symlink at fpath, or an error if it would
// point outside dest.
//
// Targets must be relative. They are cleaned, leaving ".." only as a
// leading run, so resolution climbs real directories first and only then
// descends. Later entries cannot change where such a link points.
func linkTarget(dest, fpath, linkname string) (string, error) {
	if filepath.IsAbs(linkname) {
		return "", errors.Newf("symlink %s has absolute target %s", mustRel(dest, fpath), linkname)
	}

	target := filepath.Clean(linkname)
	if !within(dest, filepath.Join(filepath.Dir(fpath), target)) {
		return "", errors.Newf("symlink %s escapes destination", mustRel(dest, fpath))
	}
	return target, nil
}

// Reports whether path is dest or below it. Both must be clean.
func within(dest, path string) bool {
	return path == dest || strings.HasPrefix(path, dest+string(os.PathSeparator))
}

// Returns target relative to base, or target unchanged if that fails.
func mustRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}
