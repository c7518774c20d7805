package stage

import (
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"lukechampine.com/blake3"
)

// Prefix of every fingerprint string.
const fingerprintAlgorithm = "blake3"

// Computes a content hash of the tree rooted at dir.
//
// The hash covers every entry's slash-separated relative path, its type and
// permission bits, and the bytes of regular files and link targets, visited
// in lexical order. Two trees with the same content produce the same
// fingerprint wherever they live.
func Fingerprint(dir string) (string, error) {
	h := blake3.New(32, nil)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		writeField(h, filepath.ToSlash(rel))
		writeField(h, strconv.FormatUint(uint64(info.Mode().Type()|info.Mode().Perm()), 8))

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			writeField(h, link)
		case info.Mode().IsRegular():
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := io.Copy(h, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return fingerprintAlgorithm + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// Writes s followed by a separator so adjacent fields cannot run together.
func writeField(w io.Writer, s string) {
	io.WriteString(w, s)
	w.Write([]byte{0})
}
