package stage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCopyTreeOverwrites(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFiles(t, src, map[string]string{
		"a.txt":     "new",
		"dir/b.txt": "b",
	})
	writeFiles(t, dst, map[string]string{
		"a.txt":    "old",
		"keep.txt": "keep",
	})

	if err := copyTree(src, dst); err != nil {
		t.Fatalf("copyTree: %v", err)
	}

	assertContent(t, filepath.Join(dst, "a.txt"), "new")
	assertContent(t, filepath.Join(dst, "dir", "b.txt"), "b")
	assertContent(t, filepath.Join(dst, "keep.txt"), "keep")
}

func TestCopyTreePreservesMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not preserved on windows")
	}

	src := t.TempDir()
	dst := t.TempDir()

	script := filepath.Join(src, "build.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("build.sh", filepath.Join(src, "run")); err != nil {
		t.Fatal(err)
	}

	if err := copyTree(src, dst); err != nil {
		t.Fatalf("copyTree: %v", err)
	}

	info, err := os.Stat(filepath.Join(dst, "build.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}

	link, err := os.Readlink(filepath.Join(dst, "run"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if link != "build.sh" {
		t.Errorf("link = %q, want build.sh", link)
	}
}

func TestCopyTreeMissingSource(t *testing.T) {
	err := copyTree(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestFingerprint(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	files := map[string]string{"x.txt": "x", "sub/y.txt": "y"}
	writeFiles(t, a, files)
	writeFiles(t, b, files)

	fa, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	fb, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fa != fb {
		t.Fatalf("identical trees differ: %s vs %s", fa, fb)
	}
	if len(fa) != len("blake3:")+64 {
		t.Fatalf("fingerprint %q has unexpected length", fa)
	}

	writeFiles(t, b, map[string]string{"sub/y.txt": "changed"})
	fc, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fc == fa {
		t.Fatal("fingerprint did not change with content")
	}
}
