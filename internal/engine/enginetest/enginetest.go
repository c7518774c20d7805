// Package enginetest provides a scripted stand-in for a container engine
// executable, for tests of code that shells out to one.
package enginetest

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// Behaviour of a fake engine.
type Options struct {
	InfoExit  int    // Exit status of "info".
	BuildExit int    // Exit status of "build".
	Stdout    string // Extra text written to stdout by "build".
	Stderr    string // Extra text written to stderr by "build".
	Artifact  string // File created in the output directory by "build". Defaults to "app.3dsx".
}

// A fake engine installed in a temporary directory.
type Engine struct {
	Path string // Executable to pass as the engine command.
	log  string
}

const script = `#!/bin/sh
log=%[1]s
echo "$*" >> "$log"
cmd="$1"
shift
case "$cmd" in
info)
	echo "server: fake"
	exit %[2]d
	;;
build)
	;;
*)
	echo "unknown command: $cmd" >&2
	exit 125
	;;
esac
file=""
target=""
out=""
while [ $# -gt 1 ]; do
	case "$1" in
	-f) file="$2"; shift 2 ;;
	--target) target="$2"; shift 2 ;;
	-o) out="$2"; shift 2 ;;
	*) shift ;;
	esac
done
context="$1"
echo "building target $target"
echo "context $context" >&2
if [ ! -f "$file" ]; then
	echo "recipe not found: $file" >&2
	exit 1
fi
printf '%%s' %[4]s
printf '%%s' %[5]s >&2
if [ %[3]d -ne 0 ]; then
	exit %[3]d
fi
mkdir -p "$out"
echo artifact > "$out/"%[6]s
exit 0
`

// Writes a fake engine executable. Skips the test on Windows.
func New(t *testing.T, opts Options) *Engine {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake engine requires a POSIX shell")
	}

	artifact := opts.Artifact
	if artifact == "" {
		artifact = "app.3dsx"
	}

	dir := t.TempDir()
	e := &Engine{
		Path: filepath.Join(dir, "engine"),
		log:  filepath.Join(dir, "calls.log"),
	}

	body := fmt.Sprintf(script,
		shellQuote(e.log),
		opts.InfoExit,
		opts.BuildExit,
		shellQuote(opts.Stdout),
		shellQuote(opts.Stderr),
		shellQuote(artifact),
	)
	if err := os.WriteFile(e.Path, []byte(body), 0755); err != nil {
		t.Fatalf("write fake engine: %v", err)
	}
	return e
}

// Returns the argument lists the engine was invoked with, in order.
func (e *Engine) Calls(t *testing.T) []string {
	t.Helper()

	data, err := os.ReadFile(e.log)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read fake engine log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// Reports whether any invocation started with subcommand.
func (e *Engine) Called(t *testing.T, subcommand string) bool {
	t.Helper()
	for _, call := range e.Calls(t) {
		if call == subcommand || strings.HasPrefix(call, subcommand+" ") {
			return true
		}
	}
	return false
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
