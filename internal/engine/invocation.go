package engine

import (
	"strings"
)

// A fully resolved engine command line.
type Invocation struct {
	Command string   // Engine executable.
	Args    []string // Arguments, passed without a shell.
}

// Builds the command line for one build.
//
// Only the driver's target stage of the recipe is built, artifacts are
// written to output, and workspace is the build context.
func (d *Driver) Invocation(recipe, output, workspace string) Invocation {
	return Invocation{
		Command: d.command(),
		Args: []string{
			"build",
			"-f", recipe,
			"--target", d.target(),
			"-o", output,
			workspace,
		},
	}
}

// Renders the invocation as a POSIX shell command, quoting arguments that
// need it. Used for logs and error messages; the process itself never goes
// through a shell.
func (i Invocation) String() string {
	parts := make([]string, 0, len(i.Args)+1)
	parts = append(parts, quoteArg(i.Command))
	for _, arg := range i.Args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

// Characters that never need quoting in a POSIX shell word.
const safeChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./:=+,@%"

// Single-quotes s unless it consists only of safe characters.
func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if strings.Trim(s, safeChars) == "" {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
