package protocol

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/progress"
	"github.com/scratcheverywhere/sebuild/internal/toolchain"
)

// Wire format revision. Bumped on incompatible changes.
const Version = 1

// Names a request or response kind.
type Command string

const (
	CmdBuild    Command = "build"
	CmdInstall  Command = "install"
	CmdVersions Command = "versions"
	CmdStatus   Command = "status"
	CmdShutdown Command = "shutdown"

	CmdProgress Command = "progress"
	CmdOK       Command = "ok"
	CmdError    Command = "error"
)

// Outer frame of every message.
type Envelope struct {
	Version int             `json:"version"`
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Asks the daemon to build a project.
type BuildRequest struct {
	Project string `json:"project"` // Absolute path of the project manifest.
	Output  string `json:"output"`  // Absolute output directory.
}

// Reports a finished build.
type BuildResult struct {
	Output      string `json:"output"`
	Fingerprint string `json:"fingerprint"`
	Duration    string `json:"duration"`
	Stdout      string `json:"stdout,omitempty"`
	Stderr      string `json:"stderr,omitempty"`
}

// Asks the daemon to install a toolchain version.
type InstallRequest struct {
	Version string `json:"version"`
	Digest  string `json:"digest,omitempty"`
}

// Reports an installed toolchain.
type InstallResult struct {
	Version string `json:"version"`
	Path    string `json:"path"`
}

// Asks for installed or remote versions.
type VersionsRequest struct {
	Remote bool `json:"remote,omitempty"`
}

// Lists versions, newest first. Installed listings carry paths.
type VersionsResult struct {
	Versions  []toolchain.Version      `json:"versions,omitempty"`
	Installed []toolchain.Installation `json:"installed,omitempty"`
}

// Describes the running daemon.
type StatusResult struct {
	Running  bool   `json:"running"`
	Version  string `json:"version"`
	Pid      int    `json:"pid"`
	Uptime   string `json:"uptime"`
	State    string `json:"state"`
	Builds   int    `json:"builds"`
	Installs int    `json:"installs"`
}

// Carries a failure, with enough detail to rebuild a useful error.
type ErrorResult struct {
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

// A progress milestone streamed before the final response.
type ProgressResult = progress.Update

// Encodes a command and its payload as an envelope. A nil payload is
// omitted. The result has no trailing newline.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Version: Version, Command: cmd}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encode payload")
		}
		env.Payload = raw
	}

	data, err := json.Marshal(&env)
	if err != nil {
		return nil, errors.Wrap(err, "encode envelope")
	}
	return data, nil
}

// Decodes an envelope and returns it with its raw payload.
func Decode(data []byte) (*Envelope, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, errors.Wrapf(ErrDecode, "%v", err)
	}
	if env.Version != Version {
		return nil, nil, errors.Wrapf(ErrVersionMismatch, "got %d, want %d", env.Version, Version)
	}
	if env.Command == "" {
		return nil, nil, errors.Wrap(ErrDecode, "missing command")
	}
	return &env, env.Payload, nil
}

// Decodes a payload into a new T. An empty payload yields T's zero value.
func DecodePayload[T any](payload json.RawMessage) (*T, error) {
	v := new(T)
	if len(payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return nil, errors.Wrapf(ErrDecode, "%v", err)
	}
	return v, nil
}
