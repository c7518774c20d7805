package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/opencontainers/go-digest"

	"github.com/scratcheverywhere/sebuild/internal"
	"github.com/scratcheverywhere/sebuild/internal/build"
	"github.com/scratcheverywhere/sebuild/internal/engine"
	"github.com/scratcheverywhere/sebuild/internal/fault"
	"github.com/scratcheverywhere/sebuild/internal/progress"
	"github.com/scratcheverywhere/sebuild/internal/project"
	"github.com/scratcheverywhere/sebuild/internal/protocol"
	"github.com/scratcheverywhere/sebuild/internal/toolchain"
)

// Handles a build command.
//
// Loads the project manifest named in the request and builds it, streaming
// progress to the client.
func (s *Server) handleBuild(ctx context.Context, w *responder, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.BuildRequest](payload)
	if err != nil {
		w.fail(err)
		return
	}
	if !filepath.IsAbs(req.Project) || !filepath.IsAbs(req.Output) {
		w.fail(errors.Wrap(ErrBadRequest, "project and output must be absolute paths"))
		return
	}

	proj, err := project.Load(req.Project)
	if err != nil {
		w.fail(fault.As(err, fault.ErrPrecondition))
		return
	}

	s.work.Lock()
	defer s.work.Unlock()

	result, err := s.builder.Build(ctx, proj, build.Options{
		Output:        req.Output,
		WorkspaceRoot: s.workspaceRoot,
	}, progressSink(w))
	if err != nil {
		w.fail(err)
		return
	}

	s.mu.Lock()
	s.builds++
	s.mu.Unlock()

	w.respond(protocol.CmdOK, &protocol.BuildResult{
		Output:      result.Output,
		Fingerprint: result.Fingerprint,
		Duration:    result.Duration.Round(time.Millisecond).String(),
		Stdout:      result.Stdout,
		Stderr:      result.Stderr,
	})
}

// Handles an install command.
func (s *Server) handleInstall(ctx context.Context, w *responder, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.InstallRequest](payload)
	if err != nil {
		w.fail(err)
		return
	}

	v, err := toolchain.Parse(req.Version)
	if err != nil {
		w.fail(errors.Wrapf(ErrBadRequest, "%v", err))
		return
	}

	var want digest.Digest
	if req.Digest != "" {
		want, err = digest.Parse(req.Digest)
		if err != nil {
			w.fail(errors.Wrapf(ErrBadRequest, "digest: %v", err))
			return
		}
	}

	s.work.Lock()
	defer s.work.Unlock()

	if err := s.manager.Install(ctx, v, toolchain.InstallOptions{
		Digest:   want,
		Progress: progressSink(w),
	}); err != nil {
		w.fail(err)
		return
	}

	s.mu.Lock()
	s.installs++
	s.mu.Unlock()

	w.respond(protocol.CmdOK, &protocol.InstallResult{
		Version: v.String(),
		Path:    s.manager.Store.Path(v),
	})
}

// Handles a versions command.
func (s *Server) handleVersions(ctx context.Context, w *responder, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.VersionsRequest](payload)
	if err != nil {
		w.fail(err)
		return
	}

	if req.Remote {
		versions, err := s.manager.ListRemoteVersions(ctx)
		if err != nil {
			w.fail(err)
			return
		}
		w.respond(protocol.CmdOK, &protocol.VersionsResult{Versions: versions})
		return
	}

	installed, err := s.manager.ListInstalledVersions()
	if err != nil {
		w.fail(err)
		return
	}
	versions := make([]toolchain.Version, len(installed))
	for i, inst := range installed {
		versions[i] = inst.Version
	}
	w.respond(protocol.CmdOK, &protocol.VersionsResult{Versions: versions, Installed: installed})
}

// Handles a status command.
func (s *Server) handleStatus(w *responder) {
	s.mu.Lock()
	builds, installs := s.builds, s.installs
	s.mu.Unlock()

	uptime := time.Since(s.startedAt).Truncate(time.Second)

	w.respond(protocol.CmdOK, &protocol.StatusResult{
		Running:  true,
		Version:  internal.VersionString(),
		Pid:      os.Getpid(),
		Uptime:   uptime.String(),
		State:    s.builder.State().String(),
		Builds:   builds,
		Installs: installs,
	})
}

// Handles a shutdown command.
func (s *Server) handleShutdown(w *responder) {
	w.respond(protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}

// Returns a sink that streams updates as progress envelopes.
func progressSink(w *responder) progress.Sink {
	return progress.Func(func(u progress.Update) {
		w.respond(protocol.CmdProgress, &u)
	})
}

// Describes err for the wire, keeping the category and any captured build
// output.
func errorResult(err error) *protocol.ErrorResult {
	res := &protocol.ErrorResult{
		Message:  err.Error(),
		Category: fault.Category(err),
	}

	var failed *engine.ProcessFailedError
	if errors.As(err, &failed) {
		res.ExitCode = failed.ExitCode
		res.Stdout = failed.Stdout
		res.Stderr = failed.Stderr
	}
	return res
}
