//go:build !windows

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/dvaldez/agentdrive"
)

// Engine is a CLI subprocess engine that adapts a Backend into an
// agentdrive.Engine. It orchestrates subprocess lifecycle, message pumping,
// and graceful shutdown.
type Engine struct {
	backend Backend
	opts    EngineOptions
}

// Compile-time interface satisfaction check.
var _ agentdrive.Engine = (*Engine)(nil)

// NewEngine creates a CLI engine backed by the given Backend.
// Use EngineOption functions to customize buffer sizes, grace period,
// and logging.
func NewEngine(backend Backend, opts ...EngineOption) *Engine {
	return &Engine{
		backend: backend,
		opts:    resolveEngineOptions(opts...),
	}
}

// Validate checks that the backend's binary is available on PATH.
// It recovers from panics in SpawnArgs (backends may panic on zero Session).
func (e *Engine) Validate() (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("%w: SpawnArgs panicked: %v", agentdrive.ErrUnavailable, r)
		}
	}()

	binary, _ := e.backend.SpawnArgs(agentdrive.Session{})
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%w: %s: %w", agentdrive.ErrUnavailable, binary, err)
	}
	return nil
}

// Start initializes a subprocess session and returns a Process handle.
// The context parameter is reserved for future use (e.g., start timeout);
// subprocess lifetime is controlled via [agentdrive.Process.Stop].
func (e *Engine) Start(_ context.Context, session agentdrive.Session, opts ...agentdrive.Option) (agentdrive.Process, error) {
	startOpts := agentdrive.ResolveOptions(opts...)

	// Deep-copy session to prevent aliasing.
	session = session.Clone()

	// Apply option overrides.
	if startOpts.Prompt != "" {
		session.Prompt = startOpts.Prompt
	}
	if startOpts.Model != "" {
		session.Model = startOpts.Model
	}

	// Validate CWD.
	if !filepath.IsAbs(session.CWD) {
		return nil, fmt.Errorf("cli: CWD must be an absolute path, got %q", session.CWD)
	}
	info, err := os.Stat(session.CWD)
	if err != nil {
		return nil, fmt.Errorf("cli: CWD: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cli: CWD is not a directory: %s", session.CWD)
	}

	// Resolve optional capabilities once.
	caps := resolveCapabilities(e.backend)

	// Stdin delivery requires both halves: StreamArgs to omit the prompt
	// from argv, and FormatInput to encode it for the pipe. A Streamer
	// without a formatter falls back to argv delivery.
	useStreamer := caps.streamer != nil && caps.formatter != nil
	var binary string
	var args []string
	if useStreamer {
		binary, args = caps.streamer.StreamArgs(session)
	} else {
		binary, args = e.backend.SpawnArgs(session)
	}

	resolvedBinary, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", agentdrive.ErrUnavailable, binary, err)
	}

	// Validate and resolve environment variables.
	if err := agentdrive.ValidateEnv(session.Env); err != nil {
		return nil, fmt.Errorf("cli: %w", err)
	}
	env := agentdrive.MergeEnv(os.Environ(), session.Env)

	cmd, stdin, stdout, err := spawnCmd(resolvedBinary, args, session.CWD, useStreamer, env)
	if err != nil {
		return nil, fmt.Errorf("cli: start: %w", err)
	}

	e.opts.Logger.WithFields(logrus.Fields{
		"binary":  resolvedBinary,
		"pid":     cmd.Process.Pid,
		"cwd":     session.CWD,
		"session": session.ID,
		"stdin":   useStreamer,
	}).Debug("subprocess started")

	p := newProcess(e.backend, caps, session, e.opts, cmd, stdin, stdout)

	// In stdin mode the prompt never appears on the command line. Deliver
	// the initial prompt through the pipe so large prompts do not hit argv
	// length limits.
	if useStreamer && session.Prompt != "" {
		if err := p.sendStdin(session.Prompt); err != nil {
			_ = p.Stop(context.Background())
			return nil, fmt.Errorf("cli: initial prompt: %w", err)
		}
	}

	return p, nil
}

// spawnCmd builds, configures, and starts an exec.Cmd.
// env is passed directly to cmd.Env — nil inherits the parent environment.
func spawnCmd(binary string, args []string, dir string, wantStdin bool, env []string) (*exec.Cmd, io.WriteCloser, io.ReadCloser, error) {
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir
	cmd.Env = env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}

	var stdin io.WriteCloser
	if wantStdin {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("stdin pipe: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, err
	}
	return cmd, stdin, stdout, nil
}
