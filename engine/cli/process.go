//go:build !windows

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dvaldez/agentdrive"
)

// capabilities holds resolved optional interfaces for a process.
// Resolved once in Engine.Start to eliminate process→engine back-references.
type capabilities struct {
	streamer  Streamer
	formatter InputFormatter
}

func resolveCapabilities(backend Backend) capabilities {
	var caps capabilities
	if s, ok := backend.(Streamer); ok {
		caps.streamer = s
	}
	if f, ok := backend.(InputFormatter); ok {
		caps.formatter = f
	}
	return caps
}

// signalProcess sends sig to a process, returning nil if the process
// has already exited (os.ErrProcessDone).
func signalProcess(proc *os.Process, sig os.Signal) error {
	err := proc.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// process implements agentdrive.Process for CLI subprocess sessions.
type process struct {
	backend Backend
	caps    capabilities
	session agentdrive.Session
	opts    EngineOptions
	log     logrus.FieldLogger

	output chan agentdrive.Message

	mu         sync.Mutex
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	cancelRead context.CancelFunc

	cmdDone chan struct{} // buffered(1), signaled by the readLoop defer
	done    chan struct{} // closed exactly once by finish()
	termErr error         // set by finish(), read after done closes

	stopping   atomic.Bool
	stopOnce   sync.Once
	finishOnce sync.Once
}

var _ agentdrive.Process = (*process)(nil)

// newProcess creates and starts a process with its readLoop.
func newProcess(
	backend Backend,
	caps capabilities,
	session agentdrive.Session,
	opts EngineOptions,
	cmd *exec.Cmd,
	stdin io.WriteCloser,
	stdout io.ReadCloser,
) *process {
	readCtx, cancelRead := context.WithCancel(context.Background())

	p := &process{
		backend:    backend,
		caps:       caps,
		session:    session,
		opts:       opts,
		log:        opts.Logger.WithField("pid", cmd.Process.Pid),
		output:     make(chan agentdrive.Message, opts.OutputBuffer),
		cmd:        cmd,
		stdin:      stdin,
		cancelRead: cancelRead,
		cmdDone:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	go p.readLoop(readCtx, stdout)
	return p
}

// Output returns the channel for receiving messages from the subprocess.
// The channel is closed when the session ends.
func (p *process) Output() <-chan agentdrive.Message {
	return p.output
}

// Send transmits a user message to the subprocess over its stdin pipe.
// Returns [agentdrive.ErrSendNotSupported] when the backend has no stdin
// delivery path, [agentdrive.ErrTerminated] after the session ends.
func (p *process) Send(_ context.Context, message string) error {
	if p.stopping.Load() {
		return agentdrive.ErrTerminated
	}

	select {
	case <-p.done:
		return agentdrive.ErrTerminated
	default:
	}

	if p.stdin == nil {
		return fmt.Errorf("%w: backend has no stdin input path", agentdrive.ErrSendNotSupported)
	}
	return p.sendStdin(message)
}

// sendStdin formats and writes a message to the subprocess stdin pipe.
func (p *process) sendStdin(message string) error {
	if p.caps.formatter == nil {
		return fmt.Errorf("%w: InputFormatter missing", agentdrive.ErrSendNotSupported)
	}
	data, err := p.caps.formatter.FormatInput(message)
	if err != nil {
		return fmt.Errorf("cli: format input: %w", err)
	}
	p.mu.Lock()
	stdin := p.stdin
	p.mu.Unlock()
	if stdin == nil {
		return agentdrive.ErrTerminated
	}
	if _, err := stdin.Write(data); err != nil {
		return fmt.Errorf("cli: write stdin: %w", err)
	}
	return nil
}

// Stop terminates the subprocess. Safe to call multiple times.
// Blocks until the output channel is closed.
func (p *process) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.stopping.Store(true)
		p.log.Debug("stopping subprocess")

		p.mu.Lock()
		if p.stdin != nil {
			_ = p.stdin.Close() // Best-effort: pipe may already be closed.
		}
		cancelRead := p.cancelRead
		cmd := p.cmd
		p.mu.Unlock()

		// Unblock readLoop if stuck on channel send.
		cancelRead()

		// Send SIGTERM for graceful termination.
		_ = signalProcess(cmd.Process, syscall.SIGTERM)

		// Wait for readLoop to finish, with grace period.
		select {
		case <-p.cmdDone:
		case <-time.After(p.opts.GracePeriod):
			p.log.Debug("grace period expired, sending SIGKILL")
			_ = signalProcess(cmd.Process, os.Kill)
			<-p.cmdDone
		case <-ctx.Done():
			_ = signalProcess(cmd.Process, os.Kill)
			<-p.cmdDone
		}
	})

	// Block until finish() completes (output channel closed).
	<-p.done
	return p.termErr
}

// Wait blocks until the session ends naturally.
func (p *process) Wait() error {
	<-p.done
	return p.termErr
}

// Err returns the terminal error, or nil if still running.
func (p *process) Err() error {
	select {
	case <-p.done:
		return p.termErr
	default:
		return nil
	}
}

// finish sets the terminal error and closes output+done channels.
// Called exactly once via sync.Once.
func (p *process) finish(err error) {
	p.finishOnce.Do(func() {
		p.termErr = err
		close(p.output)
		close(p.done)
	})
}

// readLoop is the goroutine that reads subprocess stdout and pumps messages.
func (p *process) readLoop(ctx context.Context, stdout io.ReadCloser) {
	var panicErr error
	var scanErr error

	defer func() {
		if r := recover(); r != nil {
			_ = signalProcess(p.cmd.Process, os.Kill)
			panicErr = fmt.Errorf("cli: parser panic: %v", r)
		}

		waitErr := p.cmd.Wait()
		switch {
		case panicErr != nil:
			waitErr = panicErr
		case scanErr != nil:
			waitErr = fmt.Errorf("cli: scanner: %w", scanErr)
		default:
			waitErr = wrapExitError(waitErr)
		}
		if p.stopping.Load() {
			waitErr = agentdrive.ErrTerminated
		}

		p.log.WithField("err", waitErr).Debug("subprocess exited")
		p.finish(waitErr)

		// Always signal cmdDone so Stop can proceed.
		p.cmdDone <- struct{}{}
	}()

	scanErr = p.scanLines(ctx, stdout)
	if scanErr != nil {
		// Surface scanner error as a message before termination.
		msg := agentdrive.Message{
			Type:      agentdrive.MessageError,
			Content:   fmt.Sprintf("cli: scanner: %v", scanErr),
			Timestamp: time.Now(),
		}
		select {
		case p.output <- msg:
		default:
			// Channel full; error preserved in scanErr, surfaced via finish().
		}
		_ = signalProcess(p.cmd.Process, os.Kill)
	}
}

// scanLines reads lines from stdout and sends parsed messages to the output channel.
func (p *process) scanLines(ctx context.Context, stdout io.ReadCloser) error {
	scanner := bufio.NewScanner(stdout)
	initCap := min(4096, p.opts.ScannerBuffer)
	scanner.Buffer(make([]byte, 0, initCap), p.opts.ScannerBuffer)

	var lastStopReason agentdrive.StopReason

	for scanner.Scan() {
		line := scanner.Text()
		msg, err := p.backend.ParseLine(line)
		if errors.Is(err, ErrSkipLine) {
			continue
		}
		if err != nil {
			p.log.WithField("err", err).Debug("parse error")
			msg = agentdrive.Message{
				Type:    agentdrive.MessageError,
				Content: fmt.Sprintf("cli: parse: %v", err),
			}
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}

		lastStopReason = applyStopReasonCarryForward(&msg, lastStopReason)
		if msg.Type == agentdrive.MessageInit {
			msg.Process = p.processMetaSnapshot()
		}

		select {
		case p.output <- msg:
		case <-ctx.Done():
			return nil
		}
	}
	return scanner.Err()
}

// wrapExitError converts a non-zero *exec.ExitError to *agentdrive.ExitError.
// nil → nil, non-ExitError → passthrough, code 0 → nil (clean exit).
// Preserves the error chain via ExitError.Unwrap.
func wrapExitError(err error) error {
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return err
	}
	code := ee.ExitCode()
	if code == 0 {
		return nil
	}
	return &agentdrive.ExitError{Code: code, Err: err}
}

// processMetaSnapshot returns subprocess metadata for MessageInit enrichment.
// Returns nil if cmd or its process is unavailable.
func (p *process) processMetaSnapshot() *agentdrive.ProcessMeta {
	if p.cmd == nil || p.cmd.Process == nil || p.cmd.Process.Pid <= 0 {
		return nil
	}
	return &agentdrive.ProcessMeta{
		PID:    p.cmd.Process.Pid,
		Binary: p.cmd.Path,
	}
}

// applyStopReasonCarryForward implements StopReason carry-forward between
// parsed messages. Claude CLI's result.stop_reason is always null in streaming
// mode; the real stop_reason arrives earlier in message_delta stream events.
// This function captures it and applies it to the next MessageResult.
//
// Returns the updated lastStopReason for the next call.
func applyStopReasonCarryForward(msg *agentdrive.Message, last agentdrive.StopReason) agentdrive.StopReason {
	// Clear stale carry-forward on new turn (streaming mode: scanLines
	// spans the entire subprocess lifetime).
	if msg.Type == agentdrive.MessageInit {
		return ""
	}

	// Capture StopReason from non-result messages (e.g., message_delta).
	if msg.StopReason != "" && msg.Type != agentdrive.MessageResult {
		captured := msg.StopReason
		msg.StopReason = "" // don't leak to consumer on the system message
		return captured
	}

	// Apply carried StopReason to result messages only when the result
	// itself has no StopReason (avoid clobbering authoritative values).
	if msg.Type == agentdrive.MessageResult {
		if msg.StopReason == "" && last != "" {
			msg.StopReason = last
		}
		return "" // always clear on result
	}

	return last
}
