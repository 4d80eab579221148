//go:build !windows

// Command agentdrive runs a single agent turn inside a sandboxed working
// directory and prints the result.
//
// The prompt comes from the -prompt flag or, when absent, from stdin — large
// prompts are piped rather than passed on the command line. Configuration is
// layered: built-in defaults, an optional YAML file (-config), then
// AGENTDRIVE_* environment variables. Transient CLI failures (rate limits,
// overloaded upstream) are retried with backoff.
//
// With -json the final result text is parsed — repairing truncated output if
// necessary — and re-emitted as compact JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/dvaldez/agentdrive"
	"github.com/dvaldez/agentdrive/config"
	"github.com/dvaldez/agentdrive/engine/cli"
	"github.com/dvaldez/agentdrive/engine/cli/claude"
	"github.com/dvaldez/agentdrive/filter"
	"github.com/dvaldez/agentdrive/heal"
	"github.com/dvaldez/agentdrive/retry"
	"github.com/dvaldez/agentdrive/sandbox"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		prompt     = flag.String("prompt", "", "prompt text (reads stdin when empty)")
		model      = flag.String("model", "", "model override")
		asJSON     = flag.Bool("json", false, "parse the result as JSON and print it compacted")
		keep       = flag.Bool("keep", false, "keep the sandbox directory after the run")
	)
	flag.Parse()

	if err := run(*configPath, *prompt, *model, *asJSON, *keep); err != nil {
		fmt.Fprintf(os.Stderr, "agentdrive: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, prompt, model string, asJSON, keep bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if model != "" {
		cfg.Model = model
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	if prompt == "" {
		prompt, err = readPrompt(os.Stdin)
		if err != nil {
			return err
		}
	}

	box, err := sandbox.New(cfg.SandboxRoot, sandbox.Restrictive())
	if err != nil {
		return err
	}
	if keep {
		logger.WithField("dir", box.Dir).Info("keeping sandbox")
	} else {
		defer func() {
			if err := box.Remove(); err != nil {
				logger.WithError(err).Warn("sandbox cleanup failed")
			}
		}()
	}

	engine := cli.NewEngine(
		claude.New(claude.WithBinary(cfg.Binary)),
		cli.WithLogger(logger),
	)
	if err := engine.Validate(); err != nil {
		return err
	}

	session := buildSession(cfg, box, prompt)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout.Std())
	defer cancel()

	var result agentdrive.Message
	policy := retryPolicy(cfg.Retry)
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		var attemptErr error
		result, attemptErr = runOnce(ctx, engine, session, logger)
		return attemptErr
	})
	if err != nil {
		return err
	}

	return emit(os.Stdout, result, asJSON)
}

// newLogger builds a stderr logger at the configured level.
func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(lvl)
	return logger, nil
}

// readPrompt reads the whole prompt from r, trimming nothing — whitespace
// in piped prompts is intentional.
func readPrompt(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("empty prompt: pass -prompt or pipe text on stdin")
	}
	return string(data), nil
}

// buildSession roots the session in the sandbox and layers config values
// on top of the generated settings wiring.
func buildSession(cfg config.Config, box *sandbox.Box, prompt string) agentdrive.Session {
	session := box.Session("", prompt)
	session.Model = cfg.Model

	for k, v := range cfg.Env {
		if session.Env == nil {
			session.Env = make(map[string]string, len(cfg.Env))
		}
		session.Env[k] = v
	}

	if cfg.SystemPrompt != "" {
		session.Options[agentdrive.OptionSystemPrompt] = cfg.SystemPrompt
	}
	if cfg.PermissionMode != "" {
		session.Options[claude.OptionPermissionMode] = cfg.PermissionMode
	}
	if cfg.MaxTurns > 0 {
		session.Options[agentdrive.OptionMaxTurns] = strconv.Itoa(cfg.MaxTurns)
	}
	return session
}

// retryPolicy maps config retry settings onto a retry.Policy, keeping the
// default factor and jitter.
func retryPolicy(r config.Retry) retry.Policy {
	p := retry.Default()
	if r.MaxAttempts > 0 {
		p.MaxAttempts = r.MaxAttempts
	}
	if r.InitialBackoff > 0 {
		p.InitialBackoff = r.InitialBackoff.Std()
	}
	if r.MaxBackoff > 0 {
		p.MaxBackoff = r.MaxBackoff.Std()
	}
	return p
}

// runOnce starts one subprocess session and drains it to the final result.
// The returned error feeds the retry classifier, so process exit errors
// (which carry upstream status text) pass through unwrapped.
func runOnce(ctx context.Context, engine agentdrive.Engine, session agentdrive.Session, logger logrus.FieldLogger) (agentdrive.Message, error) {
	proc, err := engine.Start(ctx, session)
	if err != nil {
		return agentdrive.Message{}, err
	}
	defer func() { _ = proc.Stop(context.Background()) }()

	var result agentdrive.Message
	var agentErr string
	for msg := range filter.Final(ctx, proc.Output()) {
		logMessage(logger, msg)
		switch msg.Type {
		case agentdrive.MessageError:
			agentErr = msg.Content
		case agentdrive.MessageResult:
			result = msg
			// The stdin pipe stays open after the result in streaming
			// mode; stop explicitly to let the subprocess exit.
			_ = proc.Stop(context.Background())
		}
	}

	if err := proc.Err(); err != nil && !errors.Is(err, agentdrive.ErrTerminated) {
		return agentdrive.Message{}, err
	}
	if result.Type != agentdrive.MessageResult {
		if agentErr != "" {
			return agentdrive.Message{}, fmt.Errorf("agent error: %s", agentErr)
		}
		return agentdrive.Message{}, errors.New("session ended without a result")
	}
	return result, nil
}

// logMessage emits progress logging for a drained message. Tool calls ride
// on text messages (the parser attaches the tool_use block to the assistant
// message that carries it), so tool logging keys off msg.Tool rather than
// the message type.
func logMessage(logger logrus.FieldLogger, msg agentdrive.Message) {
	if msg.Tool != nil {
		logger.WithField("tool", msg.Tool.Name).Debug("tool use")
	}
	if msg.Type == agentdrive.MessageInit {
		logger.WithField("session", msg.Content).Debug("session started")
	}
}

// emit writes the result to w: raw text, or compact JSON with -json.
// Truncated JSON output (the CLI was killed mid-write, the model stopped at
// its token limit) is repaired before re-encoding.
func emit(w io.Writer, result agentdrive.Message, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, result.Content)
		return err
	}

	value, err := heal.Recover(result.Content)
	if err != nil {
		return fmt.Errorf("result is not recoverable JSON: %w", err)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
