package cli

import (
	"errors"

	"github.com/dvaldez/agentdrive"
)

// ErrSkipLine is returned by [Parser.ParseLine] for lines that produce no
// message (blank lines, heartbeats). The engine drops the line silently.
var ErrSkipLine = errors.New("cli: skip line")

// Spawner builds the command for a new one-shot agent session.
// Interfaces are defined here, at the consumer side, rather than in backend
// packages; backend packages (claude) provide concrete implementations.
type Spawner interface {
	// SpawnArgs returns the binary and arguments for a session whose
	// prompt is delivered via argv. It must not fail: invalid session
	// values are silently skipped, and it must tolerate a zero Session
	// (Engine.Validate calls it with one).
	SpawnArgs(session agentdrive.Session) (binary string, args []string)
}

// Parser transforms raw stdout lines into messages.
type Parser interface {
	// ParseLine parses a single output line. Return ErrSkipLine for
	// lines that carry no message; any other error is surfaced to the
	// consumer as a MessageError.
	ParseLine(line string) (agentdrive.Message, error)
}

// Backend is the minimal contract for a CLI agent backend.
type Backend interface {
	Spawner
	Parser
}

// Streamer is an optional capability: the backend supports a long-lived
// session whose input arrives over stdin rather than argv.
type Streamer interface {
	// StreamArgs returns the binary and arguments for a streaming
	// session. The prompt is omitted from args; the engine delivers it
	// through the stdin pipe using the backend's InputFormatter.
	StreamArgs(session agentdrive.Session) (binary string, args []string)
}

// InputFormatter is an optional capability: the backend can encode user
// messages for delivery to the subprocess stdin pipe.
type InputFormatter interface {
	// FormatInput encodes one user message, including any trailing
	// delimiter the backend's wire format requires.
	FormatInput(message string) ([]byte, error)
}
