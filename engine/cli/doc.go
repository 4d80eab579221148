// Package cli provides a CLI subprocess transport adapter for agentdrive engines.
//
// A Backend implements [Spawner] and [Parser] to define how subprocesses are
// launched and how their stdout is parsed into [agentdrive.Message] values.
// Optional capabilities ([Streamer], [InputFormatter]) are discovered via
// type assertion at runtime.
//
// [NewEngine] wraps a Backend into an [agentdrive.Engine]. The returned
// [Engine] manages subprocess lifecycle, environment merging, message
// pumping, and graceful shutdown (SIGTERM then SIGKILL).
//
// # Prompt Delivery
//
// When a backend implements both [Streamer] and [InputFormatter], the
// session prompt is written to the subprocess stdin pipe instead of being
// passed as a command-line argument. This sidesteps OS argv length limits
// for large prompts and keeps prompt content out of process listings.
// Backends without a streaming path receive the prompt via [Spawner] args.
//
// # Platform Support
//
// The [Engine] and process types use Unix signals (SIGTERM, SIGKILL) for
// subprocess lifecycle management and are not available on Windows. The
// interface types ([Backend], [Spawner], [Parser], [Streamer],
// [InputFormatter]) and option types are available on all platforms.
//
// # Consumer Obligations
//
// Callers must either drain the [agentdrive.Process.Output] channel to
// completion or call [agentdrive.Process.Stop] to release subprocess
// resources. Failing to do so may leave the subprocess running and leak
// goroutines.
//
// The claude subpackage implements the Backend interface for Claude Code.
package cli
