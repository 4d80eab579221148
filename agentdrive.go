// Package agentdrive provides composable interfaces for driving an external
// CLI coding agent as a subprocess.
//
// agentdrive abstracts a command-line LLM agent (Claude Code and compatible
// tools) behind a uniform [Engine]/[Process] model: the engine spawns the
// agent in a sandboxed working directory, streams prompts over stdin, merges
// environment overrides, and pumps the agent's stream-json output into
// structured [Message] values. The companion heal package recovers structured
// data from truncated or malformed JSON the agent may emit.
//
// # Core Types
//
//   - [Engine] — starts and validates agent sessions
//   - [Process] — an active session handle with message output channel
//   - [Session] — minimal session state passed to engines (value type)
//   - [Message] — structured output from agent processes
//   - [Option] — functional options for [Engine.Start]
//
// # Vocabulary
//
// The root package defines the shared vocabulary for backends:
//
//   - Output vocabulary: [MessageType] constants define what agents produce
//   - Input vocabulary: [Session.Options] keys carry backend configuration,
//     [Session.Env] carries environment-variable overrides
//
// Backends translate this vocabulary into their command-line flags and wire
// format. Backend-specific concepts remain in their respective packages.
//
// # Quick Start
//
//	engine := cli.NewEngine(claude.New())
//	proc, err := engine.Start(ctx, agentdrive.Session{
//	    ID:     "s1",
//	    CWD:    box.Dir,
//	    Prompt: "Hello",
//	})
//	if err != nil { log.Fatal(err) }
//	for msg := range proc.Output() {
//	    fmt.Println(msg.Content)
//	}
package agentdrive
