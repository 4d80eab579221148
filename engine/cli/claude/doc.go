// Package claude implements a cli.Backend for the Claude Code CLI.
//
// The backend drives claude in headless mode (-p) with stream-json output
// and parses each stdout line into an [agentdrive.Message]. It implements
// the optional [cli.Streamer] and [cli.InputFormatter] capabilities, so an
// engine built on it delivers prompts over the stdin pipe rather than argv.
//
// Session configuration flows through [agentdrive.Session] fields and the
// well-known Options keys: [agentdrive.OptionSystemPrompt],
// [agentdrive.OptionMaxTurns], [agentdrive.OptionSettingsPath],
// [agentdrive.OptionResumeID], and this package's [OptionPermissionMode].
//
// Truncated output lines (scanner limits, killed subprocesses) are salvaged
// with the heal package before being reported as parse errors, so a result
// payload cut mid-JSON still yields a usable message.
package claude
