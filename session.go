package agentdrive

// Well-known Session.Options keys honored by backends. Backend-specific
// keys (permission modes, binary quirks) live in the backend packages.
const (
	// OptionSystemPrompt sets the agent's system prompt.
	OptionSystemPrompt = "system_prompt"

	// OptionMaxTurns bounds the number of agent turns.
	OptionMaxTurns = "max_turns"

	// OptionSettingsPath points at a generated settings file the backend
	// should load (see the sandbox package).
	OptionSettingsPath = "settings_path"

	// OptionResumeID is a prior conversation ID to resume.
	OptionResumeID = "resume_id"
)

// Session is the minimal session state passed to engines.
//
// Session is a value type — it carries identity and configuration but
// no runtime state (no mutexes, no channels, no process handles).
// Orchestrators that need richer state should embed or wrap Session.
type Session struct {
	// ID uniquely identifies the session.
	ID string `json:"id"`

	// CWD is the working directory for the agent process.
	// Engines require an absolute path to an existing directory;
	// the sandbox package creates suitable scratch directories.
	CWD string `json:"cwd"`

	// Model specifies the AI model to use (e.g., "claude-sonnet-4-5-20250514").
	Model string `json:"model,omitempty"`

	// Prompt is the initial prompt or message for the session.
	Prompt string `json:"prompt,omitempty"`

	// Env holds environment-variable overrides applied on top of the
	// parent environment when the subprocess is spawned. Values here
	// win over inherited variables of the same name.
	Env map[string]string `json:"env,omitempty"`

	// Options holds backend-specific key-value configuration.
	// CLI backends use this for flags like permission mode.
	Options map[string]string `json:"options,omitempty"`
}

// Clone returns a deep copy of the session, cloning the Env and Options
// maps so engines can mutate their copy without aliasing the caller's.
func (s Session) Clone() Session {
	out := s
	if s.Env != nil {
		out.Env = make(map[string]string, len(s.Env))
		for k, v := range s.Env {
			out.Env[k] = v
		}
	}
	if s.Options != nil {
		out.Options = make(map[string]string, len(s.Options))
		for k, v := range s.Options {
			out.Options[k] = v
		}
	}
	return out
}
