// Package sandbox provisions throwaway working directories for agent
// sessions.
//
// Agents given a real project directory can read and write anything in it.
// A Box is the opposite default: a fresh scratch directory containing a
// generated settings file that the backend loads via
// [agentdrive.OptionSettingsPath]. The shipped [Restrictive] settings allow
// read-only tools and deny shell and network access; callers loosen them
// deliberately, per session, rather than discovering too late that the
// default was open.
package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvaldez/agentdrive"
)

// Permissions mirrors the permissions block of a Claude Code settings file.
type Permissions struct {
	// Allow lists tool patterns the agent may use without prompting.
	Allow []string `json:"allow,omitempty"`

	// Deny lists tool patterns the agent must never use. Deny wins over
	// Allow on overlap.
	Deny []string `json:"deny,omitempty"`

	// DefaultMode is the permission mode for tools matching neither list.
	DefaultMode string `json:"defaultMode,omitempty"`
}

// Settings is the generated settings file content.
type Settings struct {
	Permissions Permissions `json:"permissions"`

	// Env is written into the settings file and also exported by Box.Env
	// for Session.Env overrides.
	Env map[string]string `json:"env,omitempty"`

	// IncludeCoAuthoredBy controls commit attribution trailers.
	IncludeCoAuthoredBy bool `json:"includeCoAuthoredBy"`

	// CleanupPeriodDays bounds how long the CLI retains chat transcripts.
	CleanupPeriodDays int `json:"cleanupPeriodDays,omitempty"`
}

// Restrictive returns the default locked-down settings: read-only file
// tools allowed, shell and network tools denied, telemetry and updater
// traffic disabled.
func Restrictive() Settings {
	return Settings{
		Permissions: Permissions{
			Allow:       []string{"Read", "Grep", "Glob", "LS"},
			Deny:        []string{"Bash", "WebFetch", "WebSearch"},
			DefaultMode: "default",
		},
		Env: map[string]string{
			"DISABLE_AUTOUPDATER": "1",
			"DISABLE_TELEMETRY":   "1",
			"CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC": "1",
		},
		IncludeCoAuthoredBy: false,
		CleanupPeriodDays:   7,
	}
}

// Box is a provisioned sandbox directory with its settings file.
type Box struct {
	// Dir is the scratch working directory.
	Dir string

	// SettingsPath is the generated settings file inside Dir.
	SettingsPath string

	settings Settings
}

// New provisions a sandbox under parent: a unique scratch directory with a
// settings.json serialized from settings. parent is created if missing;
// empty parent uses the system temp directory.
func New(parent string, settings Settings) (*Box, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("sandbox: create parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, "agentdrive-*")
	if err != nil {
		return nil, fmt.Errorf("sandbox: create dir: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("sandbox: marshal settings: %w", err)
	}
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("sandbox: write settings: %w", err)
	}

	return &Box{Dir: dir, SettingsPath: path, settings: settings}, nil
}

// Env returns a copy of the environment overrides for subprocess spawning.
func (b *Box) Env() map[string]string {
	if len(b.settings.Env) == 0 {
		return nil
	}
	env := make(map[string]string, len(b.settings.Env))
	for k, v := range b.settings.Env {
		env[k] = v
	}
	return env
}

// Session builds a session rooted in the sandbox: CWD is the scratch
// directory, Env carries the settings overrides, and the settings file is
// wired through OptionSettingsPath.
func (b *Box) Session(id, prompt string) agentdrive.Session {
	return agentdrive.Session{
		ID:     id,
		CWD:    b.Dir,
		Prompt: prompt,
		Env:    b.Env(),
		Options: map[string]string{
			agentdrive.OptionSettingsPath: b.SettingsPath,
		},
	}
}

// Remove deletes the sandbox directory and everything in it.
func (b *Box) Remove() error {
	if err := os.RemoveAll(b.Dir); err != nil {
		return fmt.Errorf("sandbox: remove: %w", err)
	}
	return nil
}
