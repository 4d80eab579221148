package cli_test

import (
	"github.com/dvaldez/agentdrive"
	"github.com/dvaldez/agentdrive/engine/cli"
)

// Compile-time interface satisfaction checks.
// These fail the build if any signature drifts.

type stubSpawner struct{}

func (stubSpawner) SpawnArgs(_ agentdrive.Session) (string, []string) { return "", nil }

var _ cli.Spawner = stubSpawner{}

type stubParser struct{}

func (stubParser) ParseLine(_ string) (agentdrive.Message, error) { return agentdrive.Message{}, nil }

var _ cli.Parser = stubParser{}

type stubStreamer struct{}

func (stubStreamer) StreamArgs(_ agentdrive.Session) (string, []string) { return "", nil }

var _ cli.Streamer = stubStreamer{}

type stubInputFormatter struct{}

func (stubInputFormatter) FormatInput(_ string) ([]byte, error) { return nil, nil }

var _ cli.InputFormatter = stubInputFormatter{}
