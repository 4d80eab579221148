package clitest

import (
	"errors"
	"strings"
	"testing"

	"github.com/dvaldez/agentdrive"
	"github.com/dvaldez/agentdrive/engine/cli"
)

// RunBackendTests runs all applicable compliance suites for a [cli.Backend].
// Optional capabilities ([cli.Streamer], [cli.InputFormatter]) are discovered
// via type assertion — mirroring how the CLI engine resolves capabilities at
// Start time.
func RunBackendTests(t *testing.T, factory func() cli.Backend) {
	t.Helper()

	t.Run("Spawner", func(t *testing.T) {
		RunSpawnerTests(t, func() cli.Spawner { return factory() })
	})
	t.Run("Parser", func(t *testing.T) {
		RunParserTests(t, func() cli.Parser { return factory() })
	})

	probe := factory()
	if _, ok := probe.(cli.Streamer); ok {
		t.Run("Streamer", func(t *testing.T) {
			RunStreamerTests(t, func() cli.Streamer { return factory().(cli.Streamer) })
		})
	}
	if _, ok := probe.(cli.InputFormatter); ok {
		t.Run("InputFormatter", func(t *testing.T) {
			RunInputFormatterTests(t, func() cli.InputFormatter { return factory().(cli.InputFormatter) })
		})
	}
}

// RunSpawnerTests tests the [cli.Spawner] behavioral contract.
// The factory is called once per subtest to ensure fresh backend state.
func RunSpawnerTests(t *testing.T, factory func() cli.Spawner) {
	t.Helper()
	runSpawnerStructural(t, factory)
	runSpawnerSafety(t, factory)
}

// runSpawnerStructural tests structural invariants: non-empty binary, non-nil args.
func runSpawnerStructural(t *testing.T, factory func() cli.Spawner) {
	t.Helper()

	t.Run("ZeroSession", func(t *testing.T) {
		s := factory()
		binary, args := s.SpawnArgs(agentdrive.Session{})
		if binary == "" {
			t.Error("binary must be non-empty")
		}
		if args == nil {
			t.Error("args must be non-nil")
		}
	})

	t.Run("BinaryNonEmpty", func(t *testing.T) {
		s := factory()
		binary, _ := s.SpawnArgs(agentdrive.Session{Prompt: "hello"})
		if binary == "" {
			t.Error("binary must be non-empty")
		}
	})

	t.Run("BinaryNoNullBytes", func(t *testing.T) {
		s := factory()
		binary, _ := s.SpawnArgs(agentdrive.Session{Prompt: "hello"})
		if strings.Contains(binary, "\x00") {
			t.Error("binary must not contain null bytes")
		}
	})

	t.Run("ArgsNonNil", func(t *testing.T) {
		s := factory()
		_, args := s.SpawnArgs(agentdrive.Session{Prompt: "hello"})
		if args == nil {
			t.Error("args must be non-nil")
		}
	})
}

// runSpawnerSafety tests safety contracts: null-byte defense, leading-dash defense.
func runSpawnerSafety(t *testing.T, factory func() cli.Spawner) {
	t.Helper()

	t.Run("NoNullBytesInArgs", func(t *testing.T) {
		s := factory()
		_, args := s.SpawnArgs(agentdrive.Session{Prompt: "hello", Model: "test-model"})
		if i, ok := indexNullArg(args); ok {
			t.Errorf("args[%d] contains null bytes", i)
		}
	})

	t.Run("NullBytePromptExcluded", func(t *testing.T) {
		s := factory()
		_, args := s.SpawnArgs(agentdrive.Session{Prompt: "hello\x00world"})
		if containsArg(args, "hello\x00world") {
			t.Error("null-byte prompt must not appear in args")
		}
	})

	t.Run("NullByteModelExcluded", func(t *testing.T) {
		s := factory()
		_, args := s.SpawnArgs(agentdrive.Session{Prompt: "hello", Model: "gpt\x00evil"})
		if containsArg(args, "gpt\x00evil") {
			t.Error("null-byte model must not appear in args")
		}
	})

	t.Run("LeadingDashModelExcluded", func(t *testing.T) {
		s := factory()
		_, args := s.SpawnArgs(agentdrive.Session{Prompt: "hello", Model: "-evil"})
		if containsArg(args, "-evil") {
			t.Error("leading-dash model must not appear as a standalone arg")
		}
		if containsArg(args, "--model") || containsArg(args, "-m") {
			t.Error("model flag must be omitted entirely for leading-dash model")
		}
	})
}

// RunParserTests tests the [cli.Parser] behavioral contract.
// Assertions use [errors.Is] to match how the CLI engine checks parser results.
// The factory is called once per subtest to ensure fresh backend state.
func RunParserTests(t *testing.T, factory func() cli.Parser) {
	t.Helper()
	runParserErrors(t, factory)
	runParserRobustness(t, factory)
}

// runParserErrors tests error-path semantics: ErrSkipLine vs real errors.
func runParserErrors(t *testing.T, factory func() cli.Parser) {
	t.Helper()

	t.Run("EmptyLineReturnsErrSkipLine", func(t *testing.T) {
		p := factory()
		_, err := p.ParseLine("")
		if !errors.Is(err, cli.ErrSkipLine) {
			t.Errorf("ParseLine(\"\") error = %v, want ErrSkipLine", err)
		}
	})

	t.Run("WhitespaceOnlyReturnsErrSkipLine", func(t *testing.T) {
		p := factory()
		_, err := p.ParseLine("   ")
		if !errors.Is(err, cli.ErrSkipLine) {
			t.Errorf("ParseLine(\"   \") error = %v, want ErrSkipLine", err)
		}
	})

	t.Run("InvalidJSONReturnsNonSkipError", func(t *testing.T) {
		p := factory()
		_, err := p.ParseLine("not json")
		if err == nil {
			t.Error("ParseLine(\"not json\") should return an error")
		}
		if errors.Is(err, cli.ErrSkipLine) {
			t.Error("ParseLine(\"not json\") should return a non-skip error, got ErrSkipLine")
		}
	})
}

// garbageCorpus is a fixed set of adversarial inputs used by robustness tests.
var garbageCorpus = []string{
	"\x00",
	strings.Repeat("x", 65536),
	"{{{",
	"\xff\xfe",
	`{"":null}`,
	"null",
	"[]",
}

// runParserRobustness tests no-panic guarantees and guard invariants.
func runParserRobustness(t *testing.T, factory func() cli.Parser) {
	t.Helper()

	t.Run("TypeFieldWrongTypeNoPanic", func(t *testing.T) { //nolint:revive // no assertions — panics are the failure signal
		_ = t
		p := factory()
		for _, input := range []string{`{"type":99}`, `{"type":true}`, `{"type":[]}`} {
			_, _ = p.ParseLine(input)
		}
	})

	t.Run("GarbageNoPanic", func(t *testing.T) { //nolint:revive // no assertions — panics are the failure signal
		_ = t
		p := factory()
		for _, input := range garbageCorpus {
			_, _ = p.ParseLine(input)
		}
	})

	t.Run("ValidMessageHasType", func(t *testing.T) {
		// Guard invariant: if any input accidentally parses into a
		// valid Message (nil error, not ErrSkipLine), that message
		// must have a non-empty Type.
		p := factory()
		corpus := make([]string, 0, len(garbageCorpus)+2)
		corpus = append(corpus, garbageCorpus...)
		corpus = append(corpus, `{"type":99}`, `{"type":"unknown"}`)
		for _, input := range corpus {
			msg, err := p.ParseLine(input)
			if err == nil && msg.Type == "" {
				t.Errorf("ParseLine(%q) returned msg with empty Type and nil error", input)
			}
		}
	})
}

// RunStreamerTests tests the [cli.Streamer] behavioral contract.
// The factory is called once per subtest to ensure fresh backend state.
func RunStreamerTests(t *testing.T, factory func() cli.Streamer) {
	t.Helper()

	t.Run("ZeroSession", func(t *testing.T) {
		s := factory()
		binary, args := s.StreamArgs(agentdrive.Session{})
		if binary == "" {
			t.Error("binary must be non-empty")
		}
		if args == nil {
			t.Error("args must be non-nil")
		}
	})

	t.Run("PromptExcludedFromArgs", func(t *testing.T) {
		// The prompt travels over stdin in streaming mode. A prompt
		// sentinel appearing in argv defeats the point (argv length
		// limits, process listing exposure).
		const sentinel = "STREAM-PROMPT-SENTINEL-8d1a"
		s := factory()
		_, args := s.StreamArgs(agentdrive.Session{Prompt: sentinel})
		if containsArg(args, sentinel) {
			t.Errorf("prompt must not appear in stream args: %v", args)
		}
	})

	t.Run("NoNullBytesInArgs", func(t *testing.T) {
		s := factory()
		_, args := s.StreamArgs(agentdrive.Session{Prompt: "hello", Model: "test-model"})
		if i, ok := indexNullArg(args); ok {
			t.Errorf("args[%d] contains null bytes", i)
		}
	})
}

// RunInputFormatterTests tests the [cli.InputFormatter] behavioral contract.
// The factory is called once per subtest to ensure fresh backend state.
func RunInputFormatterTests(t *testing.T, factory func() cli.InputFormatter) {
	t.Helper()

	t.Run("SimpleMessage", func(t *testing.T) {
		f := factory()
		data, err := f.FormatInput("hello")
		if err != nil {
			t.Fatalf("FormatInput(\"hello\") error = %v", err)
		}
		if len(data) == 0 {
			t.Error("formatted input must be non-empty")
		}
	})

	t.Run("NullByteMessageRejected", func(t *testing.T) {
		f := factory()
		if _, err := f.FormatInput("hello\x00world"); err == nil {
			t.Error("FormatInput with null bytes should return an error")
		}
	})

	t.Run("EmptyMessage", func(t *testing.T) {
		f := factory()
		if _, err := f.FormatInput(""); err != nil {
			t.Errorf("FormatInput(\"\") should not error: %v", err)
		}
	})
}

// containsArg reports whether args contains s as an exact element.
func containsArg(args []string, s string) bool {
	for _, a := range args {
		if a == s {
			return true
		}
	}
	return false
}

// indexNullArg returns the index of the first arg containing a null byte.
func indexNullArg(args []string) (int, bool) {
	for i, a := range args {
		if strings.Contains(a, "\x00") {
			return i, true
		}
	}
	return 0, false
}
