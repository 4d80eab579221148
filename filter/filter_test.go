package filter_test

import (
	"context"
	"testing"
	"time"

	"github.com/dvaldez/agentdrive"
	"github.com/dvaldez/agentdrive/filter"
)

func feed(msgs ...agentdrive.Message) chan agentdrive.Message {
	ch := make(chan agentdrive.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return ch
}

func collect(t *testing.T, ch <-chan agentdrive.Message) []agentdrive.Message {
	t.Helper()
	var out []agentdrive.Message
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, msg)
		case <-time.After(time.Second):
			t.Fatal("timed out draining filtered channel")
		}
	}
}

func TestTypes(t *testing.T) {
	in := feed(
		agentdrive.Message{Type: agentdrive.MessageInit},
		agentdrive.Message{Type: agentdrive.MessageText, Content: "a"},
		agentdrive.Message{Type: agentdrive.MessageResult, Content: "b"},
	)
	got := collect(t, filter.Types(context.Background(), in, agentdrive.MessageText, agentdrive.MessageResult))
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].Type != agentdrive.MessageText || got[1].Type != agentdrive.MessageResult {
		t.Errorf("types = %v, %v", got[0].Type, got[1].Type)
	}
}

func TestFinal_DropsDeltas(t *testing.T) {
	in := feed(
		agentdrive.Message{Type: agentdrive.MessageTextDelta},
		agentdrive.Message{Type: agentdrive.MessageThinkingDelta},
		agentdrive.Message{Type: agentdrive.MessageToolUseDelta},
		agentdrive.Message{Type: agentdrive.MessageText, Content: "complete"},
		agentdrive.Message{Type: agentdrive.MessageResult},
	)
	got := collect(t, filter.Final(context.Background(), in))
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].Content != "complete" {
		t.Errorf("first message content = %q", got[0].Content)
	}
}

func TestResults(t *testing.T) {
	in := feed(
		agentdrive.Message{Type: agentdrive.MessageText},
		agentdrive.Message{Type: agentdrive.MessageResult, Content: "final"},
	)
	got := collect(t, filter.Results(context.Background(), in))
	if len(got) != 1 || got[0].Content != "final" {
		t.Errorf("got %v, want single result message", got)
	}
}

func TestKeep_CustomPredicate(t *testing.T) {
	in := feed(
		agentdrive.Message{Type: agentdrive.MessageText, Content: "short"},
		agentdrive.Message{Type: agentdrive.MessageText, Content: "a much longer message"},
	)
	got := collect(t, filter.Keep(context.Background(), in, func(m agentdrive.Message) bool {
		return len(m.Content) > 10
	}))
	if len(got) != 1 || got[0].Content != "a much longer message" {
		t.Errorf("got %v, want only the long message", got)
	}
}

func TestKeep_ContextCancelClosesOutput(t *testing.T) {
	in := make(chan agentdrive.Message) // never closed
	ctx, cancel := context.WithCancel(context.Background())
	out := filter.Keep(ctx, in, func(agentdrive.Message) bool { return true })

	cancel()
	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("output channel not closed after cancel")
	}
}

func TestIsDelta(t *testing.T) {
	tests := []struct {
		typ  agentdrive.MessageType
		want bool
	}{
		{agentdrive.MessageTextDelta, true},
		{agentdrive.MessageThinkingDelta, true},
		{agentdrive.MessageToolUseDelta, true},
		{agentdrive.MessageText, false},
		{agentdrive.MessageResult, false},
		{"custom_delta", true},
	}
	for _, tt := range tests {
		if got := filter.IsDelta(tt.typ); got != tt.want {
			t.Errorf("IsDelta(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}
