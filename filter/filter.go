// Package filter provides composable channel middleware for narrowing
// agentdrive message streams. Consumers wrap proc.Output() with these
// functions to select the message granularity they need.
package filter

import (
	"context"
	"strings"

	"github.com/dvaldez/agentdrive"
)

// Predicate decides whether a message passes a filter.
type Predicate func(agentdrive.Message) bool

// Keep returns a channel passing only messages the predicate accepts.
// Spawns a goroutine that exits when ctx is cancelled or ch is closed;
// the returned channel is closed when the goroutine exits.
func Keep(ctx context.Context, ch <-chan agentdrive.Message, accept Predicate) <-chan agentdrive.Message {
	return pipe(ctx, ch, accept)
}

// Types returns a channel that only passes messages of the given types.
func Types(ctx context.Context, ch <-chan agentdrive.Message, types ...agentdrive.MessageType) <-chan agentdrive.Message {
	allowed := make(map[agentdrive.MessageType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return pipe(ctx, ch, func(msg agentdrive.Message) bool {
		_, ok := allowed[msg.Type]
		return ok
	})
}

// Final returns a channel that drops all delta types, passing only
// complete messages.
func Final(ctx context.Context, ch <-chan agentdrive.Message) <-chan agentdrive.Message {
	return pipe(ctx, ch, func(msg agentdrive.Message) bool {
		return !IsDelta(msg.Type)
	})
}

// Results returns a channel that passes only MessageResult.
func Results(ctx context.Context, ch <-chan agentdrive.Message) <-chan agentdrive.Message {
	return pipe(ctx, ch, func(msg agentdrive.Message) bool {
		return msg.Type == agentdrive.MessageResult
	})
}

// IsDelta reports whether t is a streaming delta (partial) message type.
// Convention: all delta types use the "_delta" suffix (e.g., text_delta,
// tool_use_delta, thinking_delta). This avoids needing to update a
// switch statement each time a new delta type is added.
func IsDelta(t agentdrive.MessageType) bool {
	return strings.HasSuffix(string(t), "_delta")
}

// pipe spawns a goroutine that reads from ch, passes messages matching
// the predicate to the returned channel, and closes it when ch closes
// or ctx is cancelled. Callers must either drain the returned channel
// or cancel ctx to avoid goroutine leaks. Messages accepted by the
// predicate may be silently dropped if ctx is cancelled mid-send.
func pipe(ctx context.Context, ch <-chan agentdrive.Message, accept Predicate) <-chan agentdrive.Message {
	out := make(chan agentdrive.Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if accept(msg) && !trySend(ctx, out, msg) {
					return
				}
			}
		}
	}()
	return out
}

// trySend sends msg on out, returning true on success.
// Returns false if ctx is cancelled before the send completes.
func trySend(ctx context.Context, out chan<- agentdrive.Message, msg agentdrive.Message) bool {
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
