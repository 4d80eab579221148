package claude

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/dvaldez/agentdrive"
	"github.com/dvaldez/agentdrive/engine/cli"
	"github.com/dvaldez/agentdrive/engine/cli/internal/jsonutil"
	"github.com/dvaldez/agentdrive/heal"
)

// ParseLine parses a single line of Claude's stream-json output into a Message.
// Returns cli.ErrSkipLine for blank or whitespace-only lines.
//
// Lines that fail a direct JSON parse are run through heal before being
// rejected: a line truncated by a scanner limit or a killed subprocess often
// still carries a usable prefix (most importantly the final result payload).
func (b *Backend) ParseLine(line string) (agentdrive.Message, error) {
	if strings.TrimSpace(line) == "" {
		return agentdrive.Message{}, cli.ErrSkipLine
	}

	raw, err := parseLineObject(line)
	if err != nil {
		return agentdrive.Message{}, err
	}

	typeStr := jsonutil.GetString(raw, "type")
	if typeStr == "" {
		return agentdrive.Message{}, fmt.Errorf("claude: missing or empty type field")
	}

	var msg agentdrive.Message
	msg.Raw = json.RawMessage(line)

	switch typeStr {
	case "system":
		parseSystemMessage(raw, &msg)
	case "init":
		msg.Type = agentdrive.MessageInit
	case "assistant":
		parseAssistantMessage(raw, &msg)
	case "tool":
		parseToolMessage(raw, &msg)
	case "result":
		parseResultMessage(raw, &msg)
	case "error":
		parseErrorMessage(raw, &msg)
	case "stream_event":
		// Two-level dispatch: stream_event wraps an inner event with its
		// own type discriminator. See parseStreamEvent for the inner dispatch.
		parseStreamEvent(raw, &msg)
	default:
		msg.Type = sanitizeUnknownType(typeStr)
	}

	return msg, nil
}

// parseLineObject decodes a stream-json line into a map, salvaging truncated
// lines via heal. A healed value must still be an object; a healed array has
// no type discriminator and is rejected.
func parseLineObject(line string) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err == nil {
		return raw, nil
	}

	v, err := heal.Recover(line)
	if err != nil {
		if errors.Is(err, heal.ErrUnrecoverable) {
			return nil, fmt.Errorf("claude: invalid JSON line")
		}
		return nil, fmt.Errorf("claude: %w", err)
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("claude: recovered line is not an object")
	}
	return raw, nil
}

// parseSystemMessage handles "system" events, detecting init subtype.
func parseSystemMessage(raw map[string]any, msg *agentdrive.Message) {
	subtype := jsonutil.GetString(raw, "subtype")
	if subtype == "init" {
		msg.Type = agentdrive.MessageInit
		return
	}
	msg.Type = agentdrive.MessageSystem
	msg.Content = jsonutil.GetString(raw, "message")
}

// parseAssistantMessage handles "assistant" events with text and optional tool_use.
func parseAssistantMessage(raw map[string]any, msg *agentdrive.Message) {
	msg.Type = agentdrive.MessageText

	// Try nested message.content array first (standard format).
	if message := jsonutil.GetMap(raw, "message"); message != nil {
		parseAssistantContent(message, msg)
		msg.Usage = extractTokenUsage(message)
	}

	// Fallback: flat "text" field.
	if msg.Content == "" {
		msg.Content = jsonutil.GetString(raw, "text")
	}

	// Fallback: flat "content" field.
	if msg.Content == "" {
		msg.Content = jsonutil.GetString(raw, "content")
	}
}

// parseAssistantContent iterates the content array inside an assistant message,
// concatenating text blocks and capturing tool_use blocks (last one wins).
func parseAssistantContent(message map[string]any, msg *agentdrive.Message) {
	contentArr, ok := message["content"].([]any)
	if !ok {
		return
	}

	var b strings.Builder
	for _, c := range contentArr {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := cm["text"].(string); ok {
			b.WriteString(t)
		}
		if jsonutil.GetString(cm, "type") == "tool_use" {
			msg.Tool = extractToolCall(cm)
		}
	}
	msg.Content = b.String()
}

// extractToolCall builds a ToolCall from a content block map.
func extractToolCall(cm map[string]any) *agentdrive.ToolCall {
	tool := &agentdrive.ToolCall{
		Name: jsonutil.GetString(cm, "name"),
	}
	if input, ok := cm["input"]; ok {
		if data, err := json.Marshal(input); err == nil {
			tool.Input = data
		}
	}
	return tool
}

// parseToolMessage handles "tool" events (completed tool execution results).
func parseToolMessage(raw map[string]any, msg *agentdrive.Message) {
	msg.Type = agentdrive.MessageToolResult
	tool := extractToolCall(raw)
	if output, ok := raw["output"]; ok {
		if data, err := json.Marshal(output); err == nil {
			tool.Output = data
		}
	}
	msg.Tool = tool
}

// parseResultMessage handles "result" events (turn completion with optional usage).
func parseResultMessage(raw map[string]any, msg *agentdrive.Message) {
	msg.Type = agentdrive.MessageResult
	msg.Content = jsonutil.GetString(raw, "text")
	// "result" field takes precedence over "text" when both are present.
	if result, ok := raw["result"].(string); ok {
		msg.Content = result
	}
	if sr := jsonutil.GetString(raw, "stop_reason"); sr != "" {
		msg.StopReason = sanitizeStopReason(sr)
	}
	msg.Usage = extractTokenUsage(raw)
}

// parseErrorMessage handles "error" events.
func parseErrorMessage(raw map[string]any, msg *agentdrive.Message) {
	msg.Type = agentdrive.MessageError
	code := jsonutil.GetString(raw, "code")
	message := jsonutil.GetString(raw, "message")
	// Fallback: "error" field as string.
	if message == "" {
		message = jsonutil.GetString(raw, "error")
	}
	if code != "" {
		msg.Content = code + ": " + message
	} else {
		msg.Content = message
	}
}

// parseStreamEvent handles "stream_event" wrapper events from --include-partial-messages.
// Dispatches content_block_delta subtypes to delta message types; message_delta
// carries the authoritative stop_reason (the result event's stop_reason is null
// in streaming mode); remaining lifecycle events become MessageSystem.
func parseStreamEvent(raw map[string]any, msg *agentdrive.Message) {
	event := jsonutil.GetMap(raw, "event")
	if event == nil {
		msg.Type = agentdrive.MessageSystem
		msg.Content = "stream_event: missing or invalid event field"
		return
	}

	switch jsonutil.GetString(event, "type") {
	case "content_block_delta":
		parseContentBlockDelta(event, msg)
	case "message_delta":
		msg.Type = agentdrive.MessageSystem
		msg.Content = "stream_event: message_delta"
		if delta := jsonutil.GetMap(event, "delta"); delta != nil {
			if sr := jsonutil.GetString(delta, "stop_reason"); sr != "" {
				msg.StopReason = sanitizeStopReason(sr)
			}
		}
	default:
		// message_start, content_block_start, content_block_stop,
		// message_stop — all lifecycle events.
		msg.Type = agentdrive.MessageSystem
		msg.Content = "stream_event: " + jsonutil.GetString(event, "type")
	}
}

// parseContentBlockDelta extracts delta content from a content_block_delta event.
func parseContentBlockDelta(event map[string]any, msg *agentdrive.Message) {
	delta := jsonutil.GetMap(event, "delta")
	if delta == nil {
		msg.Type = agentdrive.MessageSystem
		msg.Content = "content_block_delta: missing or invalid delta field"
		return
	}

	switch jsonutil.GetString(delta, "type") {
	case "text_delta":
		msg.Type = agentdrive.MessageTextDelta
		msg.Content = jsonutil.GetString(delta, "text")
	case "input_json_delta":
		msg.Type = agentdrive.MessageToolUseDelta
		msg.Content = jsonutil.GetString(delta, "partial_json")
	case "thinking_delta":
		msg.Type = agentdrive.MessageThinkingDelta
		msg.Content = jsonutil.GetString(delta, "thinking")
	default:
		msg.Type = agentdrive.MessageSystem
		msg.Content = "content_block_delta: unknown delta type: " + jsonutil.GetString(delta, "type")
	}
}

// extractTokenUsage extracts input/output token counts from a source map.
// Returns nil if no meaningful usage data is present (not &Usage{0,0}).
func extractTokenUsage(source map[string]any) *agentdrive.Usage {
	usage := jsonutil.GetMap(source, "usage")
	if usage == nil {
		return nil
	}
	inputTokens := jsonutil.GetInt(usage, "input_tokens")
	outputTokens := jsonutil.GetInt(usage, "output_tokens")
	if inputTokens == 0 && outputTokens == 0 {
		return nil
	}
	return &agentdrive.Usage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}
}

// sanitizeStopReason bounds a wire stop_reason value. Values that are too
// long or contain control characters collapse to empty (treated as absent).
func sanitizeStopReason(sr string) agentdrive.StopReason {
	const maxLen = 64
	if len(sr) > maxLen {
		return ""
	}
	for _, r := range sr {
		if unicode.IsControl(r) {
			return ""
		}
	}
	return agentdrive.StopReason(sr)
}

// sanitizeUnknownType converts an unknown type string to a MessageType.
// Types that are too long or contain control characters are mapped to
// MessageSystem to prevent unbounded type values.
func sanitizeUnknownType(typeStr string) agentdrive.MessageType {
	const maxTypeLen = 64
	if len(typeStr) > maxTypeLen {
		return agentdrive.MessageSystem
	}
	for _, r := range typeStr {
		if unicode.IsControl(r) {
			return agentdrive.MessageSystem
		}
	}
	return agentdrive.MessageType(typeStr)
}
