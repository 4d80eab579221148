package agentdrive

import (
	"encoding/json"
	"time"
)

// MessageType identifies the kind of message from an agent process.
type MessageType string

const (
	// MessageInit is the handshake message sent at session start.
	MessageInit MessageType = "init"

	// MessageText is assistant text output.
	MessageText MessageType = "text"

	// MessageTextDelta is a token-level text fragment (streaming mode).
	MessageTextDelta MessageType = "text_delta"

	// MessageThinkingDelta is a token-level thinking fragment (streaming mode).
	MessageThinkingDelta MessageType = "thinking_delta"

	// MessageToolUse indicates the agent is invoking a tool.
	MessageToolUse MessageType = "tool_use"

	// MessageToolUseDelta is a partial tool-input fragment (streaming mode).
	MessageToolUseDelta MessageType = "tool_use_delta"

	// MessageToolResult contains the output of a tool invocation.
	MessageToolResult MessageType = "tool_result"

	// MessageResult is the turn-completion message with the final text
	// and optional usage data.
	MessageResult MessageType = "result"

	// MessageError indicates an error from the agent or runtime.
	MessageError MessageType = "error"

	// MessageSystem contains system-level messages (e.g., status changes).
	MessageSystem MessageType = "system"
)

// StopReason describes why the agent's model stopped generating.
type StopReason string

const (
	// StopEndTurn means the model finished its turn naturally.
	StopEndTurn StopReason = "end_turn"

	// StopMaxTokens means generation hit the output token limit.
	// Output after this stop is the classic source of truncated JSON.
	StopMaxTokens StopReason = "max_tokens"

	// StopToolUse means the model stopped to invoke a tool.
	StopToolUse StopReason = "tool_use"

	// StopRefusal means the model declined to continue.
	StopRefusal StopReason = "refusal"
)

// Message is a structured output from an agent process.
type Message struct {
	// Type identifies the kind of message.
	Type MessageType `json:"type"`

	// Content is the text content (for Text, Error, System messages).
	Content string `json:"content,omitempty"`

	// Tool contains tool invocation details (for ToolUse, ToolResult messages).
	Tool *ToolCall `json:"tool,omitempty"`

	// Usage contains token usage data (typically on Result messages).
	Usage *Usage `json:"usage,omitempty"`

	// StopReason is set on Result messages when the backend reports why
	// generation stopped. Empty when unknown.
	StopReason StopReason `json:"stop_reason,omitempty"`

	// Process carries subprocess metadata, set on Init messages.
	Process *ProcessMeta `json:"process,omitempty"`

	// Raw is the original unparsed JSON from the backend.
	// Backends populate this for pass-through or debugging.
	Raw json.RawMessage `json:"raw,omitempty"`

	// Timestamp is when the message was produced.
	Timestamp time.Time `json:"timestamp"`
}

// ToolCall describes a tool invocation by the agent.
type ToolCall struct {
	// Name is the tool identifier.
	Name string `json:"name"`

	// Input is the tool's input parameters as raw JSON.
	Input json.RawMessage `json:"input,omitempty"`

	// Output is the tool's result as raw JSON.
	Output json.RawMessage `json:"output,omitempty"`
}

// Usage contains token usage data from the agent's model.
type Usage struct {
	// InputTokens is the cumulative context window fill.
	InputTokens int `json:"input_tokens"`

	// OutputTokens is the number of tokens generated.
	OutputTokens int `json:"output_tokens"`
}

// ProcessMeta is subprocess metadata attached to Init messages.
type ProcessMeta struct {
	// PID is the operating-system process ID.
	PID int `json:"pid"`

	// Binary is the resolved path of the spawned executable.
	Binary string `json:"binary"`
}
