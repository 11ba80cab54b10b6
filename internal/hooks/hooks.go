// Package hooks implements the host lifecycle hook protocol: the host
// invokes the binary at lifecycle points with a JSON payload on stdin, and
// a JSON response on stdout can inject context or block the event. All
// mode activation and loop continuation flows through here.
package hooks

import (
	"encoding/json"
	"fmt"
	"io"
)

// Hook event names as delivered by the host.
const (
	EventUserPromptSubmit = "UserPromptSubmit"
	EventPreToolUse       = "PreToolUse"
	EventPostToolUse      = "PostToolUse"
	EventStop             = "Stop"
	EventSessionStart     = "SessionStart"
	EventSessionEnd       = "SessionEnd"
)

// Input is the payload the host writes to stdin. Fields are populated
// per event; absent fields decode to their zero value.
type Input struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name"`

	// UserPromptSubmit
	Prompt string `json:"prompt,omitempty"`

	// PreToolUse / PostToolUse
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`

	// Stop: true when this stop was already blocked by a hook once,
	// meaning the agent is stopping again after a forced continuation.
	StopHookActive bool `json:"stop_hook_active,omitempty"`

	// SessionEnd
	Reason string `json:"reason,omitempty"`
}

// DecodeInput reads one hook payload from r.
func DecodeInput(r io.Reader) (*Input, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decoding hook input: %w", err)
	}
	if in.HookEventName == "" {
		return nil, fmt.Errorf("hook input missing hook_event_name")
	}
	return &in, nil
}

// SpecificOutput carries per-event response fields, chiefly context
// injection on UserPromptSubmit and SessionStart.
type SpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// Output is the response written to stdout. A zero Output means the event
// proceeds untouched.
type Output struct {
	// Decision set to "block" prevents the event; Reason is then shown
	// to the agent as the next instruction.
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`

	// SystemMessage surfaces a note to the user without affecting the
	// event.
	SystemMessage string `json:"systemMessage,omitempty"`

	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// Block builds a blocking response with the instruction the agent should
// follow instead of stopping.
func Block(reason string) *Output {
	return &Output{Decision: "block", Reason: reason}
}

// InjectContext builds a pass-through response that adds context to the
// conversation.
func InjectContext(event, context string) *Output {
	return &Output{HookSpecificOutput: &SpecificOutput{
		HookEventName:     event,
		AdditionalContext: context,
	}}
}

// Encode writes the response to w. A nil output encodes as an empty
// object, which the host treats as "proceed".
func (o *Output) Encode(w io.Writer) error {
	if o == nil {
		o = &Output{}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(o)
}
