package coordinator

import (
	"encoding/json"
	"fmt"

	"github.com/mvasilyev/jean-claude-stopkran/internal/pending"
)

// askToolName is the tool whose input carries a multiple-choice question set.
const askToolName = "AskUserQuestion"

// Request is the one-line JSON record the hook writes on connect.
// ToolInput is opaque to the coordinator except for prompt rendering and,
// for AskUserQuestion, the embedded question list.
type Request struct {
	RequestID             string          `json:"request_id"`
	SessionID             string          `json:"session_id"`
	ToolName              string          `json:"tool_name"`
	ToolInput             json.RawMessage `json:"tool_input"`
	CWD                   string          `json:"cwd"`
	PermissionSuggestions json.RawMessage `json:"permission_suggestions,omitempty"`
}

// Response is the one-line JSON record written back before the connection
// closes. UpdatedInput carries the selected answer for multiple-choice
// requests, in the hook's updatedInput wire format.
type Response struct {
	Decision     string          `json:"decision"`
	UpdatedInput *pending.Answer `json:"updatedInput,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// ParseRequest decodes and validates a request line. Any parse failure or
// missing required field is reported as ErrMalformedRequest.
func ParseRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if req.RequestID == "" {
		return nil, fmt.Errorf("%w: missing request_id", ErrMalformedRequest)
	}
	if req.ToolName == "" {
		return nil, fmt.Errorf("%w: missing tool_name", ErrMalformedRequest)
	}
	return &req, nil
}

// IsAsk reports whether this request is an interactive multiple-choice
// query rather than a binary allow/deny.
func (r *Request) IsAsk() bool {
	return r.ToolName == askToolName
}

// Questions extracts the question set from an AskUserQuestion tool input.
// Returns nil for other tools or when the input carries no questions.
func (r *Request) Questions() []pending.Question {
	if !r.IsAsk() || len(r.ToolInput) == 0 {
		return nil
	}
	var input struct {
		Questions []pending.Question `json:"questions"`
	}
	if err := json.Unmarshal(r.ToolInput, &input); err != nil {
		return nil
	}
	return input.Questions
}

// toolInputMap decodes the tool input as a generic object for prompt
// rendering. Returns nil when the input is absent or not an object.
func (r *Request) toolInputMap() map[string]any {
	if len(r.ToolInput) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(r.ToolInput, &m); err != nil {
		return nil
	}
	return m
}
