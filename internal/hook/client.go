// Package hook implements the Claude Code permission hook: it forwards the
// hook event to the daemon over the Unix socket and prints the decision in
// hook output format. Every failure degrades gracefully to no output, which
// makes Claude Code fall back to its interactive prompt.
package hook

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
)

// permissionEvent is the only hook event the client forwards.
const permissionEvent = "PermissionRequest"

// recvTimeout bounds the whole socket exchange. It must stay below the hook
// timeout configured in settings.json (330s) so the daemon's own timeout
// deny reaches Claude Code instead of a hook kill.
const recvTimeout = 310 * time.Second

// Event is the hook payload Claude Code writes to stdin.
type Event struct {
	HookEventName         string          `json:"hook_event_name"`
	SessionID             string          `json:"session_id"`
	ToolName              string          `json:"tool_name"`
	ToolInput             json.RawMessage `json:"tool_input"`
	CWD                   string          `json:"cwd"`
	PermissionSuggestions json.RawMessage `json:"permission_suggestions"`
}

// request is the line sent to the daemon.
type request struct {
	RequestID             string          `json:"request_id"`
	SessionID             string          `json:"session_id"`
	ToolName              string          `json:"tool_name"`
	ToolInput             json.RawMessage `json:"tool_input"`
	CWD                   string          `json:"cwd"`
	PermissionSuggestions json.RawMessage `json:"permission_suggestions"`
}

// response is the daemon's answer.
type response struct {
	Decision           string          `json:"decision"`
	UpdatedInput       json.RawMessage `json:"updatedInput"`
	UpdatedPermissions json.RawMessage `json:"updatedPermissions"`
	Error              string          `json:"error"`
}

// Run reads the hook event from in, consults the daemon at socketPath, and
// writes the hook decision to out. A nil error with no output means "no
// opinion": Claude Code proceeds with its normal interactive flow.
func Run(in io.Reader, out io.Writer, socketPath string) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return nil
	}

	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil
	}
	if event.HookEventName != permissionEvent {
		return nil
	}

	resp, ok := exchange(&event, socketPath)
	if !ok {
		return nil
	}

	payload, err := json.Marshal(render(resp))
	if err != nil {
		return nil
	}
	payload = append(payload, '\n')
	_, err = out.Write(payload)
	return err
}

// exchange performs the socket round trip. Any failure reports !ok so the
// caller stays silent.
func exchange(event *Event, socketPath string) (*response, bool) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, false
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(recvTimeout)); err != nil {
		return nil, false
	}

	toolInput := event.ToolInput
	if len(toolInput) == 0 {
		toolInput = json.RawMessage(`{}`)
	}
	suggestions := event.PermissionSuggestions
	if len(suggestions) == 0 {
		suggestions = json.RawMessage(`[]`)
	}

	line, err := json.Marshal(request{
		RequestID:             uuid.NewString(),
		SessionID:             event.SessionID,
		ToolName:              event.ToolName,
		ToolInput:             toolInput,
		CWD:                   event.CWD,
		PermissionSuggestions: suggestions,
	})
	if err != nil {
		return nil, false
	}
	if _, err := conn.Write(append(line, '\n')); err != nil {
		return nil, false
	}

	answer, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && len(answer) == 0 {
		return nil, false
	}

	var resp response
	if err := json.Unmarshal(answer, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// render converts the daemon response to Claude Code hook output format.
// Anything that is not an explicit allow is a deny.
func render(resp *response) map[string]any {
	decision := map[string]any{"behavior": "deny"}
	if resp.Decision == "allow" {
		decision = map[string]any{"behavior": "allow"}
		if len(resp.UpdatedInput) > 0 && string(resp.UpdatedInput) != "null" {
			decision["updatedInput"] = resp.UpdatedInput
		}
		if len(resp.UpdatedPermissions) > 0 && string(resp.UpdatedPermissions) != "null" {
			decision["updatedPermissions"] = resp.UpdatedPermissions
		}
	}
	return map[string]any{
		"hookSpecificOutput": map[string]any{
			"hookEventName": permissionEvent,
			"decision":      decision,
		},
	}
}
