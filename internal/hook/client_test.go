package hook

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"
)

// fakeDaemon answers one connection with the given response line.
func fakeDaemon(t *testing.T, respond string) (string, <-chan []byte) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sk.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadBytes('\n')
		received <- line
		conn.Write([]byte(respond + "\n"))
	}()
	return path, received
}

func event(t *testing.T, toolName string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"hook_event_name": "PermissionRequest",
		"session_id":      "sess-1",
		"tool_name":       toolName,
		"tool_input":      map[string]string{"command": "ls"},
		"cwd":             "/home/u/proj",
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func TestRunAllow(t *testing.T) {
	t.Parallel()

	path, received := fakeDaemon(t, `{"decision":"allow"}`)

	var out bytes.Buffer
	if err := Run(strings.NewReader(event(t, "Bash")), &out, path); err != nil {
		t.Fatal(err)
	}

	var req request
	if err := json.Unmarshal(<-received, &req); err != nil {
		t.Fatalf("daemon received garbage: %v", err)
	}
	if req.RequestID == "" {
		t.Error("request_id not generated")
	}
	if req.ToolName != "Bash" || req.SessionID != "sess-1" || req.CWD != "/home/u/proj" {
		t.Errorf("event fields lost: %+v", req)
	}

	var result struct {
		HookSpecificOutput struct {
			HookEventName string         `json:"hookEventName"`
			Decision      map[string]any `json:"decision"`
		} `json:"hookSpecificOutput"`
	}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if result.HookSpecificOutput.HookEventName != "PermissionRequest" {
		t.Errorf("hookEventName = %q", result.HookSpecificOutput.HookEventName)
	}
	if result.HookSpecificOutput.Decision["behavior"] != "allow" {
		t.Errorf("behavior = %v, want allow", result.HookSpecificOutput.Decision["behavior"])
	}
}

func TestRunDenyCarriesNoUpdatedInput(t *testing.T) {
	t.Parallel()

	path, _ := fakeDaemon(t, `{"decision":"deny","error":"timed out"}`)

	var out bytes.Buffer
	if err := Run(strings.NewReader(event(t, "Bash")), &out, path); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.String(), `"behavior":"deny"`) {
		t.Errorf("deny missing from output: %s", out.String())
	}
	if strings.Contains(out.String(), "updatedInput") {
		t.Errorf("deny must not carry updatedInput: %s", out.String())
	}
}

func TestRunAllowWithAnswer(t *testing.T) {
	t.Parallel()

	path, _ := fakeDaemon(t, `{"decision":"allow","updatedInput":{"answers":{"Pick":"B"}}}`)

	var out bytes.Buffer
	if err := Run(strings.NewReader(event(t, "AskUserQuestion")), &out, path); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"answers":{"Pick":"B"}`) {
		t.Errorf("answer payload lost: %s", out.String())
	}
}

func TestRunSilentWithoutDaemon(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := Run(strings.NewReader(event(t, "Bash")), &out, filepath.Join(t.TempDir(), "absent.sock"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected silence, got %s", out.String())
	}
}

func TestRunIgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	raw := `{"hook_event_name":"PostToolUse","tool_name":"Bash"}`
	var out bytes.Buffer
	if err := Run(strings.NewReader(raw), &out, "/nonexistent.sock"); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected silence for non-permission event, got %s", out.String())
	}
}

func TestRunSilentOnGarbageInput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := Run(strings.NewReader("not json"), &out, "/nonexistent.sock"); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected silence, got %s", out.String())
	}
}
