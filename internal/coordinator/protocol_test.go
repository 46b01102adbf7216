package coordinator

import (
	"errors"
	"testing"
)

func TestParseRequest(t *testing.T) {
	t.Parallel()

	line := []byte(`{"request_id":"req-1","session_id":"sess-abc","tool_name":"Bash","tool_input":{"command":"ls"},"cwd":"/home/u/proj"}`)
	req, err := ParseRequest(line)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.RequestID != "req-1" || req.ToolName != "Bash" || req.CWD != "/home/u/proj" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.IsAsk() {
		t.Fatal("Bash request reported as ask")
	}
}

func TestParseRequestRejectsMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"bad json":           `{"request_id":`,
		"missing request_id": `{"tool_name":"Bash"}`,
		"missing tool_name":  `{"request_id":"req-1"}`,
		"empty":              ``,
	}
	for name, line := range cases {
		line := line
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseRequest([]byte(line)); !errors.Is(err, ErrMalformedRequest) {
				t.Fatalf("want ErrMalformedRequest, got %v", err)
			}
		})
	}
}

func TestQuestionsExtraction(t *testing.T) {
	t.Parallel()

	line := []byte(`{"request_id":"req-2","tool_name":"AskUserQuestion","tool_input":{"questions":[{"question":"Which DB?","options":[{"label":"Postgres"},{"label":"SQLite","description":"embedded"}]}]}}`)
	req, err := ParseRequest(line)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if !req.IsAsk() {
		t.Fatal("AskUserQuestion not recognized")
	}
	qs := req.Questions()
	if len(qs) != 1 {
		t.Fatalf("want 1 question, got %d", len(qs))
	}
	if qs[0].Text != "Which DB?" || len(qs[0].Options) != 2 {
		t.Fatalf("unexpected question: %+v", qs[0])
	}
	if qs[0].Options[1].Description != "embedded" {
		t.Fatalf("option description lost: %+v", qs[0].Options[1])
	}
}

func TestQuestionsNilForOtherTools(t *testing.T) {
	t.Parallel()

	req := &Request{RequestID: "r", ToolName: "Bash", ToolInput: []byte(`{"questions":[{"question":"?"}]}`)}
	if req.Questions() != nil {
		t.Fatal("questions extracted from a non-ask tool")
	}
}
