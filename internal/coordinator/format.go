package coordinator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mvasilyev/jean-claude-stopkran/internal/pending"
)

// Preview limits for tool-input snippets. Telegram messages cap at 4096
// characters; these keep the prompt readable on a watch face.
const (
	maxEditPreview    = 120
	maxWritePreview   = 200
	maxGenericPreview = 300
	shortSessionLen   = 8
)

// RenderPrompt builds the approver-facing message and button layout for a
// request: one button per option plus a deny button for question requests,
// a plain allow/deny pair otherwise.
func RenderPrompt(req *Request, questions []pending.Question) Prompt {
	if len(questions) > 0 {
		return Prompt{
			Text:    formatAskText(req, questions),
			Buttons: askButtons(req.RequestID, questions),
		}
	}
	return Prompt{
		Text: formatRequestText(req),
		Buttons: [][]Button{{
			{Label: "✅ Allow", Data: "allow:" + req.RequestID},
			{Label: "❌ Deny", Data: "deny:" + req.RequestID},
		}},
	}
}

// askButtons lays out one row per option of the first question, then a
// deny row. Option indices in the callback data are zero-based.
func askButtons(requestID string, questions []pending.Question) [][]Button {
	var rows [][]Button
	for i, opt := range questions[0].Options {
		label := opt.Label
		if label == "" {
			label = fmt.Sprintf("Option %d", i+1)
		}
		rows = append(rows, []Button{{
			Label: fmt.Sprintf("%d. %s", i+1, label),
			Data:  fmt.Sprintf("answer:%s:%d", requestID, i),
		}})
	}
	rows = append(rows, []Button{{Label: "❌ Deny", Data: "deny:" + requestID}})
	return rows
}

func formatAskText(req *Request, questions []pending.Question) string {
	var lines []string
	lines = append(lines, "❓ Question from Claude", "")

	for _, q := range questions {
		lines = append(lines, q.Text, "")
		for i, opt := range q.Options {
			if opt.Description != "" {
				lines = append(lines, fmt.Sprintf("%d. %s - %s", i+1, opt.Label, opt.Description))
			} else {
				lines = append(lines, fmt.Sprintf("%d. %s", i+1, opt.Label))
			}
		}
		lines = append(lines, "")
	}

	if s := shortSession(req.SessionID); s != "" {
		lines = append(lines, "Session: "+s)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func formatRequestText(req *Request) string {
	var lines []string
	lines = append(lines, "🔐 Permission Request", "")

	if req.CWD != "" {
		lines = append(lines, "📂 "+req.CWD)
	}
	lines = append(lines, "🔧 "+req.ToolName, "", snippet(req))

	if s := shortSession(req.SessionID); s != "" {
		lines = append(lines, "", "Session: "+s)
	}

	return strings.Join(lines, "\n")
}

// snippet renders a human-readable preview of the tool input. Well-known
// tools get a tailored preview; everything else falls back to raw JSON.
func snippet(req *Request) string {
	input := req.toolInputMap()

	switch req.ToolName {
	case "Bash":
		return stringField(input, "command")
	case "Edit":
		old := truncate(stringField(input, "old_string"), maxEditPreview)
		new := truncate(stringField(input, "new_string"), maxEditPreview)
		return fmt.Sprintf("%s\n-  %s\n+  %s", stringField(input, "file_path"), old, new)
	case "Write":
		content := truncate(stringField(input, "content"), maxWritePreview)
		return stringField(input, "file_path") + "\n" + content
	default:
		raw, err := json.Marshal(input)
		if err != nil || input == nil {
			return truncate(string(req.ToolInput), maxGenericPreview)
		}
		return truncate(string(raw), maxGenericPreview)
	}
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// truncate cuts s to at most n runes so a multibyte character is never
// split mid-sequence.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// shortSession returns the first eight characters of the session id, enough
// to tell concurrent sessions apart in a prompt.
func shortSession(sessionID string) string {
	if len(sessionID) > shortSessionLen {
		return sessionID[:shortSessionLen]
	}
	return sessionID
}
