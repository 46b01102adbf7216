package security

import (
	"testing"
)

func TestRedactor_BotTokenPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare token",
			input: "token is 123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw1",
			want:  "token is " + RedactPlaceholder,
		},
		{
			name:  "token inside bot api url",
			input: "telegram: sendMessage request failed: Post https://api.telegram.org/bot123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw1/sendMessage",
			want:  "telegram: sendMessage request failed: Post https://api.telegram.org/bot" + RedactPlaceholder + "/sendMessage",
		},
		{
			name:  "no secrets",
			input: "request resolved: allow",
			want:  "request resolved: allow",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "chat id is not a token",
			input: "owner registered: chat_id=123456789",
			want:  "owner registered: chat_id=123456789",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRedactor()
			if got := r.Redact(tt.input); got != tt.want {
				t.Errorf("Redact(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_Literals(t *testing.T) {
	t.Parallel()

	r := NewRedactor()
	r.AddLiteral("12:ab") // too short for the pattern
	r.AddLiteral("")      // ignored

	got := r.Redact("dialing with 12:ab now")
	want := "dialing with " + RedactPlaceholder + " now"
	if got != want {
		t.Errorf("Redact = %q, want %q", got, want)
	}
}
