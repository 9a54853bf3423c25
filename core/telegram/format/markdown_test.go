package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdown(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"a.b", `a\.b`},
		{"*bold* _it_", `\*bold\* \_it\_`},
		{"(1+1)=2!", `\(1\+1\)\=2\!`},
		{"digits 42 stay", "digits 42 stay"},
		{`already \. escaped`, `already \. escaped`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, EscapeMarkdown(tc.in), "input %q", tc.in)
	}
}

func TestEscapeMarkdownIdempotent(t *testing.T) {
	inputs := []string{
		"_*[]()~`>#+-=|{}.!",
		"Ciao {user_id}, vedi [qui](x)!",
		`mixed \_ pre-escaped _ raw`,
		"multi\nline.text",
	}
	for _, in := range inputs {
		once := EscapeMarkdown(in)
		twice := EscapeMarkdown(once)
		assert.Equal(t, once, twice, "input %q", in)
	}
}
