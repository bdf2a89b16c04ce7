package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownToTelegramHTML_Empty(t *testing.T) {
	assert.Equal(t, "", MarkdownToTelegramHTML(""))
}

func TestMarkdownToTelegramHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "**Spam**", "<b>Spam</b>"},
		{"inline code", "run `a<b`", "run <code>a&lt;b</code>"},
		{"code block", "```go\nx := 1\n```", "<pre><code>x := 1\n</code></pre>"},
		{"link", "[docs](https://core.telegram.org)", `<a href="https://core.telegram.org">docs</a>`},
		{"heading", "# Title", "Title"},
		{"bullet", "- one\n* two", "• one\n• two"},
		{"escape", "/spam <msg> <delay>", "/spam &lt;msg&gt; &lt;delay&gt;"},
		{"strike", "~~old~~", "<s>old</s>"},
		{"italic", "a _word_ here", "a <i>word</i> here"},
		{"underscores in commands survive", "/stop_all_spam and /spam_list", "/stop_all_spam and /spam_list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarkdownToTelegramHTML(tt.in))
		})
	}
}
