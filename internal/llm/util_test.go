package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"title\": \"CFO Roundup\"}\n```",
			expected: `{"title": "CFO Roundup"}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"title\": \"CFO Roundup\"}\n```",
			expected: `{"title": "CFO Roundup"}`,
		},
		{
			name:     "plain JSON",
			input:    `{"title": "CFO Roundup"}`,
			expected: `{"title": "CFO Roundup"}`,
		},
		{
			name:     "preamble",
			input:    "Here is the article:\n{\"title\": \"Spotlight\"}",
			expected: `{"title": "Spotlight"}`,
		},
		{
			name:     "trailing chatter",
			input:    "{\"title\": \"Trend\"}\n\nLet me know if you need changes!",
			expected: `{"title": "Trend"}`,
		},
		{
			name:     "braces inside strings",
			input:    "Output: {\"content\": \"Use {placeholders} sparingly\"}",
			expected: `{"content": "Use {placeholders} sparingly"}`,
		},
		{
			name:     "escaped quotes",
			input:    `{"content": "He said \"hello {\""}`,
			expected: `{"content": "He said \"hello {\""}`,
		},
		{
			name:     "not json",
			input:    "the model refused",
			expected: "the model refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 1}}`, extractJSONObject(`{"a": {"b": 1}} tail`))
	assert.Equal(t, "", extractJSONObject(`{"unterminated": 1`))
	assert.Equal(t, "", extractJSONObject("not json"))
	assert.Equal(t, "", extractJSONObject(""))
}
