package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opencode/internal/intent"
)

var names = []intent.Name{intent.SystemStatus, intent.RestartContainer, intent.Time}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    intent.Classification
	}{
		{
			name:    "plain",
			content: `{"intent": "system_status", "container": ""}`,
			want:    intent.Classification{Name: intent.SystemStatus},
		},
		{
			name:    "container",
			content: `{"intent": "restart_container", "container": " Web-1 "}`,
			want:    intent.Classification{Name: intent.RestartContainer, Container: "Web-1"},
		},
		{
			name:    "fenced",
			content: "```json\n{\"intent\": \"TIME\"}\n```",
			want:    intent.Classification{Name: intent.Time},
		},
		{
			name:    "unknown intent",
			content: `{"intent": "order_pizza"}`,
			want:    intent.Classification{Name: intent.Unrecognized},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.content, names)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("   ", names)
	assert.Error(t, err)

	_, err = Parse("sure, that's system status", names)
	assert.Error(t, err)
}

func TestPrompt(t *testing.T) {
	p := Prompt(names)
	for _, n := range names {
		assert.Contains(t, p, "- "+string(n)+"\n")
	}
	assert.Contains(t, p, "- unrecognized\n")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("", "")
	assert.Error(t, err)

	_, err = NewClient("sk-test", "")
	assert.NoError(t, err)
}
