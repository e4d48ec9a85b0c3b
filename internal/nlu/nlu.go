// Package nlu classifies transcripts the keyword rules did not match.
package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"slices"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"opencode/internal/intent"
	"opencode/internal/proxy"
)

type response struct {
	Intent    string `json:"intent"`
	Container string `json:"container"`
}

const promptHead = `You are the intent classifier for OpenCode, a local voice assistant.
Your ONLY job is to map the user's utterance to one of the intents below.

RULES:
1. Do NOT converse or answer the question.
2. Output ONLY JSON, no markdown:
   {"intent": "<intent>", "container": "<name or empty>"}
3. "container" is set only for start/stop/restart container intents, copied
   exactly as spoken.
4. If nothing fits, use "unrecognized".

INTENTS:
`

type Classifier struct {
	client openai.Client
	model  openai.ChatModel
}

func New(client openai.Client) *Classifier {
	return &Classifier{client: client, model: openai.ChatModelGPT5Nano}
}

// NewClient builds an API client, optionally behind a SOCKS5 proxy.
func NewClient(apiKey, socksAddr string) (openai.Client, error) {
	if apiKey == "" {
		return openai.Client{}, fmt.Errorf("api key not set")
	}

	hc, err := proxy.NewHTTPClient(socksAddr)
	if err != nil {
		return openai.Client{}, err
	}

	return openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(hc),
	), nil
}

func (c *Classifier) Classify(ctx context.Context, transcript string, names []intent.Name) (intent.Classification, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(Prompt(names)),
			openai.UserMessage(transcript),
		},
		Model: c.model,
	})
	if err != nil {
		return intent.Classification{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return intent.Classification{}, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	log.Debug("Classified", "data", content)

	return Parse(content, names)
}

func Prompt(names []intent.Name) string {
	var b strings.Builder
	b.WriteString(promptHead)
	for _, n := range names {
		b.WriteString("- ")
		b.WriteString(string(n))
		b.WriteByte('\n')
	}
	b.WriteString("- ")
	b.WriteString(string(intent.Unrecognized))
	b.WriteByte('\n')
	return b.String()
}

// Parse decodes the model output. Intents outside names map to Unrecognized.
func Parse(content string, names []intent.Name) (intent.Classification, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if content == "" {
		return intent.Classification{}, fmt.Errorf("empty message content")
	}

	var out response
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return intent.Classification{}, fmt.Errorf("unmarshal classification: %w (raw: %s)", err, content)
	}

	name := intent.Name(strings.ToLower(strings.TrimSpace(out.Intent)))
	if !slices.Contains(names, name) {
		return intent.Classification{Name: intent.Unrecognized}, nil
	}

	return intent.Classification{Name: name, Container: strings.TrimSpace(out.Container)}, nil
}
