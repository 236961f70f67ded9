package openai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	ObjectCompletion = "chat.completion"
	ObjectChunk      = "chat.completion.chunk"
	ObjectList       = "list"
	ObjectModel      = "model"

	FinishReasonStop = "stop"
)

// ChatCompletionRequest mirrors the subset of the OpenAI chat completions
// request body the gateway understands.
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   *bool         `json:"stream,omitempty"`
}

// IsStream reports whether the client asked for an SSE response.
func (r *ChatCompletionRequest) IsStream() bool {
	return r.Stream != nil && *r.Stream
}

// LastUserContent returns the content of the last user message, or "" if
// there is none. Earlier turns are not forwarded to the engine.
func (r *ChatCompletionRequest) LastUserContent() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// ChatMessage is an inbound message with its content normalized to text.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContentPart is one element of an array-form message content. Only the
// text field is read; parts without it (images, audio) are skipped.
type ContentPart struct {
	Type string  `json:"type,omitempty"`
	Text *string `json:"text,omitempty"`
}

var errNull = errors.New("null")

// UnmarshalJSON decodes role as a string and content as either a string or
// an array of parts whose texts are joined with single spaces.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    json.RawMessage `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("message: %w", err)
	}

	var role string
	if err := decodeNonNull(raw.Role, &role); err != nil {
		return fmt.Errorf("message role: %w", err)
	}
	content, err := decodeContent(raw.Content)
	if err != nil {
		return fmt.Errorf("message content: %w", err)
	}

	m.Role = role
	m.Content = content
	return nil
}

// decodeContent tries the string variant first, then the parts variant.
func decodeContent(raw json.RawMessage) (string, error) {
	var s string
	if err := decodeNonNull(raw, &s); err == nil {
		return s, nil
	}

	var parts []*ContentPart
	if err := decodeNonNull(raw, &parts); err != nil {
		return "", fmt.Errorf("want string or array of content parts: %w", err)
	}
	texts := make([]string, 0, len(parts))
	for i, p := range parts {
		if p == nil {
			return "", fmt.Errorf("part %d: %w", i, errNull)
		}
		if p.Text != nil {
			texts = append(texts, *p.Text)
		}
	}
	return strings.Join(texts, " "), nil
}

// decodeNonNull is json.Unmarshal that also rejects a missing or null value,
// which json.Unmarshal would silently accept.
func decodeNonNull(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return errors.New("missing")
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return errNull
	}
	return json.Unmarshal(trimmed, v)
}

// ChatCompletionResponse is the non-streaming response body.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Choice wraps a single completion result.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ResponseMessage is the assistant message of a completion.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamChunk is one SSE data object in OpenAI streaming format.
type StreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice is a single choice delta in a stream chunk. FinishReason is
// set only on the terminal chunk.
type StreamChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason,omitempty"`
}

// Delta carries incremental content in a stream chunk.
type Delta struct {
	Role    *string `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// ModelList is the body of GET /v1/models.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// Model is one entry of a ModelList.
type Model struct {
	ID     string `json:"id"`
	Object string `json:"object"`
}
