package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/zhengjr9/foundation-bridge/internal/errors"
	"github.com/zhengjr9/foundation-bridge/internal/session"
)

// DecodeChatRequest parses an OpenAI chat completions request body. model
// and messages are required. Every failure wraps ErrMalformedBody.
func DecodeChatRequest(r io.Reader) (*ChatCompletionRequest, error) {
	var wire struct {
		Model    json.RawMessage `json:"model"`
		Messages json.RawMessage `json:"messages"`
		Stream   *bool           `json:"stream"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wire); err != nil {
		return nil, malformed("decode body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("unexpected data after request body")
	}

	req := &ChatCompletionRequest{Stream: wire.Stream}
	if err := decodeNonNull(wire.Model, &req.Model); err != nil {
		return nil, malformed("model: %w", err)
	}
	if err := decodeNonNull(wire.Messages, &req.Messages); err != nil {
		return nil, malformed("messages: %w", err)
	}
	return req, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %w", apierrors.ErrMalformedBody, fmt.Errorf(format, args...))
}

// NewCompletionID returns a fresh id shared by a response and all its chunks.
func NewCompletionID() string {
	return "chatcmpl-" + uuid.NewString()
}

// NewChatCompletion wraps a finished response into a single-choice completion.
func NewChatCompletion(id string, created time.Time, model, content string) ChatCompletionResponse {
	return ChatCompletionResponse{
		ID:      id,
		Object:  ObjectCompletion,
		Created: created.Unix(),
		Model:   model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      ResponseMessage{Role: RoleAssistant, Content: content},
				FinishReason: FinishReasonStop,
			},
		},
	}
}

// NewModelList returns the static listing of the single served model.
func NewModelList(modelID string) ModelList {
	return ModelList{
		Object: ObjectList,
		Data:   []Model{{ID: modelID, Object: ObjectModel}},
	}
}

// ChunkEncoder turns the snapshots of one stream into chunks. id, created
// and model are fixed for the lifetime of the stream.
type ChunkEncoder struct {
	id      string
	created int64
	model   string
	tracker session.Tracker
}

func NewChunkEncoder(id string, created time.Time, model string) *ChunkEncoder {
	return &ChunkEncoder{id: id, created: created.Unix(), model: model}
}

// Next returns the content chunk for snapshot. ok is false when the snapshot
// added nothing, in which case no chunk must be sent.
func (e *ChunkEncoder) Next(snapshot string) (chunk StreamChunk, ok bool) {
	delta := e.tracker.Next(snapshot)
	if delta == "" {
		return StreamChunk{}, false
	}
	return e.chunk(Delta{Content: &delta}, nil), true
}

// Finish returns the terminal chunk: empty delta, finish_reason "stop".
func (e *ChunkEncoder) Finish() StreamChunk {
	reason := FinishReasonStop
	return e.chunk(Delta{}, &reason)
}

// Content is the text streamed so far.
func (e *ChunkEncoder) Content() string {
	return e.tracker.Content()
}

func (e *ChunkEncoder) chunk(delta Delta, finishReason *string) StreamChunk {
	return StreamChunk{
		ID:      e.id,
		Object:  ObjectChunk,
		Created: e.created,
		Model:   e.model,
		Choices: []StreamChoice{
			{
				Index:        0,
				Delta:        delta,
				FinishReason: finishReason,
			},
		},
	}
}

// streamError is the payload of the frame sent when generation fails after
// the stream has started.
func streamError(err error) apierrors.Envelope {
	if errors.Is(err, context.DeadlineExceeded) {
		return apierrors.NewEnvelope(apierrors.TypeTimeout, "generation timed out")
	}
	return apierrors.NewEnvelope(apierrors.TypeServer, err.Error())
}
