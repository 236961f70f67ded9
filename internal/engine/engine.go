// Package engine defines the contract of the inference backend behind the
// gateway and provides the concrete backends.
package engine

import (
	"context"
	"fmt"
	"iter"
)

// Engine generates text for a prompt.
//
// StreamResponse yields snapshots: each value is the full text generated so
// far, not a delta. The sequence ends when generation completes; a non-nil
// error ends it early. Implementations must be safe for concurrent use.
type Engine interface {
	Respond(ctx context.Context, prompt string) (string, error)
	StreamResponse(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// Backend names accepted by New.
const (
	BackendEcho   = "echo"
	BackendGemini = "gemini"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Gemini  GeminiConfig
}

// New constructs the backend named by opts.Backend.
func New(ctx context.Context, opts Options) (Engine, error) {
	switch opts.Backend {
	case "", BackendEcho:
		return NewEcho(), nil
	case BackendGemini:
		return NewGemini(ctx, opts.Gemini)
	default:
		return nil, fmt.Errorf("unknown engine backend %q", opts.Backend)
	}
}
