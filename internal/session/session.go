// Package session adapts the process-wide inference engine to the two
// operations the HTTP layer needs: a blocking completion and a cancellable
// stream of content snapshots.
package session

import (
	"context"
	"fmt"
	"log/slog"

	apierrors "github.com/zhengjr9/foundation-bridge/internal/errors"
	"github.com/zhengjr9/foundation-bridge/internal/engine"
)

// Snapshot is one element of a response stream: the full content generated
// so far, or the error that ended generation.
type Snapshot struct {
	Content string
	Err     error
}

// Session is the single long-lived handle to the engine. It holds no
// per-request state and is safe for concurrent use as long as the engine is.
type Session struct {
	engine engine.Engine
}

// New wraps e.
func New(e engine.Engine) *Session {
	return &Session{engine: e}
}

// Respond blocks until the engine produced the complete response.
func (s *Session) Respond(ctx context.Context, prompt string) (string, error) {
	content, err := s.engine.Respond(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apierrors.ErrEngine, err)
	}
	return content, nil
}

// StreamResponse starts generation and returns the snapshot channel. The
// channel is closed when generation completes. If generation fails, the last
// value carries Err. Cancelling ctx stops the producer; a consumer that stops
// reading must cancel ctx so the producer can exit.
func (s *Session) StreamResponse(ctx context.Context, prompt string) <-chan Snapshot {
	ch := make(chan Snapshot)
	go func() {
		defer close(ch)
		send := func(snap Snapshot) bool {
			select {
			case ch <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for content, err := range s.engine.StreamResponse(ctx, prompt) {
			if err != nil {
				slog.Debug("engine stream failed", "error", err)
				send(Snapshot{Err: fmt.Errorf("%w: %w", apierrors.ErrEngine, err)})
				return
			}
			if !send(Snapshot{Content: content}) {
				return
			}
		}
	}()
	return ch
}
