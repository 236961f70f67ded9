// Package enginetest provides a scripted engine.Engine for tests.
package enginetest

import (
	"context"
	"iter"
	"sync"
)

// Scripted replays fixed output. Response and RespondErr drive Respond;
// Snapshots are streamed in order and StreamErr, when set, is yielded after
// the last one. Prompts records every prompt received.
type Scripted struct {
	Response   string
	RespondErr error
	Snapshots  []string
	StreamErr  error

	// Gate, when non-nil, is received from before each snapshot is yielded.
	Gate chan struct{}

	mu       sync.Mutex
	prompts  []string
	yielded  int
	finished bool
}

func (s *Scripted) Respond(ctx context.Context, prompt string) (string, error) {
	s.record(prompt)
	if s.RespondErr != nil {
		return "", s.RespondErr
	}
	return s.Response, nil
}

func (s *Scripted) StreamResponse(ctx context.Context, prompt string) iter.Seq2[string, error] {
	s.record(prompt)
	return func(yield func(string, error) bool) {
		defer s.finish()
		last := ""
		for _, snap := range s.Snapshots {
			if s.Gate != nil {
				select {
				case <-s.Gate:
				case <-ctx.Done():
					yield(last, ctx.Err())
					return
				}
			}
			s.mu.Lock()
			s.yielded++
			s.mu.Unlock()
			last = snap
			if !yield(snap, nil) {
				return
			}
		}
		if s.StreamErr != nil {
			yield(last, s.StreamErr)
		}
	}
}

// Prompts returns the prompts received so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Yielded reports how many snapshots have been produced.
func (s *Scripted) Yielded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.yielded
}

// Finished reports whether the last stream iteration has returned.
func (s *Scripted) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

func (s *Scripted) record(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	s.finished = false
}

func (s *Scripted) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
}
