package a2a

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/model"
	adksession "google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/zhengjr9/foundation-bridge/internal/session"
)

// Streamer is the part of the inference session the agent needs.
type Streamer interface {
	StreamResponse(ctx context.Context, prompt string) <-chan session.Snapshot
}

// AgentConfig holds the configuration for the session-backed A2A agent.
type AgentConfig struct {
	// Name is the agent name exposed via A2A AgentCard.
	Name string
	// Description is exposed via A2A AgentCard.
	Description string
	// Session is the process-wide inference session.
	Session Streamer
}

// New returns an agent.Agent whose Run streams the session's response to
// the user's message as ADK session events.
func New(cfg AgentConfig) (agent.Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("a2a agent: Name must not be empty")
	}
	if cfg.Session == nil {
		return nil, fmt.Errorf("a2a agent: Session must not be nil")
	}

	return agent.New(agent.Config{
		Name:        cfg.Name,
		Description: cfg.Description,
		Run:         runFunc(cfg),
	})
}

// runFunc returns the Run closure that drives one agent invocation: a
// partial event per non-empty delta, then a final event with the full text.
func runFunc(cfg AgentConfig) func(agent.InvocationContext) iter.Seq2[*adksession.Event, error] {
	return func(ctx agent.InvocationContext) iter.Seq2[*adksession.Event, error] {
		return func(yield func(*adksession.Event, error) bool) {
			streamCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			prompt := extractQuery(ctx.UserContent())

			var tracker session.Tracker
			for snap := range cfg.Session.StreamResponse(streamCtx, prompt) {
				if snap.Err != nil {
					yield(nil, fmt.Errorf("generation failed: %w", snap.Err))
					return
				}
				delta := tracker.Next(snap.Content)
				if delta == "" {
					continue
				}
				if !yield(newEvent(ctx, cfg.Name, delta, true), nil) {
					return
				}
			}
			if err := streamCtx.Err(); err != nil {
				yield(nil, err)
				return
			}

			// The non-partial event makes IsFinalResponse() true so the
			// runner closes the invocation.
			yield(newEvent(ctx, cfg.Name, tracker.Content(), false), nil)
		}
	}
}

func newEvent(ctx agent.InvocationContext, author, text string, partial bool) *adksession.Event {
	ev := adksession.NewEvent(ctx.InvocationID())
	ev.Author = author
	ev.Branch = ctx.Branch()
	ev.LLMResponse = model.LLMResponse{
		Content: textContent(text),
		Partial: partial,
	}
	return ev
}

// extractQuery pulls the plain-text content from the genai.Content that ADK
// puts in the InvocationContext when the caller sends a message. Text parts
// are joined with single spaces, as in chat message content.
func extractQuery(content *genai.Content) string {
	if content == nil {
		return ""
	}
	texts := make([]string, 0, len(content.Parts))
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, " ")
}

// textContent is a small helper that wraps a string into a *genai.Content.
func textContent(text string) *genai.Content {
	return &genai.Content{
		Role:  genai.RoleModel,
		Parts: []*genai.Part{{Text: text}},
	}
}
