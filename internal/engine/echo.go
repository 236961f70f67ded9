package engine

import (
	"context"
	"iter"
	"unicode"
)

// Echo replies with the prompt itself. It streams one word at a time and is
// the default backend for local runs without model credentials.
type Echo struct{}

func NewEcho() *Echo { return &Echo{} }

func (*Echo) Respond(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return prompt, nil
}

func (*Echo) StreamResponse(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, end := range wordBoundaries(prompt) {
			if err := ctx.Err(); err != nil {
				yield(prompt[:end], err)
				return
			}
			if !yield(prompt[:end], nil) {
				return
			}
		}
	}
}

// wordBoundaries returns the byte offsets at which each word of s ends,
// including the whitespace that precedes it. The last offset is len(s).
func wordBoundaries(s string) []int {
	var ends []int
	inWord := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if inWord && space {
			ends = append(ends, i)
		}
		inWord = !space
	}
	if len(s) > 0 && (len(ends) == 0 || ends[len(ends)-1] != len(s)) {
		ends = append(ends, len(s))
	}
	return ends
}
