package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, e Engine, prompt string) []string {
	t.Helper()
	var out []string
	for snap, err := range e.StreamResponse(context.Background(), prompt) {
		require.NoError(t, err)
		out = append(out, snap)
	}
	return out
}

func TestEchoStreamsWordPrefixes(t *testing.T) {
	got := collect(t, NewEcho(), "hello big world")
	assert.Equal(t, []string{"hello", "hello big", "hello big world"}, got)
}

func TestEchoTrailingSpaceAndEmpty(t *testing.T) {
	assert.Equal(t, []string{"hi", "hi "}, collect(t, NewEcho(), "hi "))
	assert.Empty(t, collect(t, NewEcho(), ""))
}

func TestEchoRespond(t *testing.T) {
	got, err := NewEcho().Respond(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "ping", got)
}

func TestEchoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range NewEcho().StreamResponse(ctx, "a b c") {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, context.Canceled)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Options{Backend: "llama"})
	assert.Error(t, err)

	e, err := New(context.Background(), Options{})
	require.NoError(t, err)
	assert.IsType(t, &Echo{}, e)
}

func TestNewGeminiRequiresCredentials(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}
