package openai

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Unix(1700000000, 0)

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestNewCompletionID(t *testing.T) {
	a, b := NewCompletionID(), NewCompletionID()
	assert.True(t, strings.HasPrefix(a, "chatcmpl-"))
	assert.Len(t, a, len("chatcmpl-")+36)
	assert.NotEqual(t, a, b)
}

func TestNewChatCompletionWireFormat(t *testing.T) {
	resp := NewChatCompletion("chatcmpl-1", fixedTime, "m", "hello")
	assert.Equal(t,
		`{"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"m",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`,
		marshal(t, resp))
}

func TestChunkEncoderWireFormat(t *testing.T) {
	enc := NewChunkEncoder("chatcmpl-1", fixedTime, "m")

	chunk, ok := enc.Next("Hi")
	require.True(t, ok)
	assert.Equal(t,
		`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"m",`+
			`"choices":[{"index":0,"delta":{"content":"Hi"}}]}`,
		marshal(t, chunk))

	assert.Equal(t,
		`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"m",`+
			`"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		marshal(t, enc.Finish()))
}

func TestChunkEncoderDeltas(t *testing.T) {
	enc := NewChunkEncoder("id", fixedTime, "m")

	var deltas []string
	for _, snap := range []string{"H", "He", "He", "Hel"} {
		if chunk, ok := enc.Next(snap); ok {
			assert.Equal(t, "id", chunk.ID)
			assert.Nil(t, chunk.Choices[0].FinishReason)
			assert.Nil(t, chunk.Choices[0].Delta.Role)
			deltas = append(deltas, *chunk.Choices[0].Delta.Content)
		}
	}
	assert.Equal(t, []string{"H", "e", "l"}, deltas)
	assert.Equal(t, "Hel", enc.Content())
}

func TestChunkEncoderNeverRetracts(t *testing.T) {
	enc := NewChunkEncoder("id", fixedTime, "m")
	_, ok := enc.Next("hello")
	require.True(t, ok)

	_, ok = enc.Next("help")
	assert.False(t, ok)
	_, ok = enc.Next("")
	assert.False(t, ok)
}

func TestNewModelList(t *testing.T) {
	assert.Equal(t,
		`{"object":"list","data":[{"id":"foundation-model","object":"model"}]}`,
		marshal(t, NewModelList("foundation-model")))
}
