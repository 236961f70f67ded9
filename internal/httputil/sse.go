package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apierrors "github.com/zhengjr9/foundation-bridge/internal/errors"
)

// DoneSentinel is the payload of the last frame of an OpenAI stream.
const DoneSentinel = "[DONE]"

// SetSSEHeaders sets the standard headers for a Server-Sent Events response.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// EventWriter writes `data:` frames to an SSE response and flushes each one
// so nothing is buffered between engine output and the client.
type EventWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEventWriter wraps w. It fails when w cannot flush.
func NewEventWriter(w http.ResponseWriter) (*EventWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, apierrors.ErrStreamingUnsupported
	}
	return &EventWriter{w: w, flusher: f}, nil
}

// Flush pushes any buffered bytes (including headers) to the client.
func (ew *EventWriter) Flush() {
	ew.flusher.Flush()
}

// WriteJSON marshals v and writes it as a single `data: <json>` frame.
func (ew *EventWriter) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return ew.writeData(data)
}

// WriteDone writes the `data: [DONE]` sentinel frame.
func (ew *EventWriter) WriteDone() error {
	return ew.writeData([]byte(DoneSentinel))
}

func (ew *EventWriter) writeData(data []byte) error {
	if _, err := fmt.Fprintf(ew.w, "data: %s\n\n", data); err != nil {
		return err
	}
	ew.flusher.Flush()
	return nil
}
