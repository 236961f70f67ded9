package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/zhengjr9/foundation-bridge/internal/errors"
	"github.com/zhengjr9/foundation-bridge/internal/httputil"
	"github.com/zhengjr9/foundation-bridge/internal/metrics"
	"github.com/zhengjr9/foundation-bridge/internal/session"
)

// Session is the inference session the handler drives.
type Session interface {
	Respond(ctx context.Context, prompt string) (string, error)
	StreamResponse(ctx context.Context, prompt string) <-chan session.Snapshot
}

// Handler implements the OpenAI models and chat completions endpoints.
type Handler struct {
	session Session
	modelID string
	timeout time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewHandler constructs a Handler. A zero timeout disables the per-request
// deadline; m may be nil.
func NewHandler(sess Session, modelID string, timeout time.Duration, m *metrics.Metrics) *Handler {
	return &Handler{
		session: sess,
		modelID: modelID,
		timeout: timeout,
		metrics: m,
		now:     time.Now,
	}
}

// ListModels handles GET /v1/models.
func (h *Handler) ListModels(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(NewModelList(h.modelID))
}

// ChatCompletions handles POST /v1/chat/completions.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := DecodeChatRequest(r.Body)
	if err != nil {
		slog.Debug("rejecting chat request", "error", err)
		h.metrics.ObserveRequest(metrics.ModeUnknown, metrics.OutcomeBadRequest, time.Since(start))
		apierrors.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	prompt := req.LastUserContent()

	if req.IsStream() {
		outcome := h.serveStream(ctx, w, req, prompt)
		h.metrics.ObserveRequest(metrics.ModeStreaming, outcome, time.Since(start))
		return
	}

	outcome := h.serveBlocking(ctx, w, req, prompt)
	h.metrics.ObserveRequest(metrics.ModeBlocking, outcome, time.Since(start))
}

func (h *Handler) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(parent, h.timeout)
	}
	return context.WithCancel(parent)
}

func (h *Handler) serveBlocking(ctx context.Context, w http.ResponseWriter, req *ChatCompletionRequest, prompt string) string {
	content, err := h.session.Respond(ctx, prompt)
	if err != nil {
		slog.Warn("completion failed", "model", req.Model, "error", err)
		writeEngineError(w, err)
		return metrics.OutcomeEngineError
	}

	resp := NewChatCompletion(NewCompletionID(), h.now(), req.Model, content)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("write completion", "id", resp.ID, "error", err)
		return metrics.OutcomeClientGone
	}
	return metrics.OutcomeOK
}

// serveStream runs the SSE loop: one chunk per non-empty delta, then the
// finish chunk and the [DONE] sentinel. A failed write stops the loop and,
// through the deferred cancel, the engine producer.
func (h *Handler) serveStream(ctx context.Context, w http.ResponseWriter, req *ChatCompletionRequest, prompt string) string {
	ew, err := httputil.NewEventWriter(w)
	if err != nil {
		apierrors.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return metrics.OutcomeStreamFailed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id := NewCompletionID()
	enc := NewChunkEncoder(id, h.now(), req.Model)

	httputil.SetSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	ew.Flush()

	for snap := range h.session.StreamResponse(ctx, prompt) {
		if snap.Err != nil {
			return h.failStream(ew, id, snap.Err)
		}
		chunk, ok := enc.Next(snap.Content)
		if !ok {
			continue
		}
		if err := ew.WriteJSON(chunk); err != nil {
			slog.Info("stream client went away", "id", id, "error", err)
			return metrics.OutcomeClientGone
		}
		h.metrics.IncChunks()
	}

	// The producer also closes the channel when ctx ends.
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("stream client went away", "id", id, "streamed_bytes", len(enc.Content()))
			return metrics.OutcomeClientGone
		}
		return h.failStream(ew, id, err)
	}

	if err := ew.WriteJSON(enc.Finish()); err != nil {
		return metrics.OutcomeClientGone
	}
	if err := ew.WriteDone(); err != nil {
		return metrics.OutcomeClientGone
	}
	return metrics.OutcomeOK
}

// failStream sends one error frame and leaves the stream unterminated: no
// finish chunk and no [DONE]. The failure is reported in-band instead of by
// closing the stream without a payload.
func (h *Handler) failStream(ew *httputil.EventWriter, id string, err error) string {
	slog.Warn("stream generation failed", "id", id, "error", err)
	_ = ew.WriteJSON(streamError(err))
	return metrics.OutcomeStreamFailed
}

func writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		apierrors.WriteJSONError(w, http.StatusGatewayTimeout, "generation timed out")
		return
	}
	apierrors.WriteJSONError(w, http.StatusInternalServerError, err.Error())
}
