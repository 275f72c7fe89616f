package api

import (
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/okian/sentimoji/internal/adapters/mq/queue"
	"github.com/okian/sentimoji/internal/domain/fusion"
)

// AnalyzeHandler serves the analysis endpoints.
type AnalyzeHandler struct {
	deps          Analyzer
	maxTextLength int
	maxBatchSize  int
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps Analyzer, maxTextLength, maxBatchSize int) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps, maxTextLength: maxTextLength, maxBatchSize: maxBatchSize}
}

type textRequest struct {
	Text string `json:"text"`
}

type batchRequest struct {
	Comments []fusion.Comment `json:"comments"`
}

type batchResponse struct {
	Results []fusion.Analysis `json:"results"`
}

func (h *AnalyzeHandler) checkLength(text string) error {
	if n := utf8.RuneCountInString(text); n > h.maxTextLength {
		return errors.Newf("text has %d characters, limit is %d", n, h.maxTextLength)
	}
	return nil
}

// readText decodes a {"text": ...} body; a missing or null text is "".
func (h *AnalyzeHandler) readText(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return "", false
	}
	var req textRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return "", false
	}
	if err := h.checkLength(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return "", false
	}
	return req.Text, true
}

// HandleText handles POST /api/analyze requests.
func (h *AnalyzeHandler) HandleText(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readText(w, r, "api.analyze")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.AnalyzeText(r.Context(), text))
}

// HandleEmoji handles POST /api/analyze/emoji requests.
func (h *AnalyzeHandler) HandleEmoji(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readText(w, r, "api.analyze_emoji")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.AnalyzeEmoji(r.Context(), text).Detailed())
}

// HandleCombined handles POST /api/analyze/combined requests. Internal
// failures are reported in the error field of a 200 response.
func (h *AnalyzeHandler) HandleCombined(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readText(w, r, "api.analyze_combined")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.AnalyzeCombined(r.Context(), text))
}

// HandleBatch handles POST /api/analyze/batch requests.
func (h *AnalyzeHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req batchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	switch n := len(req.Comments); {
	case n == 0:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("no comments")))
		return
	case n > h.maxBatchSize:
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.Newf("%d comments, limit is %d", n, h.maxBatchSize)))
		return
	}
	for i, c := range req.Comments {
		if err := h.checkLength(c.Text); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, errors.Wrap(err, "comment "+strconv.Itoa(i))))
			return
		}
	}

	results, err := h.deps.AnalyzeBatch(r.Context(), req.Comments)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, batchResponse{Results: results})
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
