package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/okian/sentimoji/internal/adapters/repository"
)

// EmojiHandler serves the usage board.
type EmojiHandler struct {
	deps     Board
	maxLimit int
}

// NewEmojiHandler creates a new emoji board handler.
func NewEmojiHandler(deps Board, maxLimit int) *EmojiHandler {
	return &EmojiHandler{deps: deps, maxLimit: maxLimit}
}

// HandleTop handles GET /api/emoji/top?limit=N requests. Without a limit
// the ten most used emoji are returned.
func (h *EmojiHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.emoji_top"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := defaultTopLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.TopEmoji(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []repository.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleRank handles GET /api/emoji/rank/{emoji} requests.
func (h *EmojiHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.emoji_rank"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	e := strings.TrimPrefix(r.URL.Path, "/api/emoji/rank/")
	if e == "" || strings.Contains(e, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	entry, err := h.rank(r.Context(), e)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *EmojiHandler) rank(ctx context.Context, e string) (repository.Entry, error) {
	entry, err := h.deps.EmojiRank(ctx, e)
	return entry, errors.Wrapf(err, "rank %q", e)
}
