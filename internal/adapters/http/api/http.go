// Package api registers the HTTP routes of the analysis service.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/sentimoji/internal/adapters/repository"
	"github.com/okian/sentimoji/internal/domain/emoji"
	"github.com/okian/sentimoji/internal/domain/fusion"
	"github.com/okian/sentimoji/internal/domain/sentiment"
)

// Default request limits.
const (
	defaultMaxTextLength = 5000
	defaultMaxBatchSize  = 100
	defaultMaxLimit      = 100
	defaultTopLimit      = 10
	maxBodyBytes         = 1 << 20
)

// Analyzer runs the three analyses a request can ask for.
type Analyzer interface {
	AnalyzeText(ctx context.Context, text string) sentiment.Verdict
	AnalyzeEmoji(ctx context.Context, text string) emoji.Summary
	AnalyzeCombined(ctx context.Context, text string) fusion.Analysis
	// AnalyzeBatch returns one analysis per comment, in order.
	AnalyzeBatch(ctx context.Context, comments []fusion.Comment) ([]fusion.Analysis, error)
}

// Board exposes the emoji usage board.
type Board interface {
	TopEmoji(ctx context.Context, n int) ([]repository.Entry, error)
	EmojiRank(ctx context.Context, e string) (repository.Entry, error)
}

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Analyzer
	Board
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	analyzeHandler *AnalyzeHandler
	emojiHandler   *EmojiHandler
}

// ServerOption configures request limits.
type ServerOption func(*limits)

type limits struct {
	maxTextLength int
	maxBatchSize  int
	maxLimit      int
}

// WithMaxTextLength caps the number of characters accepted per text.
func WithMaxTextLength(n int) ServerOption {
	return func(l *limits) {
		if n > 0 {
			l.maxTextLength = n
		}
	}
}

// WithMaxBatchSize caps the number of comments per batch request.
func WithMaxBatchSize(n int) ServerOption {
	return func(l *limits) {
		if n > 0 {
			l.maxBatchSize = n
		}
	}
}

// WithMaxLimit caps the limit accepted by the top emoji endpoint.
func WithMaxLimit(n int) ServerOption {
	return func(l *limits) {
		if n > 0 {
			l.maxLimit = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	l := limits{
		maxTextLength: defaultMaxTextLength,
		maxBatchSize:  defaultMaxBatchSize,
		maxLimit:      defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(&l)
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		analyzeHandler: NewAnalyzeHandler(deps, l.maxTextLength, l.maxBatchSize),
		emojiHandler:   NewEmojiHandler(deps, l.maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(path, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(path, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}

	route("/api/health", "health", s.healthHandler.HandleHealth)
	route("/api/analyze", "analyze", s.analyzeHandler.HandleText)
	route("/api/analyze/emoji", "analyze_emoji", s.analyzeHandler.HandleEmoji)
	route("/api/analyze/combined", "analyze_combined", s.analyzeHandler.HandleCombined)
	route("/api/analyze/batch", "analyze_batch", s.analyzeHandler.HandleBatch)
	route("/api/emoji/top", "emoji_top", s.emojiHandler.HandleTop)
	route("/api/emoji/rank/", "emoji_rank", s.emojiHandler.HandleRank)
	route("/stats", "stats", s.statsHandler.HandleStats)
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decode reads a JSON body of at most maxBodyBytes into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}
