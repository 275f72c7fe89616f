// Package gemini is the text sentiment provider backed by Google's Gemini
// generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/okian/sentimoji/internal/domain/sentiment"
	"github.com/okian/sentimoji/pkg/logger"
	"github.com/okian/sentimoji/pkg/metrics"
	"github.com/okian/sentimoji/pkg/retry"
)

// Default client configuration constants.
const (
	DefaultURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

	defaultTimeout         = 10 * time.Second
	defaultRPS             = 10
	defaultBurst           = 5
	defaultAttempts        = 3
	defaultBackoff         = 200 * time.Millisecond
	defaultBreakerFailures = 5
	defaultBreakerOpenFor  = 30 * time.Second
	maxErrorBody           = 512
	maxResponseBody        = 1 << 20
)

// Prompt is prepended to every text sent for classification.
const Prompt = "Analyze the sentiment of this text as positive, negative or neutral: "

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content *content `json:"content"`
	} `json:"candidates"`
}

// Client classifies text with Gemini. It implements sentiment.Provider and is
// safe for concurrent use.
type Client struct {
	apiKey          string
	url             string
	http            *http.Client
	timeout         time.Duration
	limiter         *rate.Limiter
	policy          retry.Policy
	breakerFailures uint32
	breakerOpenFor  time.Duration
	breaker         *gobreaker.CircuitBreaker
	log             logger.Logger
}

var _ sentiment.Provider = (*Client)(nil)

// New creates a Gemini client.
func New(opts ...Option) *Client {
	c := &Client{
		url:     DefaultURL,
		http:    &http.Client{},
		timeout: defaultTimeout,
		limiter: rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
		policy: retry.Policy{
			MaxAttempts:      defaultAttempts,
			InitialBackoff:   defaultBackoff,
			RateLimitBackoff: 4 * defaultBackoff,
		},
		breakerFailures: defaultBreakerFailures,
		breakerOpenFor:  defaultBreakerOpenFor,
		log:             logger.Nop(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	c.policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.log.Warn(context.Background(), "retrying gemini call",
			logger.Int("attempt", attempt),
			logger.Duration("backoff", backoff),
			logger.Error(err))
	}

	failures := c.breakerFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "gemini",
		Timeout: c.breakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// BreakerState returns the circuit breaker state name.
func (c *Client) BreakerState() string { return c.breaker.State().String() }

// AnalyzeSentiment implements sentiment.Provider. Every failure yields an
// ERROR verdict.
func (c *Client) AnalyzeSentiment(ctx context.Context, text string) sentiment.Verdict {
	start := time.Now()
	v, err := c.Analyze(ctx, text)
	metrics.RecordProviderLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		reason := Reason(err)
		metrics.RecordProviderError(reason)
		c.log.Warn(ctx, "gemini sentiment call failed",
			logger.String("reason", reason),
			logger.Error(err))
		return sentiment.Failed()
	}
	return v
}

// Analyze classifies text and reports failures as errors.
func (c *Client) Analyze(ctx context.Context, text string) (sentiment.Verdict, error) {
	const op = "gemini.analyze"

	if !c.Configured() {
		return sentiment.Verdict{}, errors.Wrap(ErrNotConfigured, op)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return sentiment.Verdict{}, errors.Mark(errors.Wrap(err, op), ErrRateLimited)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		reply, err := retry.Do(ctx, c.policy, classify, func(ctx context.Context) (string, error) {
			return c.generate(ctx, text)
		})
		if err != nil {
			return nil, err
		}
		return reply, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return sentiment.Verdict{}, errors.Mark(errors.Wrap(err, op), ErrCircuitOpen)
	}
	if err != nil {
		return sentiment.Verdict{}, errors.Wrap(err, op)
	}

	reply, _ := out.(string)
	c.log.Debug(ctx, "gemini response", logger.String("text", reply))
	return sentiment.FromModelText(reply), nil
}

// generate performs one generateContent call and returns the first part's text.
func (c *Client) generate(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: Prompt + text}}}},
	})
	if err != nil {
		return "", errors.Wrap(err, "encode request")
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", errors.Mark(&StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}, ErrStatus)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", ErrEmptyBody
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errors.Mark(errors.Wrap(err, "decode response"), ErrMalformed)
	}
	if len(parsed.Candidates) == 0 {
		return "", errors.WithDetail(ErrMalformed, "no candidates")
	}
	first := parsed.Candidates[0].Content
	if first == nil {
		return "", errors.WithDetail(ErrMalformed, "no content")
	}
	if len(first.Parts) == 0 {
		return "", errors.WithDetail(ErrMalformed, "no parts")
	}
	return strings.TrimSpace(first.Parts[0].Text), nil
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", errors.Wrapf(err, "parse gemini url %q", c.url)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// classify tells the retry loop which failures are worth another attempt.
func classify(err error) retry.Action {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		switch {
		case se.Code == http.StatusTooManyRequests:
			return retry.After
		case se.Code >= http.StatusInternalServerError:
			return retry.Retry
		default:
			return retry.Stop
		}
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrEmptyBody):
		return retry.Stop
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return retry.Stop
	default:
		return retry.Retry
	}
}
