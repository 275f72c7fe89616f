package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sentimoji/internal/adapters/http/api"
	"github.com/okian/sentimoji/internal/adapters/mq/queue"
	"github.com/okian/sentimoji/internal/adapters/repository"
	"github.com/okian/sentimoji/internal/domain/emoji"
	"github.com/okian/sentimoji/internal/domain/fusion"
	"github.com/okian/sentimoji/internal/domain/sentiment"
)

type fakeDeps struct {
	lastText  string
	batch     []fusion.Comment
	batchErr  error
	top       []repository.Entry
	rank      repository.Entry
	rankErr   error
	lastLimit int
}

func (f *fakeDeps) AnalyzeText(_ context.Context, text string) sentiment.Verdict {
	f.lastText = text
	return sentiment.Verdict{Sentiment: sentiment.Positive, Score: 1}
}

func (f *fakeDeps) AnalyzeEmoji(_ context.Context, text string) emoji.Summary {
	f.lastText = text
	s := emoji.NewSummary()
	s.EmojiCounts["\U0001F600"] = 2
	s.SentimentCounts[emoji.Positive]["\U0001F600"] = 2
	return s
}

func (f *fakeDeps) AnalyzeCombined(_ context.Context, text string) fusion.Analysis {
	f.lastText = text
	if text == "explode" {
		return fusion.Failed("id-1", errors.New("boom"))
	}
	return fusion.Combine("id-1", sentiment.Verdict{Sentiment: sentiment.Positive, Score: 1}, f.AnalyzeEmoji(context.Background(), text))
}

func (f *fakeDeps) AnalyzeBatch(_ context.Context, comments []fusion.Comment) ([]fusion.Analysis, error) {
	f.batch = comments
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([]fusion.Analysis, len(comments))
	for i, c := range comments {
		out[i] = fusion.Combine(c.ID, sentiment.Verdict{Sentiment: sentiment.Neutral}, emoji.NewSummary())
	}
	return out, nil
}

func (f *fakeDeps) TopEmoji(_ context.Context, n int) ([]repository.Entry, error) {
	f.lastLimit = n
	return f.top, nil
}

func (f *fakeDeps) EmojiRank(_ context.Context, e string) (repository.Entry, error) {
	if f.rankErr != nil {
		return repository.Entry{}, f.rankErr
	}
	r := f.rank
	r.Emoji = e
	return r, nil
}

type fakeStats map[string]any

func (s fakeStats) GetStats() map[string]any { return s }

func newMux(deps *fakeDeps, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, fakeStats{"uptime": "1s"}, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]any {
	var m map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &m), ShouldBeNil)
	return m
}

func TestAnalyzeEndpoints(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &fakeDeps{}
		mux := newMux(deps, api.WithMaxTextLength(10), api.WithMaxBatchSize(2))

		Convey("When POST /api/analyze is called", func() {
			w := do(mux, http.MethodPost, "/api/analyze", `{"text":"great 😀"}`)

			Convey("Then the text verdict should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
				So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
				m := decodeBody(w)
				So(m["sentiment"], ShouldEqual, "POSITIVE")
				So(m["score"], ShouldEqual, 1.0)
				So(deps.lastText, ShouldEqual, "great 😀")
			})
		})

		Convey("When the text is null", func() {
			w := do(mux, http.MethodPost, "/api/analyze", `{"text":null}`)

			Convey("Then it should be treated as empty", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastText, ShouldEqual, "")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/api/analyze", `{`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeBody(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When the text is too long", func() {
			w := do(mux, http.MethodPost, "/api/analyze/combined", `{"text":"0123456789x"}`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeBody(w)["message"], ShouldContainSubstring, "limit is 10")
			})
		})

		Convey("When the method does not match", func() {
			w := do(mux, http.MethodGet, "/api/analyze", "")

			Convey("Then it should be not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When POST /api/analyze/emoji is called", func() {
			w := do(mux, http.MethodPost, "/api/analyze/emoji", `{"text":"😀😀"}`)

			Convey("Then counts, report and score should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				m := decodeBody(w)
				So(m["emojiCounts"], ShouldResemble, map[string]any{"\U0001F600": 2.0})
				So(m["sentimentCounts"].(map[string]any)["POSITIVE"], ShouldResemble, map[string]any{"\U0001F600": 2.0})
				So(m["report"], ShouldContainSubstring, "Total emoji found: 2")
				So(m["score"], ShouldEqual, 1.0)
			})
		})

		Convey("When POST /api/analyze/combined is called", func() {
			w := do(mux, http.MethodPost, "/api/analyze/combined", `{"text":"nice 😀"}`)

			Convey("Then the fused analysis should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				m := decodeBody(w)
				So(m["id"], ShouldEqual, "id-1")
				So(m["combinedSentiment"], ShouldEqual, "VERY POSITIVE")
				So(m["textAnalysis"].(map[string]any)["sentiment"], ShouldEqual, "POSITIVE")
				So(m["emojiAnalysis"].(map[string]any)["report"], ShouldContainSubstring, "Total emoji found: 2")
				So(m, ShouldNotContainKey, "error")
			})
		})

		Convey("When the combined analysis fails internally", func() {
			w := do(mux, http.MethodPost, "/api/analyze/combined", `{"text":"explode"}`)

			Convey("Then the failure should be reported in a 200 body", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				m := decodeBody(w)
				So(m["error"], ShouldEqual, "boom")
				So(m["combinedSentiment"], ShouldEqual, "ERROR")
			})
		})
	})
}

func TestBatchEndpoint(t *testing.T) {
	Convey("Given a registered API server with a batch limit of 2", t, func() {
		deps := &fakeDeps{}
		mux := newMux(deps, api.WithMaxBatchSize(2))

		Convey("When a valid batch is posted", func() {
			w := do(mux, http.MethodPost, "/api/analyze/batch", `{"comments":[{"id":"a","text":"x"},{"id":"b","text":"y"}]}`)

			Convey("Then one result per comment should come back in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				results := decodeBody(w)["results"].([]any)
				So(len(results), ShouldEqual, 2)
				So(results[0].(map[string]any)["id"], ShouldEqual, "a")
				So(results[1].(map[string]any)["id"], ShouldEqual, "b")
				So(deps.batch[1].Text, ShouldEqual, "y")
			})
		})

		Convey("When the batch is empty or too large", func() {
			empty := do(mux, http.MethodPost, "/api/analyze/batch", `{"comments":[]}`)
			large := do(mux, http.MethodPost, "/api/analyze/batch", `{"comments":[{"text":"1"},{"text":"2"},{"text":"3"}]}`)

			Convey("Then both should be bad requests", func() {
				So(empty.Code, ShouldEqual, http.StatusBadRequest)
				So(large.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.batch, ShouldBeNil)
			})
		})

		Convey("When the queue is full", func() {
			deps.batchErr = errors.Wrap(queue.ErrFull, "enqueue")
			w := do(mux, http.MethodPost, "/api/analyze/batch", `{"comments":[{"text":"x"}]}`)

			Convey("Then it should signal backpressure", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeBody(w)["code"], ShouldEqual, "backpressure")
			})
		})

		Convey("When the queue is closed", func() {
			deps.batchErr = queue.ErrClosed
			w := do(mux, http.MethodPost, "/api/analyze/batch", `{"comments":[{"text":"x"}]}`)

			Convey("Then the service should be unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When the batch fails otherwise", func() {
			deps.batchErr = errors.New("disk on fire")
			w := do(mux, http.MethodPost, "/api/analyze/batch", `{"comments":[{"text":"x"}]}`)

			Convey("Then it should be an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestEmojiBoardEndpoints(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &fakeDeps{
			top:  []repository.Entry{{Rank: 1, Emoji: "\U0001F600", Count: 3, Bucket: emoji.Positive}},
			rank: repository.Entry{Rank: 2, Count: 1, Bucket: emoji.Negative},
		}
		mux := newMux(deps, api.WithMaxLimit(50))

		Convey("When the top list is requested without a limit", func() {
			w := do(mux, http.MethodGet, "/api/emoji/top", "")

			Convey("Then the default limit should be used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 10)
				var entries []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(entries[0]["emoji"], ShouldEqual, "\U0001F600")
				So(entries[0]["bucket"], ShouldEqual, "POSITIVE")
			})
		})

		Convey("When the limit is invalid or too large", func() {
			So(do(mux, http.MethodGet, "/api/emoji/top?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/api/emoji/top?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/api/emoji/top?limit=51", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeBody(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When the board is empty", func() {
			deps.top = nil
			w := do(mux, http.MethodGet, "/api/emoji/top?limit=5", "")

			Convey("Then an empty array should be returned", func() {
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When an emoji rank is requested by escaped path", func() {
			w := do(mux, http.MethodGet, "/api/emoji/rank/"+url.PathEscape("\U0001F622"), "")

			Convey("Then the decoded emoji should be looked up", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				m := decodeBody(w)
				So(m["emoji"], ShouldEqual, "\U0001F622")
				So(m["rank"], ShouldEqual, 2.0)
			})
		})

		Convey("When an unknown emoji is requested", func() {
			deps.rankErr = repository.ErrNotFound
			w := do(mux, http.MethodGet, "/api/emoji/rank/x", "")

			Convey("Then it should be not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeBody(w)["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When the rank path is empty", func() {
			So(do(mux, http.MethodGet, "/api/emoji/rank/", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&fakeDeps{})

		Convey("Then the health probe should answer in plain text", func() {
			w := do(mux, http.MethodGet, "/api/health", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual, api.HealthMessage)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/plain")
		})

		Convey("Then stats should be JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeBody(w)["uptime"], ShouldEqual, "1s")
		})

		Convey("Then metrics should expose the service series", func() {
			do(mux, http.MethodGet, "/api/health", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "sentimoji_analyzer_")
		})

		Convey("Then a caller's request id should be echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.Header.Set(api.RequestIDHeader, "req-42")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "req-42")
		})

		Convey("Then unknown paths should be not found", func() {
			So(do(mux, http.MethodGet, "/nope", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given the error helpers", t, func() {
		cause := errors.New("unexpected EOF")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then kind and cause should both be visible", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "api.op")
			So(err.Error(), ShouldContainSubstring, "unexpected EOF")
			So(errors.Is(api.NewKind("api.op", api.ErrNotFound), api.ErrNotFound), ShouldBeTrue)
			So(errors.Is(api.WrapKind("api.op", api.ErrBackpressure, nil), api.ErrBackpressure), ShouldBeTrue)
			So(api.Wrap("api.op", cause).Error(), ShouldEqual, "api.op: unexpected EOF")
		})
	})
}
