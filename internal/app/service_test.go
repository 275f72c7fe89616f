package service_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/smartystreets/goconvey/convey"

	jobqueue "github.com/okian/sentimoji/internal/adapters/mq/queue"
	service "github.com/okian/sentimoji/internal/app"
	"github.com/okian/sentimoji/internal/domain/emoji"
	"github.com/okian/sentimoji/internal/domain/fusion"
	"github.com/okian/sentimoji/internal/domain/sentiment"
	"github.com/okian/sentimoji/internal/domain/verdictcache"
	"github.com/okian/sentimoji/pkg/logger"
)

const (
	grin  = "\U0001F600"
	cry   = "\U0001F622"
	heart = "\u2764\uFE0F"
)

// recorder is a provider that answers by keyword and remembers every text it saw.
type recorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *recorder) AnalyzeSentiment(_ context.Context, text string) sentiment.Verdict {
	r.mu.Lock()
	r.texts = append(r.texts, text)
	r.mu.Unlock()
	switch text {
	case "boom":
		panic("provider exploded")
	case "fail":
		return sentiment.Failed()
	}
	return sentiment.FromModelText(text)
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func catalog() *emoji.Catalog {
	return emoji.NewCatalog(map[string]emoji.Bucket{
		grin:  emoji.Positive,
		heart: emoji.Positive,
		cry:   emoji.Negative,
	})
}

func started(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.Nop()),
		service.WithCatalog(catalog()),
		service.WithWorkerCount(2),
	}
	svc := service.New(append(base, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		ctx := context.Background()

		Convey("Then analyses should fail softly", func() {
			So(svc.AnalyzeText(ctx, "great"), ShouldResemble, sentiment.Failed())
			So(svc.AnalyzeEmoji(ctx, grin).Total(), ShouldEqual, 0)
			So(svc.AnalyzeCombined(ctx, "great").CombinedSentiment, ShouldEqual, fusion.Error)

			_, err := svc.AnalyzeBatch(ctx, []fusion.Comment{{Text: "x"}})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.TopEmoji(ctx, 5)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldBeFalse)
		})

		Convey("And Stop should be a no-op", func() {
			So(func() { svc.Stop() }, ShouldNotPanic)
		})
	})

	Convey("Given a started service", t, func() {
		svc := started()

		Convey("When started twice and stopped twice", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			svc.Stop()
			svc.Stop()

			Convey("Then it should report stopped", func() {
				So(svc.GetStats()["started"], ShouldBeFalse)
				So(svc.AnalyzeText(context.Background(), "great"), ShouldResemble, sentiment.Failed())
			})
		})
	})
}

func TestServiceAnalyze(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with a keyword provider", t, func() {
		p := &recorder{}
		svc := started(service.WithProvider(p))
		defer svc.Stop()

		Convey("When analyzing text only", func() {
			v := svc.AnalyzeText(ctx, "a positive day")

			Convey("Then the provider should see the raw text", func() {
				So(v.Sentiment, ShouldEqual, sentiment.Positive)
				So(p.seen(), ShouldResemble, []string{"a positive day"})
			})
		})

		Convey("When analyzing emoji only", func() {
			s := svc.AnalyzeEmoji(ctx, "hi "+grin+grin+cry)

			Convey("Then counts and buckets should be filled and the board updated", func() {
				So(s.EmojiCounts[grin], ShouldEqual, 2)
				So(s.BucketTotal(emoji.Positive), ShouldEqual, 2)
				So(s.BucketTotal(emoji.Negative), ShouldEqual, 1)
				So(p.seen(), ShouldBeEmpty)

				top, err := svc.TopEmoji(ctx, 10)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 2)
				So(top[0].Emoji, ShouldEqual, grin)
				So(top[0].Count, ShouldEqual, 2)
				So(top[0].Rank, ShouldEqual, 1)

				e, err := svc.EmojiRank(ctx, cry)
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 2)
			})
		})

		Convey("When a comment agrees with its emoji", func() {
			a := svc.AnalyzeCombined(ctx, "so positive "+grin+grin)

			Convey("Then the result should escalate and the provider get plain text", func() {
				So(a.ID, ShouldNotBeEmpty)
				So(a.TextAnalysis.Sentiment, ShouldEqual, sentiment.Positive)
				So(a.CombinedSentiment, ShouldEqual, fusion.VeryPositive)
				So(a.EmojiAnalysis.Score, ShouldEqual, 1.0)
				So(a.EmojiAnalysis.Report, ShouldContainSubstring, "Total emoji found: 2")
				So(p.seen(), ShouldResemble, []string{"so positive"})
			})
		})

		Convey("When a comment is only emoji", func() {
			a := svc.AnalyzeCombined(ctx, heart+" "+grin)

			Convey("Then the provider should be skipped and emoji decide", func() {
				So(p.seen(), ShouldBeEmpty)
				So(a.TextAnalysis.Sentiment, ShouldEqual, sentiment.Neutral)
				So(a.CombinedSentiment, ShouldEqual, fusion.Positive)
			})
		})

		Convey("When the provider fails but emoji are present", func() {
			a := svc.AnalyzeCombined(ctx, "fail "+cry)

			Convey("Then the emoji should decide and the result be degraded", func() {
				So(a.TextAnalysis.IsError(), ShouldBeTrue)
				So(a.CombinedSentiment, ShouldEqual, fusion.Negative)
				So(a.Degraded, ShouldBeTrue)
			})
		})

		Convey("When the provider panics", func() {
			a := svc.AnalyzeCombined(ctx, "boom")

			Convey("Then the analysis should carry the error", func() {
				So(a.CombinedSentiment, ShouldEqual, fusion.Error)
				So(a.Error, ShouldContainSubstring, "provider exploded")
			})
		})
	})
}

func TestServiceBatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		p := &recorder{}
		svc := started(service.WithProvider(p), service.WithMaxBatchSize(5), service.WithQueueSize(4))
		defer svc.Stop()

		Convey("When a batch is submitted", func() {
			comments := []fusion.Comment{
				{ID: "a", Text: "positive " + grin},
				{Text: "negative"},
				{ID: "c", Text: "boom"},
			}
			out, err := svc.AnalyzeBatch(ctx, comments)

			Convey("Then results should come back in order", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 3)
				So(out[0].ID, ShouldEqual, "a")
				So(out[0].CombinedSentiment, ShouldEqual, fusion.VeryPositive)
				So(out[1].ID, ShouldNotBeEmpty)
				So(out[1].CombinedSentiment, ShouldEqual, fusion.Negative)
				So(out[2].ID, ShouldEqual, "c")
				So(out[2].CombinedSentiment, ShouldEqual, fusion.Error)
			})
		})

		Convey("When the batch is empty", func() {
			_, err := svc.AnalyzeBatch(ctx, nil)
			So(errors.Is(err, service.ErrEmptyBatch), ShouldBeTrue)
		})

		Convey("When the batch is over the limit", func() {
			comments := make([]fusion.Comment, 6)
			_, err := svc.AnalyzeBatch(ctx, comments)
			So(errors.Is(err, service.ErrBatchTooLarge), ShouldBeTrue)
		})

		Convey("When the batch does not fit in the queue", func() {
			comments := make([]fusion.Comment, 5)
			for i := range comments {
				comments[i].Text = fmt.Sprintf("comment %d", i)
			}
			_, err := svc.AnalyzeBatch(ctx, comments)

			Convey("Then it should be rejected as backpressure", func() {
				So(errors.Is(err, jobqueue.ErrFull), ShouldBeTrue)
			})
		})

		Convey("When the caller has already given up", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.AnalyzeBatch(cctx, []fusion.Comment{{Text: "x"}})

			Convey("Then the batch should not be queued", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

// gated holds every answer until open is closed.
type gated struct {
	open  chan struct{}
	calls atomic.Int32
}

func (g *gated) AnalyzeSentiment(ctx context.Context, text string) sentiment.Verdict {
	g.calls.Add(1)
	select {
	case <-g.open:
	case <-ctx.Done():
	}
	return sentiment.FromModelText(text)
}

func TestServiceConcurrentBatches(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service whose provider is stalled", t, func() {
		p := &gated{open: make(chan struct{})}
		svc := started(
			service.WithProvider(p),
			service.WithWorkerCount(1),
			service.WithQueueSize(10),
			service.WithMaxBatchSize(10),
		)
		defer svc.Stop()

		Convey("When several batches compete for the queue", func() {
			const batches, size = 6, 6
			errs := make([]error, batches)
			var wg sync.WaitGroup
			for b := range errs {
				wg.Add(1)
				go func(b int) {
					defer wg.Done()
					comments := make([]fusion.Comment, size)
					for i := range comments {
						comments[i] = fusion.Comment{ID: fmt.Sprintf("b%d-%d", b, i), Text: "positive " + grin}
					}
					_, errs[b] = svc.AnalyzeBatch(ctx, comments)
				}(b)
			}
			time.Sleep(100 * time.Millisecond)
			close(p.open)
			wg.Wait()

			Convey("Then rejected batches should leave no trace on the board", func() {
				accepted := 0
				for _, err := range errs {
					if err == nil {
						accepted++
						continue
					}
					So(errors.Is(err, jobqueue.ErrFull), ShouldBeTrue)
				}
				So(accepted, ShouldBeGreaterThan, 0)

				e, err := svc.EmojiRank(ctx, grin)
				So(err, ShouldBeNil)
				So(e.Count, ShouldEqual, int64(accepted*size))
				So(int(p.calls.Load()), ShouldEqual, accepted*size)
			})
		})

		Convey("When the caller gives up while its batch waits", func() {
			cctx, cancel := context.WithCancel(ctx)
			done := make(chan []fusion.Analysis, 1)
			go func() {
				out, _ := svc.AnalyzeBatch(cctx, []fusion.Comment{
					{ID: "first", Text: "positive " + grin},
					{ID: "second", Text: "positive " + grin},
					{ID: "third", Text: "positive " + grin},
				})
				done <- out
			}()
			time.Sleep(50 * time.Millisecond)
			cancel()
			out := <-done
			close(p.open)

			Convey("Then its waiting comments should not reach the provider", func() {
				So(len(out), ShouldEqual, 3)
				So(out[1].ID, ShouldEqual, "second")
				So(out[1].CombinedSentiment, ShouldEqual, fusion.Error)
				So(out[2].CombinedSentiment, ShouldEqual, fusion.Error)
				So(p.calls.Load(), ShouldBeLessThanOrEqualTo, 1)
			})
		})
	})
}

func TestServiceStats(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a verdict cache", t, func() {
		p := &recorder{}
		svc := started(service.WithProvider(p), service.WithCache(verdictcache.New()))
		defer svc.Stop()

		svc.AnalyzeText(ctx, "positive")
		svc.AnalyzeText(ctx, "positive")
		svc.AnalyzeEmoji(ctx, grin)

		Convey("Then repeats should be served from the cache", func() {
			So(len(p.seen()), ShouldEqual, 1)

			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["catalogSize"], ShouldEqual, 3)
			So(stats["cacheHits"], ShouldEqual, int64(1))
			So(stats["cacheMisses"], ShouldEqual, int64(1))
			So(stats["cacheSize"], ShouldEqual, int64(1))
			So(stats["distinctEmoji"], ShouldEqual, 1)
			So(stats["catalogBuckets"].(map[string]int)["POSITIVE"], ShouldEqual, 2)
		})
	})
}
