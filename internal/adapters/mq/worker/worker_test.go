package worker_test

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sentimoji/internal/adapters/mq/queue"
	"github.com/okian/sentimoji/internal/adapters/mq/worker"
	"github.com/okian/sentimoji/internal/domain/emoji"
	"github.com/okian/sentimoji/internal/domain/fusion"
	"github.com/okian/sentimoji/internal/domain/sentiment"
)

func echo(calls *atomic.Int32) worker.AnalyzerFunc {
	return func(_ context.Context, id, text string) fusion.Analysis {
		calls.Add(1)
		if text == "panic" {
			panic("bad comment")
		}
		return fusion.Combine(id, sentiment.Verdict{Sentiment: sentiment.Positive, Score: 1}, emoji.NewSummary())
	}
}

func collect(t *testing.T, replies <-chan queue.Result, n int) []queue.Result {
	t.Helper()
	out := make([]queue.Result, 0, n)
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case r := <-replies:
			out = append(out, r)
		case <-timeout:
			t.Fatalf("got %d of %d results", len(out), n)
		}
	}
	return out
}

func TestPool(t *testing.T) {
	Convey("Given a started pool of 3 workers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var calls atomic.Int32
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		p := worker.NewPool(3, q, echo(&calls))
		p.Start(ctx)
		defer func() { _ = p.Shutdown(context.Background()) }()

		So(p.Size(), ShouldEqual, 3)

		Convey("When 20 jobs are enqueued", func() {
			replies := make(chan queue.Result, 20)
			for i := 0; i < 20; i++ {
				So(q.Enqueue(ctx, queue.Job{ID: "c" + strconv.Itoa(i), Index: i, Text: "hi", Reply: replies}), ShouldBeNil)
			}
			results := collect(t, replies, 20)

			Convey("Then every job should get one result", func() {
				seen := map[int]bool{}
				for _, r := range results {
					seen[r.Index] = true
					So(r.Analysis.ID, ShouldEqual, "c"+strconv.Itoa(r.Index))
					So(r.Analysis.CombinedSentiment, ShouldEqual, fusion.Positive)
				}
				So(len(seen), ShouldEqual, 20)
				So(calls.Load(), ShouldEqual, 20)
			})
		})

		Convey("When an analysis panics", func() {
			replies := make(chan queue.Result, 2)
			So(q.Enqueue(ctx, queue.Job{ID: "bad", Index: 0, Text: "panic", Reply: replies}), ShouldBeNil)
			So(q.Enqueue(ctx, queue.Job{ID: "good", Index: 1, Text: "fine", Reply: replies}), ShouldBeNil)
			results := collect(t, replies, 2)

			Convey("Then it should be reported and the pool should keep working", func() {
				byIndex := map[int]fusion.Analysis{}
				for _, r := range results {
					byIndex[r.Index] = r.Analysis
				}
				So(byIndex[0].CombinedSentiment, ShouldEqual, fusion.Error)
				So(byIndex[0].Error, ShouldContainSubstring, "bad comment")
				So(byIndex[1].CombinedSentiment, ShouldEqual, fusion.Positive)
			})
		})

		Convey("When a job has no reply channel", func() {
			So(q.Enqueue(ctx, queue.Job{ID: "fire-and-forget", Text: "x"}), ShouldBeNil)

			Convey("Then it should still be analyzed", func() {
				deadline := time.Now().Add(5 * time.Second)
				for calls.Load() == 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When a job's request is already cancelled", func() {
			jctx, jcancel := context.WithCancel(context.Background())
			jcancel()
			replies := make(chan queue.Result, 1)
			So(q.Enqueue(ctx, queue.Job{ID: "gone", Text: "hi", Ctx: jctx, Reply: replies}), ShouldBeNil)

			Convey("Then it should fail without being analyzed", func() {
				r := collect(t, replies, 1)[0]
				So(r.Analysis.ID, ShouldEqual, "gone")
				So(r.Analysis.CombinedSentiment, ShouldEqual, fusion.Error)
				So(r.Analysis.Error, ShouldContainSubstring, "cancel")
				So(calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When a job carries its request context", func() {
			type key struct{}
			seen := make(chan any, 1)
			q2 := queue.NewInMemoryQueue()
			tagged := worker.NewPool(1, q2, worker.AnalyzerFunc(func(jctx context.Context, id, _ string) fusion.Analysis {
				seen <- jctx.Value(key{})
				return fusion.Failed(id, errors.New("seen"))
			}))
			tagged.Start(ctx)
			defer func() { _ = tagged.Shutdown(context.Background()) }()

			So(q2.Enqueue(ctx, queue.Job{ID: "req", Ctx: context.WithValue(ctx, key{}, "req-7")}), ShouldBeNil)

			Convey("Then the analyzer should run under it", func() {
				select {
				case v := <-seen:
					So(v, ShouldEqual, "req-7")
				case <-time.After(5 * time.Second):
					t.Fatal("job was not analyzed")
				}
			})
		})

		Convey("When the pool is shut down", func() {
			So(p.Shutdown(context.Background()), ShouldBeNil)

			Convey("Then the queue should be closed and a second shutdown harmless", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(errors.Is(q.Enqueue(ctx, queue.Job{ID: "late"}), queue.ErrClosed), ShouldBeTrue)
				So(p.Shutdown(context.Background()), ShouldBeNil)
			})
		})
	})

	Convey("Given a pool with a non-positive size", t, func() {
		p := worker.NewPool(0, queue.NewInMemoryQueue(), echo(new(atomic.Int32)))

		Convey("Then it should size itself from the CPU count", func() {
			So(p.Size(), ShouldBeGreaterThan, 0)
			So(p.Active(), ShouldEqual, 0)
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	Convey("Given a single running worker", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, echo(new(atomic.Int32)), worker.WithName("solo"))
		go w.Run(context.Background())

		Convey("Then shutdown should return once the loop exits", func() {
			So(w.Shutdown(context.Background()), ShouldBeNil)
			So(w.Shutdown(context.Background()), ShouldBeNil)
		})
	})

	Convey("Given a worker that was never started", t, func() {
		w := worker.NewInMemoryWorker(queue.NewInMemoryQueue(), echo(new(atomic.Int32)))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		Convey("Then shutdown should time out with an error", func() {
			So(w.Shutdown(ctx), ShouldNotBeNil)
		})
	})
}
