package sentiment_test

import (
	"context"
	"sync"
	"testing"

	"github.com/okian/sentimoji/internal/domain/sentiment"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromModelText(t *testing.T) {
	Convey("Given free-form model output", t, func() {
		Convey("When it mentions positive", func() {
			v := sentiment.FromModelText("The sentiment of this text is **Positive**.")

			Convey("Then it should be a positive verdict", func() {
				So(v.Sentiment, ShouldEqual, sentiment.Positive)
				So(v.Score, ShouldEqual, 1.0)
			})
		})

		Convey("When it mentions negative only", func() {
			v := sentiment.FromModelText("NEGATIVE")

			Convey("Then it should be a negative verdict", func() {
				So(v.Sentiment, ShouldEqual, sentiment.Negative)
				So(v.Score, ShouldEqual, -1.0)
			})
		})

		Convey("When it mentions both words", func() {
			v := sentiment.FromModelText("not negative, rather positive")

			Convey("Then positive should win", func() {
				So(v.Sentiment, ShouldEqual, sentiment.Positive)
			})
		})

		Convey("When it mentions neither", func() {
			v := sentiment.FromModelText("I cannot tell.")

			Convey("Then it should be neutral", func() {
				So(v.Sentiment, ShouldEqual, sentiment.Neutral)
				So(v.Score, ShouldEqual, 0.0)
				So(v.IsError(), ShouldBeFalse)
			})
		})
	})
}

func TestParseLabel(t *testing.T) {
	Convey("Given label strings", t, func() {
		l, ok := sentiment.ParseLabel(" positive ")
		So(ok, ShouldBeTrue)
		So(l, ShouldEqual, sentiment.Positive)

		l, ok = sentiment.ParseLabel("Error")
		So(ok, ShouldBeTrue)
		So(l, ShouldEqual, sentiment.Error)

		_, ok = sentiment.ParseLabel("VERY POSITIVE")
		So(ok, ShouldBeFalse)
	})
}

func TestFailed(t *testing.T) {
	Convey("Given the failed verdict", t, func() {
		v := sentiment.Failed()

		Convey("Then it should be ERROR with a zero score", func() {
			So(v.Sentiment, ShouldEqual, sentiment.Error)
			So(v.Score, ShouldEqual, 0.0)
			So(v.IsError(), ShouldBeTrue)
		})
	})
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]sentiment.Verdict
}

func newMapCache() *mapCache { return &mapCache{m: map[string]sentiment.Verdict{}} }

func (c *mapCache) Get(_ context.Context, text string) (sentiment.Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[text]
	return v, ok
}

func (c *mapCache) Put(_ context.Context, text string, v sentiment.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[text] = v
}

func (c *mapCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.m))
}

func TestCachedProvider(t *testing.T) {
	Convey("Given a cached provider over a counting provider", t, func() {
		ctx := context.Background()
		calls := 0
		answer := sentiment.Verdict{Sentiment: sentiment.Positive, Score: 1}
		next := sentiment.ProviderFunc(func(context.Context, string) sentiment.Verdict {
			calls++
			return answer
		})
		var observed []bool
		p := sentiment.NewCachedProvider(next, newMapCache(),
			sentiment.WithCacheObserver(func(hit bool) { observed = append(observed, hit) }))

		Convey("When the same text is analyzed twice", func() {
			first := p.AnalyzeSentiment(ctx, "great")
			second := p.AnalyzeSentiment(ctx, "great")

			Convey("Then the provider should be called once", func() {
				So(first, ShouldResemble, answer)
				So(second, ShouldResemble, answer)
				So(calls, ShouldEqual, 1)
				So(p.Hits(), ShouldEqual, 1)
				So(p.Misses(), ShouldEqual, 1)
				So(p.Size(), ShouldEqual, 1)
				So(observed, ShouldResemble, []bool{false, true})
			})
		})

		Convey("When the provider fails", func() {
			answer = sentiment.Failed()
			p.AnalyzeSentiment(ctx, "flaky")
			p.AnalyzeSentiment(ctx, "flaky")

			Convey("Then the failure should not be cached", func() {
				So(calls, ShouldEqual, 2)
				So(p.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a cached provider without a cache", t, func() {
		p := sentiment.NewCachedProvider(sentiment.Static(sentiment.Verdict{Sentiment: sentiment.Neutral}), nil)

		Convey("Then it should pass calls through", func() {
			So(p.AnalyzeSentiment(context.Background(), "x").Sentiment, ShouldEqual, sentiment.Neutral)
			So(p.Size(), ShouldEqual, 0)
			So(p.Hits(), ShouldEqual, 0)
		})
	})
}
