package images

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edforge/quizrag/quiz"
	"github.com/edforge/quizrag/storage"
)

func poolWithTexts(texts ...string) []quiz.QuizQuestionPool {
	questions := make([]quiz.RagQuizQuestion, len(texts))
	for i, text := range texts {
		questions[i] = quiz.RagQuizQuestion{
			SourceUID: fmt.Sprintf("QUES-%d", i),
			Question:  quiz.ShortAnswer{Stem: text, Answers: []string{"a"}},
		}
	}
	return []quiz.QuizQuestionPool{{
		Source:    quiz.SemanticSearchSource{Query: "q"},
		Questions: questions,
	}}
}

type fakeVision struct {
	mu       sync.Mutex
	calls    int
	inFlight int32
	peak     int32
	err      error
}

func (f *fakeVision) DescribeImage(_ context.Context, url, _ string) (string, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "description of " + url, nil
}

func TestExtractImageURLsDeduplicates(t *testing.T) {
	pools := poolWithTexts(
		"See ![alt](https://img.example/a.png) and ![](https://img.example/b.png)",
		"Again ![x](https://img.example/a.png)",
		"No images here",
	)

	urls := ExtractImageURLs(pools)
	if len(urls) != 2 {
		t.Fatalf("got %d urls, want 2", len(urls))
	}
	if urls[0] != "https://img.example/a.png" || urls[1] != "https://img.example/b.png" {
		t.Errorf("first-appearance order not preserved: %v", urls)
	}
}

func TestReplaceImagesWithDescriptions(t *testing.T) {
	text := "Look at ![diagram](https://img.example/a.png) and ![other](https://img.example/b.png)."
	descriptions := map[string]string{
		"https://img.example/a.png": "a right angle triangle",
	}

	got := ReplaceImagesWithDescriptions(text, descriptions)
	want := "Look at [IMAGE: a right angle triangle] and ![other](https://img.example/b.png)."
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}

	// Empty map is a no-op.
	if out := ReplaceImagesWithDescriptions(text, nil); out != text {
		t.Errorf("empty map changed text: %q", out)
	}
}

func TestReplaceBothImagesWhenResolved(t *testing.T) {
	text := "![a](https://img.example/a.png) plus ![b](https://img.example/b.png)"
	descriptions := map[string]string{
		"https://img.example/a.png": "first",
		"https://img.example/b.png": "second",
	}
	got := ReplaceImagesWithDescriptions(text, descriptions)
	if got != "[IMAGE: first] plus [IMAGE: second]" {
		t.Errorf("got %q", got)
	}
}

func TestApplyDescriptionsDoesNotMutateInput(t *testing.T) {
	pools := poolWithTexts("Stem with ![img](https://img.example/a.png)")
	descriptions := map[string]string{"https://img.example/a.png": "a number line"}

	enriched := ApplyDescriptionsToQuestions(pools, descriptions)

	origStem := pools[0].Questions[0].Question.(quiz.ShortAnswer).Stem
	if origStem != "Stem with ![img](https://img.example/a.png)" {
		t.Fatalf("input mutated: %q", origStem)
	}
	newStem := enriched[0].Questions[0].Question.(quiz.ShortAnswer).Stem
	if newStem != "Stem with [IMAGE: a number line]" {
		t.Errorf("replacement missing: %q", newStem)
	}
	if enriched[0].Questions[0].SourceUID != pools[0].Questions[0].SourceUID {
		t.Error("UID not carried into the copy")
	}
}

func TestGetImageDescriptionsCacheFlow(t *testing.T) {
	ctx := context.Background()
	cache := storage.NewMemoryCache()
	if err := cache.Set(ctx, "quiz:image-description:https://img.example/a.png", "cached description", time.Hour); err != nil {
		t.Fatal(err)
	}

	vision := &fakeVision{}
	svc := NewService(cache, vision, 0, 0, nil)

	pools := poolWithTexts(
		"![a](https://img.example/a.png)",
		"![b](https://img.example/b.png)",
	)
	result, err := svc.GetImageDescriptions(ctx, pools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CacheHits != 1 || result.CacheMisses != 1 || result.GeneratedCount != 1 {
		t.Errorf("stats = hits %d, misses %d, generated %d", result.CacheHits, result.CacheMisses, result.GeneratedCount)
	}
	if result.Descriptions["https://img.example/a.png"] != "cached description" {
		t.Errorf("cached value not used: %q", result.Descriptions["https://img.example/a.png"])
	}
	if result.Descriptions["https://img.example/b.png"] != "description of https://img.example/b.png" {
		t.Errorf("generated value missing: %v", result.Descriptions)
	}
	if vision.calls != 1 {
		t.Errorf("vision called %d times, want 1 (cache hit must not regenerate)", vision.calls)
	}

	// Generated entry was written back: a second run is all hits.
	vision2 := &fakeVision{}
	svc2 := NewService(cache, vision2, 0, 0, nil)
	again, err := svc2.GetImageDescriptions(ctx, pools)
	if err != nil {
		t.Fatal(err)
	}
	if again.CacheHits != 2 || vision2.calls != 0 {
		t.Errorf("write-back missing: hits %d, vision calls %d", again.CacheHits, vision2.calls)
	}
}

func TestGetImageDescriptionsNoImages(t *testing.T) {
	svc := NewService(storage.NewMemoryCache(), &fakeVision{}, 0, 0, nil)
	result, err := svc.GetImageDescriptions(context.Background(), poolWithTexts("plain text"))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Descriptions) != 0 || result.CacheMisses != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestGetImageDescriptionsVisionFailureOmitsEntry(t *testing.T) {
	vision := &fakeVision{err: errors.New("vision model down")}
	svc := NewService(storage.NewMemoryCache(), vision, 0, 0, nil)

	result, err := svc.GetImageDescriptions(context.Background(), poolWithTexts("![a](https://img.example/a.png)"))
	if err != nil {
		t.Fatalf("per-image failure must not fail the batch: %v", err)
	}
	if _, ok := result.Descriptions["https://img.example/a.png"]; ok {
		t.Error("failed image present in description map")
	}
	if result.GeneratedCount != 0 {
		t.Errorf("generatedCount = %d", result.GeneratedCount)
	}
}

type failingCache struct{ storage.DescriptionCache }

func (failingCache) BatchGet(context.Context, []string) (map[string]string, error) {
	return nil, errors.New("redis unavailable")
}

func TestGetImageDescriptionsCacheReadFailureDegradesToMiss(t *testing.T) {
	vision := &fakeVision{}
	svc := NewService(failingCache{storage.NewMemoryCache()}, vision, 0, 0, nil)

	result, err := svc.GetImageDescriptions(context.Background(), poolWithTexts("![a](https://img.example/a.png)"))
	if err != nil {
		t.Fatalf("cache read failure must degrade, not fail: %v", err)
	}
	if result.CacheMisses != 1 || result.GeneratedCount != 1 {
		t.Errorf("stats = %+v", result)
	}
}

func TestGetImageDescriptionsConcurrencyBound(t *testing.T) {
	texts := make([]string, 25)
	for i := range texts {
		texts[i] = fmt.Sprintf("![i](https://img.example/%d.png)", i)
	}
	vision := &fakeVision{}
	svc := NewService(storage.NewMemoryCache(), vision, 4, 0, nil)

	if _, err := svc.GetImageDescriptions(context.Background(), poolWithTexts(texts...)); err != nil {
		t.Fatal(err)
	}
	if peak := atomic.LoadInt32(&vision.peak); peak > 4 {
		t.Errorf("peak concurrency %d exceeded limit 4", peak)
	}
	if vision.calls != 25 {
		t.Errorf("vision calls = %d, want 25", vision.calls)
	}
}
