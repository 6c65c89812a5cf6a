// Package images resolves markdown image references in candidate questions
// into text descriptions so a text-only composer model can weigh them.
//
// Information Hiding:
// - Cache key layout and TTL policy are internal
// - Vision prompt and concurrency limiting are internal
// - Callers only see the URL -> description map plus hit/miss stats
package images

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/edforge/quizrag/llm"
	"github.com/edforge/quizrag/quiz"
	"github.com/edforge/quizrag/storage"
)

// cacheKeyPrefix namespaces description entries in the shared cache.
const cacheKeyPrefix = "quiz:image-description:"

// DefaultTTL is how long generated descriptions stay cached.
const DefaultTTL = 90 * 24 * time.Hour

// DefaultMaxConcurrent bounds vision calls in flight per batch.
const DefaultMaxConcurrent = 10

// imagePattern matches markdown image references. The URL group is capped
// at 2000 characters to keep pathological inputs from blowing up the scan;
// the bound is split in two because regexp repeat counts max out at 1000.
var imagePattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)]{1,1000}[^)]{0,1000})\)`)

// descriptionPrompt is the instruction sent to the vision model per image.
const descriptionPrompt = `Describe this image in 1-2 short sentences for a mathematics teacher. ` +
	`Focus only on the mathematical or diagrammatic content: shapes, numbers, labels, axes, ` +
	`measurements and their relationships. Do not mention colours, layout or decorative style.`

// DescriptionMap is the outcome of resolving a batch of image URLs.
type DescriptionMap struct {
	// Descriptions maps image URL to description text. URLs that could not
	// be resolved are absent, never present with an empty value.
	Descriptions map[string]string `json:"descriptions"`

	CacheHits      int `json:"cacheHits"`
	CacheMisses    int `json:"cacheMisses"`
	GeneratedCount int `json:"generatedCount"`
}

// Service generates and caches image descriptions.
type Service struct {
	cache  storage.DescriptionCache
	vision llm.ImageDescriber
	sem    *semaphore.Weighted
	ttl    time.Duration
	logger *slog.Logger
}

// NewService creates an image description service. maxConcurrent <= 0 and
// ttl <= 0 fall back to the defaults.
func NewService(cache storage.DescriptionCache, vision llm.ImageDescriber, maxConcurrent int64, ttl time.Duration, logger *slog.Logger) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:  cache,
		vision: vision,
		sem:    semaphore.NewWeighted(maxConcurrent),
		ttl:    ttl,
		logger: logger,
	}
}

// ExtractImageURLs scans every text field of every question for markdown
// image references and returns the URLs deduplicated in first-appearance
// order.
func ExtractImageURLs(pools []quiz.QuizQuestionPool) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, pool := range pools {
		for _, q := range pool.Questions {
			for _, text := range q.Question.Texts() {
				for _, match := range imagePattern.FindAllStringSubmatch(text, -1) {
					url := match[1]
					if seen[url] {
						continue
					}
					seen[url] = true
					urls = append(urls, url)
				}
			}
		}
	}
	return urls
}

// GetImageDescriptions resolves every image URL in the pools: one batched
// cache read, then vision-model generation for the misses under the
// concurrency limit, then best-effort write-back. Per-image failures are
// logged and omitted; a cache read failure degrades to all-miss.
func (s *Service) GetImageDescriptions(ctx context.Context, pools []quiz.QuizQuestionPool) (DescriptionMap, error) {
	result := DescriptionMap{Descriptions: make(map[string]string)}

	urls := ExtractImageURLs(pools)
	if len(urls) == 0 {
		return result, nil
	}

	keys := make([]string, len(urls))
	for i, url := range urls {
		keys[i] = cacheKeyPrefix + url
	}

	cached, err := s.cache.BatchGet(ctx, keys)
	if err != nil {
		s.logger.Warn("description cache read failed, treating all images as misses", "error", err)
		cached = nil
	}

	var misses []string
	for i, url := range urls {
		if desc, ok := cached[keys[i]]; ok {
			result.Descriptions[url] = desc
			result.CacheHits++
		} else {
			misses = append(misses, url)
		}
	}
	result.CacheMisses = len(misses)

	if len(misses) > 0 {
		generated := s.generateDescriptions(ctx, misses)
		for url, desc := range generated {
			result.Descriptions[url] = desc
		}
		result.GeneratedCount = len(generated)
		s.writeBack(ctx, generated)
	}

	s.logger.Info("resolved image descriptions",
		"images", len(urls),
		"cacheHits", result.CacheHits,
		"generated", result.GeneratedCount)
	return result, nil
}

// generateDescriptions runs the vision model over the missed URLs with at
// most maxConcurrent calls in flight. Failed images are logged and skipped.
func (s *Service) generateDescriptions(ctx context.Context, urls []string) map[string]string {
	var mu sync.Mutex
	out := make(map[string]string)

	var eg errgroup.Group
	for _, url := range urls {
		eg.Go(func() error {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				s.logger.Warn("image description cancelled", "url", url, "error", err)
				return nil
			}
			defer s.sem.Release(1)

			desc, err := s.vision.DescribeImage(ctx, url, descriptionPrompt)
			if err != nil {
				s.logger.Warn("failed to describe image, leaving reference unresolved",
					"url", url, "error", err)
				return nil
			}
			if desc == "" {
				return nil
			}
			mu.Lock()
			out[url] = desc
			mu.Unlock()
			return nil
		})
	}
	// Failures are handled per image above, so Wait always returns nil.
	_ = eg.Wait()
	return out
}

// writeBack stores generated descriptions with the configured TTL. Write
// failures only cost a future regeneration, so they are logged and ignored.
func (s *Service) writeBack(ctx context.Context, generated map[string]string) {
	for url, desc := range generated {
		if err := s.cache.Set(ctx, cacheKeyPrefix+url, desc, s.ttl); err != nil {
			s.logger.Warn("failed to cache image description", "url", url, "error", err)
		}
	}
}

// ReplaceImagesWithDescriptions rewrites markdown image references whose
// URL has a description into "[IMAGE: description]". References without a
// description are left exactly as they are.
func ReplaceImagesWithDescriptions(text string, descriptions map[string]string) string {
	if len(descriptions) == 0 {
		return text
	}
	return imagePattern.ReplaceAllStringFunc(text, func(ref string) string {
		match := imagePattern.FindStringSubmatch(ref)
		desc, ok := descriptions[match[1]]
		if !ok {
			return ref
		}
		return "[IMAGE: " + desc + "]"
	})
}

// ApplyDescriptionsToQuestions returns a deep copy of the pools with every
// resolvable image reference replaced by its description. The input pools
// are never mutated; the originals keep their real images for the final
// quiz while the copy feeds the composer prompt.
func ApplyDescriptionsToQuestions(pools []quiz.QuizQuestionPool, descriptions map[string]string) []quiz.QuizQuestionPool {
	replace := func(text string) string {
		return ReplaceImagesWithDescriptions(text, descriptions)
	}

	out := make([]quiz.QuizQuestionPool, len(pools))
	for i, pool := range pools {
		questions := make([]quiz.RagQuizQuestion, len(pool.Questions))
		for j, q := range pool.Questions {
			q.Question = q.Question.MapTexts(replace)
			questions[j] = q
		}
		out[i] = quiz.QuizQuestionPool{Source: pool.Source, Questions: questions}
	}
	return out
}
