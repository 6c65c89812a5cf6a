package storage

import (
	"context"
	"sync"

	"github.com/edforge/quizrag/generator"
	"github.com/edforge/quizrag/quiz"
)

type lessonKey struct {
	lessonID string
	quizType quiz.QuizType
}

// MemoryBank is an in-process question bank for tests and fixtures.
type MemoryBank struct {
	mu      sync.RWMutex
	byUID   map[string]quiz.RagQuizQuestion
	lessons map[lessonKey][]string // ordered UIDs per lesson quiz
}

// NewMemoryBank creates an empty in-memory bank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{
		byUID:   make(map[string]quiz.RagQuizQuestion),
		lessons: make(map[lessonKey][]string),
	}
}

// AddQuestion stores a question. lessonID and quizType may be empty for
// questions only reachable by UID.
func (b *MemoryBank) AddQuestion(q quiz.RagQuizQuestion, lessonID string, quizType quiz.QuizType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byUID[q.SourceUID] = q
	if lessonID != "" {
		key := lessonKey{lessonID: lessonID, quizType: quizType}
		b.lessons[key] = append(b.lessons[key], q.SourceUID)
	}
}

// QuestionsByUID returns the questions for the given UIDs, preserving
// request order. Unknown UIDs are skipped.
func (b *MemoryBank) QuestionsByUID(_ context.Context, uids []string) ([]quiz.RagQuizQuestion, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]quiz.RagQuizQuestion, 0, len(uids))
	for _, uid := range uids {
		if q, ok := b.byUID[uid]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// LessonQuiz returns the stored quiz of a lesson.
func (b *MemoryBank) LessonQuiz(_ context.Context, lessonID string, quizType quiz.QuizType) ([]quiz.RagQuizQuestion, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	uids := b.lessons[lessonKey{lessonID: lessonID, quizType: quizType}]
	out := make([]quiz.RagQuizQuestion, 0, len(uids))
	for _, uid := range uids {
		if q, ok := b.byUID[uid]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// Verify MemoryBank implements the generator interfaces
var _ generator.QuestionBank = (*MemoryBank)(nil)
