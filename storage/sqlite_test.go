package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/edforge/quizrag/quiz"
)

func testQuestion(uid, stem string) quiz.RagQuizQuestion {
	return quiz.RagQuizQuestion{
		SourceUID: uid,
		Question:  quiz.ShortAnswer{Stem: stem, Answers: []string{"answer"}},
	}
}

func newTestBank(t *testing.T) *SqliteBank {
	t.Helper()
	bank, err := NewSqliteBankInMemory()
	if err != nil {
		t.Fatalf("failed to create bank: %v", err)
	}
	t.Cleanup(func() { bank.Close() })
	return bank
}

func TestSqliteBankQuestionsByUID(t *testing.T) {
	ctx := context.Background()
	bank := newTestBank(t)

	for _, uid := range []string{"QUES-A", "QUES-B", "QUES-C"} {
		if err := bank.AddQuestion(ctx, testQuestion(uid, "stem for "+uid), "", 0); err != nil {
			t.Fatalf("add %s: %v", uid, err)
		}
	}

	// Request order preserved, unknown UIDs skipped.
	got, err := bank.QuestionsByUID(ctx, []string{"QUES-C", "QUES-MISSING", "QUES-A"})
	if err != nil {
		t.Fatalf("QuestionsByUID: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d questions, want 2", len(got))
	}
	if got[0].SourceUID != "QUES-C" || got[1].SourceUID != "QUES-A" {
		t.Errorf("order not preserved: %s, %s", got[0].SourceUID, got[1].SourceUID)
	}
	if _, ok := got[0].Question.(quiz.ShortAnswer); !ok {
		t.Errorf("payload did not round-trip variant type: %T", got[0].Question)
	}
}

func TestSqliteBankLessonQuiz(t *testing.T) {
	ctx := context.Background()
	bank := newTestBank(t)

	if err := bank.AddQuestion(ctx, testQuestion("QUES-1", "first"), "lesson-1", quiz.StarterQuiz); err != nil {
		t.Fatal(err)
	}
	if err := bank.AddQuestion(ctx, testQuestion("QUES-2", "second"), "lesson-1", quiz.StarterQuiz); err != nil {
		t.Fatal(err)
	}
	if err := bank.AddQuestion(ctx, testQuestion("QUES-3", "exit one"), "lesson-1", quiz.ExitQuiz); err != nil {
		t.Fatal(err)
	}

	starter, err := bank.LessonQuiz(ctx, "lesson-1", quiz.StarterQuiz)
	if err != nil {
		t.Fatalf("LessonQuiz: %v", err)
	}
	if len(starter) != 2 {
		t.Fatalf("got %d starter questions, want 2", len(starter))
	}
	if starter[0].SourceUID != "QUES-1" {
		t.Errorf("insertion order not preserved: %s first", starter[0].SourceUID)
	}

	other, err := bank.LessonQuiz(ctx, "lesson-2", quiz.StarterQuiz)
	if err != nil {
		t.Fatalf("LessonQuiz (unknown lesson): %v", err)
	}
	if len(other) != 0 {
		t.Errorf("unknown lesson returned %d questions", len(other))
	}
}

func TestSqliteBankSearch(t *testing.T) {
	ctx := context.Background()
	bank := newTestBank(t)

	if err := bank.AddQuestion(ctx, testQuestion("QUES-FRAC", "What is an equivalent fraction of 1/2?"), "", 0); err != nil {
		t.Fatal(err)
	}
	if err := bank.AddQuestion(ctx, testQuestion("QUES-DEC", "Convert the fraction 3/4 to a decimal"), "", 0); err != nil {
		t.Fatal(err)
	}
	if err := bank.AddQuestion(ctx, testQuestion("QUES-ANG", "Measure the angle shown"), "", 0); err != nil {
		t.Fatal(err)
	}

	hits, err := bank.Search(ctx, "equivalent fraction", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].QuestionUID != "QUES-FRAC" {
		t.Errorf("best match = %s, want QUES-FRAC", hits[0].QuestionUID)
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("scores not descending: %f then %f", hits[0].Score, hits[1].Score)
	}

	capped, err := bank.Search(ctx, "fraction", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(capped) != 1 {
		t.Errorf("size cap ignored: got %d hits", len(capped))
	}
}

func TestSqliteBankSearchBestMatchSurvivesLimit(t *testing.T) {
	ctx := context.Background()
	bank := newTestBank(t)

	// Many partial matches inserted ahead of the one row matching every
	// term; a small size must still surface the full match.
	for i := 0; i < 12; i++ {
		uid := fmt.Sprintf("QUES-PART-%d", i)
		if err := bank.AddQuestion(ctx, testQuestion(uid, fmt.Sprintf("fraction practice %d", i)), "", 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := bank.AddQuestion(ctx, testQuestion("QUES-FULL", "convert the fraction to a decimal"), "", 0); err != nil {
		t.Fatal(err)
	}

	hits, err := bank.Search(ctx, "fraction decimal", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].QuestionUID != "QUES-FULL" {
		t.Errorf("best match = %s, want QUES-FULL", hits[0].QuestionUID)
	}
	if hits[0].Score != 1 {
		t.Errorf("full match score = %f, want 1", hits[0].Score)
	}
}

func TestSqliteBankUpsert(t *testing.T) {
	ctx := context.Background()
	bank := newTestBank(t)

	if err := bank.AddQuestion(ctx, testQuestion("QUES-1", "old stem"), "", 0); err != nil {
		t.Fatal(err)
	}
	if err := bank.AddQuestion(ctx, testQuestion("QUES-1", "new stem"), "", 0); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := bank.QuestionsByUID(ctx, []string{"QUES-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d questions, want 1", len(got))
	}
	sa := got[0].Question.(quiz.ShortAnswer)
	if sa.Stem != "new stem" {
		t.Errorf("stem = %q, want updated value", sa.Stem)
	}
}
