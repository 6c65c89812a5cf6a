package composer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/edforge/quizrag/llm"
	"github.com/edforge/quizrag/quiz"
	"github.com/edforge/quizrag/tracing"
)

func candidate(uid, stem string) quiz.RagQuizQuestion {
	return quiz.RagQuizQuestion{
		SourceUID: uid,
		Question:  quiz.ShortAnswer{Stem: stem, Answers: []string{"a"}},
	}
}

func sixPool() []quiz.QuizQuestionPool {
	return []quiz.QuizQuestionPool{{
		Source: quiz.BasedOnSource{LessonID: "l1", LessonTitle: "Fractions"},
		Questions: []quiz.RagQuizQuestion{
			candidate("QUES-1", "q1"), candidate("QUES-2", "q2"), candidate("QUES-3", "q3"),
			candidate("QUES-4", "q4"), candidate("QUES-5", "q5"), candidate("QUES-6", "q6"),
		},
	}}
}

// scriptedCompleter returns a fixed response or error.
type scriptedCompleter struct {
	response CompositionResponse
	err      error
	called   bool
	prompt   string
}

func (s *scriptedCompleter) CompleteStructured(_ context.Context, messages []llm.ChatMessage, _ *llm.ResponseFormat, out any) error {
	s.called = true
	for _, m := range messages {
		if m.Role == "user" {
			s.prompt = m.Content
		}
	}
	if s.err != nil {
		return s.err
	}
	data, err := json.Marshal(s.response)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func sixSelections() CompositionResponse {
	return CompositionResponse{
		OverallStrategy: "cover the spread",
		SelectedQuestions: []SelectedQuestion{
			{QuestionUID: "QUES-1", Reasoning: "r1"},
			{QuestionUID: "QUES-2", Reasoning: "r2"},
			{QuestionUID: "QUES-3", Reasoning: "r3"},
			{QuestionUID: "QUES-4", Reasoning: "r4"},
			{QuestionUID: "QUES-5", Reasoning: "r5"},
			{QuestionUID: "QUES-6", Reasoning: "r6"},
		},
	}
}

func TestComposeSelectsSixQuestions(t *testing.T) {
	completer := &scriptedCompleter{response: sixSelections()}
	c := NewLLMComposer(completer, nil)
	tracer := tracing.NewTracer(nil)
	root := tracer.StartSpan("pipeline")

	result, err := c.Compose(context.Background(), sixPool(), quiz.LessonPlan{Title: "t"}, quiz.StarterQuiz, root)
	root.End()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Selected) != QuestionsPerQuiz {
		t.Fatalf("got %d selections, want %d", len(result.Selected), QuestionsPerQuiz)
	}
	if result.Selected[0].SourceUID != "QUES-1" {
		t.Errorf("selection order not preserved: %s first", result.Selected[0].SourceUID)
	}

	// Both composer stages traced under the parent.
	roots := tracer.CompletedSpans()
	if _, ok := roots[0].Child(string(tracing.StageComposerPrompt)); !ok {
		t.Error("composerPrompt span missing")
	}
	if _, ok := roots[0].Child(string(tracing.StageComposerLLM)); !ok {
		t.Error("composerLlm span missing")
	}
}

func TestComposeZeroPoolsSkipsLLM(t *testing.T) {
	completer := &scriptedCompleter{response: sixSelections()}
	c := NewLLMComposer(completer, nil)

	result, err := c.Compose(context.Background(), nil, quiz.LessonPlan{}, quiz.ExitQuiz, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completer.called {
		t.Error("LLM called despite zero pools")
	}
	if len(result.Selected) != 0 {
		t.Errorf("got %d selections", len(result.Selected))
	}
	if result.Response.OverallStrategy == "" {
		t.Error("neutral result missing strategy text")
	}
}

func TestComposeLLMFailureIsFatal(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("model refused")}
	c := NewLLMComposer(completer, nil)

	_, err := c.Compose(context.Background(), sixPool(), quiz.LessonPlan{}, quiz.StarterQuiz, nil)
	if !errors.Is(err, ErrCompositionFailed) {
		t.Fatalf("error = %v, want ErrCompositionFailed", err)
	}
}

func TestMapResponseDropsUnknownUIDs(t *testing.T) {
	response := sixSelections()
	response.SelectedQuestions[2].QuestionUID = "QUES-UNKNOWN"

	selected := MapResponseToQuestions(response, sixPool(), nil)
	if len(selected) != 5 {
		t.Fatalf("got %d selections, want 5 (unknown UID dropped)", len(selected))
	}
	for _, q := range selected {
		if q.SourceUID == "QUES-UNKNOWN" {
			t.Error("unknown UID survived mapping")
		}
	}
	// Order of the survivors preserved.
	if selected[2].SourceUID != "QUES-4" {
		t.Errorf("order broken after drop: %s", selected[2].SourceUID)
	}
}

func TestPromptQuizTypeFraming(t *testing.T) {
	plan := quiz.LessonPlan{
		Title:             "Adding fractions",
		PriorKnowledge:    []string{"what a fraction is"},
		KeyLearningPoints: []string{"adding with common denominators"},
	}

	starter := BuildCompositionPrompt(sixPool(), plan, quiz.StarterQuiz)
	exit := BuildCompositionPrompt(sixPool(), plan, quiz.ExitQuiz)

	if !strings.Contains(starter, "STARTER quiz") || !strings.Contains(starter, "prior knowledge") {
		t.Error("starter prompt missing prior-knowledge framing")
	}
	if strings.Contains(starter, "Key learning points to check") {
		t.Error("starter prompt leaks key learning points")
	}
	if !strings.Contains(starter, "what a fraction is") {
		t.Error("starter prompt missing prior knowledge items")
	}

	if !strings.Contains(exit, "EXIT quiz") || !strings.Contains(exit, "key learning points") {
		t.Error("exit prompt missing key-learning-point framing")
	}
	if strings.Contains(exit, "Prior knowledge to check") {
		t.Error("exit prompt leaks prior knowledge list")
	}
	if !strings.Contains(exit, "adding with common denominators") {
		t.Error("exit prompt missing key learning points")
	}
}

func TestPromptRendersUIDsAndSources(t *testing.T) {
	pools := []quiz.QuizQuestionPool{
		{
			Source: quiz.SemanticSearchSource{Query: "equivalent fractions"},
			Questions: []quiz.RagQuizQuestion{
				{SourceUID: "QUES-MC", Question: quiz.MultipleChoice{Stem: "pick", Answers: []string{"right"}, Distractors: []string{"wrong"}}},
				{SourceUID: "QUES-ORD", Question: quiz.Order{Stem: "sort", Items: []string{"one", "two"}}},
			},
		},
	}
	prompt := BuildCompositionPrompt(pools, quiz.LessonPlan{}, quiz.StarterQuiz)

	for _, want := range []string{
		"### Question UID: QUES-MC",
		"### Question UID: QUES-ORD",
		`semantic search: "equivalent fractions"`,
		"Distractors:",
		"Correct order:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
