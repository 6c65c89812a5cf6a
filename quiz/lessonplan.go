package quiz

import "fmt"

// QuizType selects which quiz of a lesson is being composed.
type QuizType int

const (
	// StarterQuiz checks prior knowledge at the start of a lesson.
	StarterQuiz QuizType = iota
	// ExitQuiz checks the key learning points at the end of a lesson.
	ExitQuiz
)

// String returns the wire name of the quiz type.
func (t QuizType) String() string {
	switch t {
	case StarterQuiz:
		return "starter"
	case ExitQuiz:
		return "exit"
	default:
		return fmt.Sprintf("QuizType(%d)", int(t))
	}
}

// ParseQuizType parses "starter" or "exit".
func ParseQuizType(s string) (QuizType, error) {
	switch s {
	case "starter":
		return StarterQuiz, nil
	case "exit":
		return ExitQuiz, nil
	default:
		return 0, fmt.Errorf("unknown quiz type %q (want starter or exit)", s)
	}
}

// BasedOnRef points at the lesson a plan was derived from.
type BasedOnRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// LessonPlan is the subset of a lesson plan the pipeline reads.
type LessonPlan struct {
	Title             string      `json:"title"`
	Subject           string      `json:"subject"`
	KeyStage          string      `json:"keyStage"`
	Topic             string      `json:"topic"`
	LearningOutcome   string      `json:"learningOutcome"`
	PriorKnowledge    []string    `json:"priorKnowledge"`
	KeyLearningPoints []string    `json:"keyLearningPoints"`
	BasedOn           *BasedOnRef `json:"basedOn,omitempty"`
}

// RelatedLesson is a curriculum-adjacent lesson surfaced by upstream RAG.
type RelatedLesson struct {
	LessonID string `json:"lessonId"`
	Title    string `json:"title"`
}
