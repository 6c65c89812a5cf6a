package quiz

import (
	"encoding/json"
	"fmt"
)

// PoolSource identifies where a candidate pool came from. Exactly one
// variant applies per pool; the composer prompt and debug output both
// switch on the concrete type.
type PoolSource interface {
	poolSource()

	// Label returns a short human-readable attribution for prompts and logs.
	Label() string
}

// SemanticSearchSource tags a pool retrieved for a single semantic query.
type SemanticSearchSource struct {
	Query string `json:"query"`
}

// BasedOnSource tags a pool taken from the lesson the plan is based on.
type BasedOnSource struct {
	LessonID    string `json:"lessonId"`
	LessonTitle string `json:"lessonTitle"`
}

// RelatedLessonSource tags a pool taken from a curriculum-related lesson.
type RelatedLessonSource struct {
	LessonID    string `json:"lessonId"`
	LessonTitle string `json:"lessonTitle"`
}

func (SemanticSearchSource) poolSource() {}
func (BasedOnSource) poolSource()        {}
func (RelatedLessonSource) poolSource()  {}

func (s SemanticSearchSource) Label() string {
	return fmt.Sprintf("semantic search: %q", s.Query)
}

func (s BasedOnSource) Label() string {
	return fmt.Sprintf("based-on lesson: %s", s.LessonTitle)
}

func (s RelatedLessonSource) Label() string {
	return fmt.Sprintf("related lesson: %s", s.LessonTitle)
}

// ImageMetadata describes an image referenced from question markdown.
type ImageMetadata struct {
	ImageURL    string `json:"imageUrl"`
	Attribution string `json:"attribution,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// RagQuizQuestion is a retrieved question candidate with its stable UID,
// the opaque origin record it was loaded from, and any image metadata.
type RagQuizQuestion struct {
	SourceUID     string          `json:"sourceUid"`
	Question      Question        `json:"-"`
	Origin        json.RawMessage `json:"origin,omitempty"`
	ImageMetadata []ImageMetadata `json:"imageMetadata,omitempty"`
}

// MarshalJSON encodes the embedded question with its type discriminator so
// round-tripped payloads decode back into the right variant.
func (q RagQuizQuestion) MarshalJSON() ([]byte, error) {
	type alias RagQuizQuestion
	body, err := MarshalQuestion(q.Question)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		Question json.RawMessage `json:"question"`
	}{alias: alias(q), Question: body})
}

// UnmarshalJSON decodes the tagged question payload alongside the flat fields.
func (q *RagQuizQuestion) UnmarshalJSON(data []byte) error {
	type alias RagQuizQuestion
	var raw struct {
		alias
		Question json.RawMessage `json:"question"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	question, err := UnmarshalQuestion(raw.Question)
	if err != nil {
		return err
	}
	*q = RagQuizQuestion(raw.alias)
	q.Question = question
	return nil
}

// QuizQuestionPool is a group of candidate questions sharing one source.
type QuizQuestionPool struct {
	Source    PoolSource        `json:"source"`
	Questions []RagQuizQuestion `json:"questions"`
}

// CountQuestions returns the total number of candidates across pools.
func CountQuestions(pools []QuizQuestionPool) int {
	n := 0
	for _, p := range pools {
		n += len(p.Questions)
	}
	return n
}
