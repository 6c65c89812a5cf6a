// Package quiz provides the domain model for quiz candidate generation:
// question variants, candidate pools, lesson plans and the final quiz object.
//
// Information Hiding:
// - Question variants form a closed sum; consumers switch on concrete types
// - Text traversal and rewriting go through Texts/MapTexts, not field access
// - JSON encoding carries a questionType discriminator, decoded centrally
package quiz

import (
	"encoding/json"
	"fmt"
)

// QuestionType discriminates the concrete question variant in JSON payloads.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeShortAnswer    QuestionType = "short-answer"
	QuestionTypeMatch          QuestionType = "match"
	QuestionTypeOrder          QuestionType = "order"
)

// Question is the closed set of question variants. The marker method keeps
// the set closed to this package; adding a variant forces every exhaustive
// switch in the codebase to be revisited.
type Question interface {
	questionVariant()

	// QuestionType returns the JSON discriminator for the variant.
	QuestionType() QuestionType

	// Texts returns every markdown text field of the question, in display
	// order. Fields may embed ![alt](url) image references.
	Texts() []string

	// MapTexts returns a deep copy of the question with fn applied to every
	// text field. The receiver is never mutated.
	MapTexts(fn func(string) string) Question
}

// MultipleChoice is a question with correct answers and distractors.
type MultipleChoice struct {
	Stem        string   `json:"question"`
	Answers     []string `json:"answers"`
	Distractors []string `json:"distractors"`
}

// ShortAnswer is a free-text question with one or more accepted answers.
type ShortAnswer struct {
	Stem    string   `json:"question"`
	Answers []string `json:"answers"`
}

// MatchPair is one left/right pairing in a match question.
type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Match is a question asking pupils to pair up left and right items.
type Match struct {
	Stem  string      `json:"question"`
	Pairs []MatchPair `json:"pairs"`
}

// Order is a question asking pupils to sequence items correctly.
type Order struct {
	Stem  string   `json:"question"`
	Items []string `json:"items"`
}

func (MultipleChoice) questionVariant() {}
func (ShortAnswer) questionVariant()    {}
func (Match) questionVariant()          {}
func (Order) questionVariant()          {}

func (MultipleChoice) QuestionType() QuestionType { return QuestionTypeMultipleChoice }
func (ShortAnswer) QuestionType() QuestionType    { return QuestionTypeShortAnswer }
func (Match) QuestionType() QuestionType          { return QuestionTypeMatch }
func (Order) QuestionType() QuestionType          { return QuestionTypeOrder }

func (q MultipleChoice) Texts() []string {
	out := []string{q.Stem}
	out = append(out, q.Answers...)
	out = append(out, q.Distractors...)
	return out
}

func (q ShortAnswer) Texts() []string {
	return append([]string{q.Stem}, q.Answers...)
}

func (q Match) Texts() []string {
	out := []string{q.Stem}
	for _, p := range q.Pairs {
		out = append(out, p.Left, p.Right)
	}
	return out
}

func (q Order) Texts() []string {
	return append([]string{q.Stem}, q.Items...)
}

func (q MultipleChoice) MapTexts(fn func(string) string) Question {
	return MultipleChoice{
		Stem:        fn(q.Stem),
		Answers:     mapStrings(q.Answers, fn),
		Distractors: mapStrings(q.Distractors, fn),
	}
}

func (q ShortAnswer) MapTexts(fn func(string) string) Question {
	return ShortAnswer{Stem: fn(q.Stem), Answers: mapStrings(q.Answers, fn)}
}

func (q Match) MapTexts(fn func(string) string) Question {
	pairs := make([]MatchPair, len(q.Pairs))
	for i, p := range q.Pairs {
		pairs[i] = MatchPair{Left: fn(p.Left), Right: fn(p.Right)}
	}
	return Match{Stem: fn(q.Stem), Pairs: pairs}
}

func (q Order) MapTexts(fn func(string) string) Question {
	return Order{Stem: fn(q.Stem), Items: mapStrings(q.Items, fn)}
}

func mapStrings(in []string, fn func(string) string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fn(s)
	}
	return out
}

// questionEnvelope is the tagged JSON form shared by all variants.
type questionEnvelope struct {
	QuestionType QuestionType    `json:"questionType"`
	Question     json.RawMessage `json:"questionBody"`
}

// MarshalQuestion encodes a question with its type discriminator.
func MarshalQuestion(q Question) ([]byte, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s question: %w", q.QuestionType(), err)
	}
	return json.Marshal(questionEnvelope{QuestionType: q.QuestionType(), Question: body})
}

// UnmarshalQuestion decodes a tagged question payload into its concrete
// variant. Unknown discriminators are an error, not a silent fallthrough.
func UnmarshalQuestion(data []byte) (Question, error) {
	var env questionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode question envelope: %w", err)
	}

	var q Question
	switch env.QuestionType {
	case QuestionTypeMultipleChoice:
		var v MultipleChoice
		if err := json.Unmarshal(env.Question, &v); err != nil {
			return nil, fmt.Errorf("failed to decode multiple-choice question: %w", err)
		}
		q = v
	case QuestionTypeShortAnswer:
		var v ShortAnswer
		if err := json.Unmarshal(env.Question, &v); err != nil {
			return nil, fmt.Errorf("failed to decode short-answer question: %w", err)
		}
		q = v
	case QuestionTypeMatch:
		var v Match
		if err := json.Unmarshal(env.Question, &v); err != nil {
			return nil, fmt.Errorf("failed to decode match question: %w", err)
		}
		q = v
	case QuestionTypeOrder:
		var v Order
		if err := json.Unmarshal(env.Question, &v); err != nil {
			return nil, fmt.Errorf("failed to decode order question: %w", err)
		}
		q = v
	default:
		return nil, fmt.Errorf("unknown question type %q", env.QuestionType)
	}
	return q, nil
}
