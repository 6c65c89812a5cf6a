package quiz

import "encoding/json"

// Quiz is the final composed quiz: the selected questions plus the union of
// image metadata carried by them.
type Quiz struct {
	Questions     []Question      `json:"questions"`
	ImageMetadata []ImageMetadata `json:"imageMetadata"`
}

// MarshalJSON encodes questions with their type discriminators.
func (q Quiz) MarshalJSON() ([]byte, error) {
	questions := make([]json.RawMessage, len(q.Questions))
	for i, question := range q.Questions {
		body, err := MarshalQuestion(question)
		if err != nil {
			return nil, err
		}
		questions[i] = body
	}
	return json.Marshal(struct {
		Questions     []json.RawMessage `json:"questions"`
		ImageMetadata []ImageMetadata   `json:"imageMetadata"`
	}{Questions: questions, ImageMetadata: q.ImageMetadata})
}

// BuildQuizFromQuestions assembles the final quiz object from the selected
// candidates. Image metadata is the union across selections, deduplicated by
// URL in first-appearance order.
func BuildQuizFromQuestions(selected []RagQuizQuestion) Quiz {
	questions := make([]Question, 0, len(selected))
	var images []ImageMetadata
	seen := make(map[string]bool)

	for _, s := range selected {
		questions = append(questions, s.Question)
		for _, img := range s.ImageMetadata {
			if seen[img.ImageURL] {
				continue
			}
			seen[img.ImageURL] = true
			images = append(images, img)
		}
	}
	return Quiz{Questions: questions, ImageMetadata: images}
}
