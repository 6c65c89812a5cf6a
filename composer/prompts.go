// Composer prompt assembly.
//
// The prompt is built from fixed sections so tests can assert on framing:
// system role, quiz-type task, selection criteria, lesson plan summary,
// source-type explanation, and the candidate pools rendered to markdown
// with stable UIDs.

package composer

import (
	"fmt"
	"strings"

	"github.com/edforge/quizrag/quiz"
)

// systemPrompt fixes the composer's role.
const systemPrompt = `You are a mathematics education specialist selecting quiz questions for lesson plans.`

// starterTask and exitTask are mutually exclusive framings: a starter quiz
// checks prior knowledge and must not test the lesson's own content, an
// exit quiz checks the key learning points and must not test prior
// knowledge alone.
const starterTask = `Select exactly 6 questions for a STARTER quiz. The starter quiz checks the prior knowledge pupils need BEFORE this lesson begins. Choose questions that assess the prior knowledge listed below. Do NOT choose questions that test what the lesson itself will teach.`

const exitTask = `Select exactly 6 questions for an EXIT quiz. The exit quiz checks whether pupils have understood the key learning points taught IN this lesson. Choose questions that assess the key learning points listed below. Do NOT choose questions that only test prior knowledge from before the lesson.`

const selectionCriteria = `Apply these criteria when selecting:
1. Relevance: the question must target the knowledge this quiz is checking.
2. Cognitive range: cover a spread from recall to application across the six questions.
3. Clarity: the question must be unambiguous and readable for the key stage.
4. Diagnostic value: wrong answers should reveal specific misconceptions.
5. Answer quality: answers must be correct and distractors plausible but clearly wrong.`

const sourceTypesExplanation = `Candidate pools come from three sources:
- based-on lesson: the quiz of the lesson this plan was derived from. These questions were written for almost exactly this lesson; prefer them when they fit the quiz focus.
- related lesson: quizzes of curriculum-adjacent lessons. Usually well matched to the key stage and subject.
- semantic search: questions retrieved by content similarity. Check these extra carefully for fit with the quiz focus and key stage.`

// BuildCompositionPrompt renders the full user prompt for the composer.
func BuildCompositionPrompt(pools []quiz.QuizQuestionPool, plan quiz.LessonPlan, quizType quiz.QuizType) string {
	var b strings.Builder

	switch quizType {
	case quiz.StarterQuiz:
		b.WriteString(starterTask)
	case quiz.ExitQuiz:
		b.WriteString(exitTask)
	}
	b.WriteString("\n\n")
	b.WriteString(selectionCriteria)
	b.WriteString("\n\n")

	writeLessonPlanSummary(&b, plan, quizType)
	b.WriteString("\n")
	b.WriteString(sourceTypesExplanation)
	b.WriteString("\n\n# Candidate question pools\n\n")

	for i, pool := range pools {
		fmt.Fprintf(&b, "## Pool %d (%s)\n\n", i+1, pool.Source.Label())
		for _, q := range pool.Questions {
			writeQuestion(&b, q)
		}
	}

	b.WriteString("Select exactly 6 question UIDs from the pools above and explain each choice.")
	return b.String()
}

func writeLessonPlanSummary(b *strings.Builder, plan quiz.LessonPlan, quizType quiz.QuizType) {
	b.WriteString("# Lesson plan\n\n")
	fmt.Fprintf(b, "- Title: %s\n", plan.Title)
	fmt.Fprintf(b, "- Subject: %s\n", plan.Subject)
	fmt.Fprintf(b, "- Key stage: %s\n", plan.KeyStage)
	fmt.Fprintf(b, "- Topic: %s\n", plan.Topic)
	fmt.Fprintf(b, "- Learning outcome: %s\n", plan.LearningOutcome)

	// Only the list the quiz is checking goes into the prompt; the other
	// would invite selections against the wrong focus.
	switch quizType {
	case quiz.StarterQuiz:
		b.WriteString("- Prior knowledge to check:\n")
		for _, item := range plan.PriorKnowledge {
			fmt.Fprintf(b, "  - %s\n", item)
		}
	case quiz.ExitQuiz:
		b.WriteString("- Key learning points to check:\n")
		for _, item := range plan.KeyLearningPoints {
			fmt.Fprintf(b, "  - %s\n", item)
		}
	}
}

// writeQuestion renders one candidate with its UID header. Rendering
// switches exhaustively on the variant; a new variant must be handled here
// before it can appear in prompts.
func writeQuestion(b *strings.Builder, q quiz.RagQuizQuestion) {
	fmt.Fprintf(b, "### Question UID: %s\n\n", q.SourceUID)

	switch v := q.Question.(type) {
	case quiz.MultipleChoice:
		fmt.Fprintf(b, "Type: multiple choice\n\nQuestion: %s\n\nCorrect answers:\n", v.Stem)
		for _, a := range v.Answers {
			fmt.Fprintf(b, "- %s\n", a)
		}
		b.WriteString("\nDistractors:\n")
		for _, d := range v.Distractors {
			fmt.Fprintf(b, "- %s\n", d)
		}
	case quiz.ShortAnswer:
		fmt.Fprintf(b, "Type: short answer\n\nQuestion: %s\n\nAccepted answers:\n", v.Stem)
		for _, a := range v.Answers {
			fmt.Fprintf(b, "- %s\n", a)
		}
	case quiz.Match:
		fmt.Fprintf(b, "Type: match\n\nQuestion: %s\n\nPairs:\n", v.Stem)
		for _, p := range v.Pairs {
			fmt.Fprintf(b, "- %s -> %s\n", p.Left, p.Right)
		}
	case quiz.Order:
		fmt.Fprintf(b, "Type: order\n\nQuestion: %s\n\nCorrect order:\n", v.Stem)
		for i, item := range v.Items {
			fmt.Fprintf(b, "%d. %s\n", i+1, item)
		}
	default:
		panic(fmt.Sprintf("unhandled question variant %T", q.Question))
	}
	b.WriteString("\n")
}
