package pipeline

import (
	"context"

	"github.com/edforge/quizrag/quiz"
	"github.com/edforge/quizrag/tracing"
)

// StreamingRun is an in-flight pipeline run with a live stage report.
type StreamingRun struct {
	reports <-chan tracing.PipelineReport
	done    chan struct{}
	result  *DebugResult
	err     error
}

// RunStreaming starts the pipeline in the background and returns a handle
// whose Reports channel yields a snapshot per stage transition. The channel
// closes when the run is sealed; Wait then returns the final result.
func (d *DebugService) RunStreaming(ctx context.Context, plan quiz.LessonPlan, quizType quiz.QuizType, related []quiz.RelatedLesson) *StreamingRun {
	report := tracing.NewStreamingReport()
	run := &StreamingRun{
		reports: report.Reports(),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(run.done)
		result, err := d.Run(ctx, plan, quizType, related, report)
		run.result = result
		run.err = err
		report.Seal(err)
	}()

	return run
}

// Reports returns the snapshot channel.
func (r *StreamingRun) Reports() <-chan tracing.PipelineReport {
	return r.reports
}

// Wait blocks until the run finishes and returns its result. On a fatal
// composition error the partial debug result accompanies the error.
func (r *StreamingRun) Wait() (*DebugResult, error) {
	<-r.done
	return r.result, r.err
}
