package tracing

import (
	"sync"
	"time"
)

// StageName identifies one of the six observable pipeline stages. The
// streaming report matches span names against this set; all other spans
// (per-query children, the pipeline root) pass through unreported.
type StageName string

const (
	StageBasedOn           StageName = "basedOn"
	StageRelatedLessons    StageName = "relatedLessons"
	StageSemanticSearch    StageName = "semanticSearch"
	StageImageDescriptions StageName = "imageDescriptions"
	StageComposerPrompt    StageName = "composerPrompt"
	StageComposerLLM       StageName = "composerLlm"
)

// Stages lists every stage in pipeline execution order.
var Stages = [...]StageName{
	StageBasedOn,
	StageRelatedLessons,
	StageSemanticSearch,
	StageImageDescriptions,
	StageComposerPrompt,
	StageComposerLLM,
}

// StageStatus is the lifecycle of a single stage.
// Transitions are pending -> running -> complete only.
type StageStatus string

const (
	StagePending  StageStatus = "pending"
	StageRunning  StageStatus = "running"
	StageComplete StageStatus = "complete"
)

// StageState is the report entry for one stage. Timestamps are unix millis.
type StageState struct {
	Status      StageStatus `json:"status"`
	StartedAt   int64       `json:"startedAt,omitempty"`
	CompletedAt int64       `json:"completedAt,omitempty"`
	DurationMs  int64       `json:"durationMs,omitempty"`
	Result      any         `json:"result,omitempty"`
}

// StageRecord holds exactly one StageState per stage. It is a struct, not a
// map, so a new stage cannot appear without touching every consumer.
type StageRecord struct {
	BasedOn           StageState `json:"basedOn"`
	RelatedLessons    StageState `json:"relatedLessons"`
	SemanticSearch    StageState `json:"semanticSearch"`
	ImageDescriptions StageState `json:"imageDescriptions"`
	ComposerPrompt    StageState `json:"composerPrompt"`
	ComposerLLM       StageState `json:"composerLlm"`
}

// state returns the entry for name, or nil for non-stage span names.
func (r *StageRecord) state(name StageName) *StageState {
	switch name {
	case StageBasedOn:
		return &r.BasedOn
	case StageRelatedLessons:
		return &r.RelatedLessons
	case StageSemanticSearch:
		return &r.SemanticSearch
	case StageImageDescriptions:
		return &r.ImageDescriptions
	case StageComposerPrompt:
		return &r.ComposerPrompt
	case StageComposerLLM:
		return &r.ComposerLLM
	default:
		return nil
	}
}

// State returns a copy of the entry for name; ok is false for non-stages.
func (r StageRecord) State(name StageName) (StageState, bool) {
	s := r.state(name)
	if s == nil {
		return StageState{}, false
	}
	return *s, true
}

// ReportStatus is the overall pipeline run status.
type ReportStatus string

const (
	ReportRunning  ReportStatus = "running"
	ReportComplete ReportStatus = "complete"
	ReportError    ReportStatus = "error"
)

// PipelineReport is a point-in-time snapshot of the run: per-stage states
// plus overall status. Snapshots are value copies and safe to retain.
type PipelineReport struct {
	Status      ReportStatus `json:"status"`
	Stages      StageRecord  `json:"stages"`
	Error       string       `json:"error,omitempty"`
	StartedAt   int64        `json:"startedAt"`
	CompletedAt int64        `json:"completedAt,omitempty"`
}

// reportQueueSize bounds the snapshot queue. A stalled consumer loses the
// oldest intermediate snapshots; the terminal snapshot is always delivered.
const reportQueueSize = 64

// StreamingReport is an Instrumentation that maintains a PipelineReport and
// publishes a snapshot on every stage transition.
type StreamingReport struct {
	mu     sync.Mutex
	report PipelineReport
	ch     chan PipelineReport
	sealed bool
}

var _ Instrumentation = (*StreamingReport)(nil)

// NewStreamingReport creates a report with all stages pending and publishes
// the initial snapshot.
func NewStreamingReport() *StreamingReport {
	r := &StreamingReport{
		ch: make(chan PipelineReport, reportQueueSize),
		report: PipelineReport{
			Status:    ReportRunning,
			StartedAt: time.Now().UnixMilli(),
			Stages: StageRecord{
				BasedOn:           StageState{Status: StagePending},
				RelatedLessons:    StageState{Status: StagePending},
				SemanticSearch:    StageState{Status: StagePending},
				ImageDescriptions: StageState{Status: StagePending},
				ComposerPrompt:    StageState{Status: StagePending},
				ComposerLLM:       StageState{Status: StagePending},
			},
		},
	}
	r.publish(r.report)
	return r
}

// Reports returns the snapshot channel. It is closed after Seal.
func (r *StreamingReport) Reports() <-chan PipelineReport {
	return r.ch
}

// OnSpanStart moves a matching pending stage to running.
func (r *StreamingReport) OnSpanStart(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return
	}
	state := r.report.Stages.state(StageName(name))
	if state == nil || state.Status != StagePending {
		return
	}
	state.Status = StageRunning
	state.StartedAt = time.Now().UnixMilli()
	r.publish(r.report)
}

// OnSpanEnd moves a matching running stage to complete and records its
// duration and result data.
func (r *StreamingReport) OnSpanEnd(span CompletedSpan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return
	}
	state := r.report.Stages.state(StageName(span.Name))
	if state == nil || state.Status != StageRunning {
		return
	}
	state.Status = StageComplete
	state.CompletedAt = time.Now().UnixMilli()
	state.DurationMs = span.DurationMs
	if span.Data != nil {
		state.Result = span.Data[SpanResultKey]
	}
	r.publish(r.report)
}

// Seal marks the run terminal, publishes the final snapshot, and closes the
// channel. Sealing twice is a no-op.
func (r *StreamingReport) Seal(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return
	}
	r.sealed = true
	r.report.CompletedAt = time.Now().UnixMilli()
	if err != nil {
		r.report.Status = ReportError
		r.report.Error = err.Error()
	} else {
		r.report.Status = ReportComplete
	}
	r.publish(r.report)
	close(r.ch)
}

// publish enqueues a snapshot, dropping the oldest queued snapshot when the
// buffer is full. Called with r.mu held, so there is a single producer.
func (r *StreamingReport) publish(snapshot PipelineReport) {
	for {
		select {
		case r.ch <- snapshot:
			return
		default:
		}
		select {
		case <-r.ch:
		default:
		}
	}
}
