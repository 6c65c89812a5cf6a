// Package tracing provides a span tree for pipeline runs plus a streaming
// stage report built on instrumentation hooks.
//
// Information Hiding:
// - Live spans are mutable and mutex-guarded; consumers only ever see
//   immutable CompletedSpan snapshots
// - Instrumentation observes span lifecycle without access to live spans
// - All Span and Tracer methods are safe on a nil receiver so call sites
//   never need tracing guards
package tracing

import (
	"sync"
	"time"
)

// SpanResultKey is the data key instrumentation reads a stage result from.
const SpanResultKey = "result"

// Instrumentation receives span lifecycle callbacks. Callbacks may fire
// from concurrent goroutines; implementations must be safe for that.
type Instrumentation interface {
	OnSpanStart(name string)
	OnSpanEnd(span CompletedSpan)
}

// CompletedSpan is the immutable record of an ended span.
type CompletedSpan struct {
	Name       string          `json:"name"`
	StartedAt  time.Time       `json:"startedAt"`
	DurationMs int64           `json:"durationMs"`
	Data       map[string]any  `json:"data,omitempty"`
	Children   []CompletedSpan `json:"children,omitempty"`
}

// Child returns the first child with the given name.
func (c CompletedSpan) Child(name string) (CompletedSpan, bool) {
	for _, child := range c.Children {
		if child.Name == name {
			return child, true
		}
	}
	return CompletedSpan{}, false
}

// Tracer creates root spans and collects their completed forms.
type Tracer struct {
	instr Instrumentation

	mu    sync.Mutex
	roots []CompletedSpan
}

// NewTracer creates a tracer. instr may be nil for buffered-only tracing.
func NewTracer(instr Instrumentation) *Tracer {
	return &Tracer{instr: instr}
}

// StartSpan starts a root span.
func (t *Tracer) StartSpan(name string) *Span {
	if t == nil {
		return nil
	}
	t.onStart(name)
	return &Span{name: name, startedAt: time.Now(), tracer: t}
}

// CompletedSpans returns the root spans ended so far, in end order.
func (t *Tracer) CompletedSpans() []CompletedSpan {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]CompletedSpan, len(t.roots))
	copy(out, t.roots)
	return out
}

func (t *Tracer) onStart(name string) {
	if t.instr != nil {
		t.instr.OnSpanStart(name)
	}
}

func (t *Tracer) onEnd(span CompletedSpan) {
	if t.instr != nil {
		t.instr.OnSpanEnd(span)
	}
}

func (t *Tracer) addRoot(span CompletedSpan) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roots = append(t.roots, span)
}

// Span is a live, in-progress span. Children may be started and data set
// from concurrent goroutines.
type Span struct {
	name      string
	startedAt time.Time
	tracer    *Tracer
	parent    *Span

	mu       sync.Mutex
	data     map[string]any
	children []CompletedSpan
	ended    bool
}

// StartChild starts a child span.
func (s *Span) StartChild(name string) *Span {
	if s == nil {
		return nil
	}
	s.tracer.onStart(name)
	return &Span{name: name, startedAt: time.Now(), tracer: s.tracer, parent: s}
}

// SetData attaches a key/value to the span. Values must not be mutated
// after being set; completed snapshots share them.
func (s *Span) SetData(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]any)
	}
	s.data[key] = value
}

// End seals the span into a CompletedSpan, attaches it to its parent (or
// the tracer for roots), and fires the OnSpanEnd hook. Ending twice is a
// no-op returning the zero value.
func (s *Span) End() CompletedSpan {
	if s == nil {
		return CompletedSpan{}
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return CompletedSpan{}
	}
	s.ended = true
	done := CompletedSpan{
		Name:       s.name,
		StartedAt:  s.startedAt,
		DurationMs: time.Since(s.startedAt).Milliseconds(),
		Data:       s.data,
		Children:   s.children,
	}
	s.mu.Unlock()

	if s.parent != nil {
		s.parent.addChild(done)
	} else if s.tracer != nil {
		s.tracer.addRoot(done)
	}
	if s.tracer != nil {
		s.tracer.onEnd(done)
	}
	return done
}

func (s *Span) addChild(child CompletedSpan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, child)
}
