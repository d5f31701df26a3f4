package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordOptimization(OptimizationEvent) error {
	r.count++
	return r.err
}

func TestMultiSinkFanOut(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordOptimization(OptimizationEvent{}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if s1.count != 1 || s2.count != 1 {
		t.Fatal("event not forwarded to all sinks")
	}
}

func TestMultiSinkFirstError(t *testing.T) {
	sentinel := errors.New("sink down")
	s1 := &recordSink{err: sentinel}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordOptimization(OptimizationEvent{}); !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sink error", err)
	}
	if s2.count != 0 {
		t.Fatal("fan-out continued past the failing sink")
	}
}
