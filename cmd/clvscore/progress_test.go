package main

import (
	"errors"
	"io"
	"log"
	"os"
	"testing"

	"github.com/TobiSchelling/clvscore/internal/pipeline"
)

func TestStepProgress(t *testing.T) {
	bar := newStepBar(io.Discard)
	onStep := stepProgress(bar)

	onStep(1, "Load")
	onStep(3, "RFM")

	got := bar.State().CurrentPercent
	want := 2.0 / float64(pipeline.StepCount)
	if d := got - want; d > 1e-9 || d < -1e-9 {
		t.Errorf("expected progress %v, got %v", want, got)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestStepProgressKeepsGoingOnWriteError(t *testing.T) {
	log.SetOutput(io.Discard)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	bar := newStepBar(failingWriter{})
	onStep := stepProgress(bar)
	for i := 1; i <= pipeline.StepCount; i++ {
		onStep(i, "step")
	}

	got := bar.State().CurrentPercent
	want := float64(pipeline.StepCount-1) / float64(pipeline.StepCount)
	if d := got - want; d > 1e-9 || d < -1e-9 {
		t.Errorf("expected progress %v after write errors, got %v", want, got)
	}
}
