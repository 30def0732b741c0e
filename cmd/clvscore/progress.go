package main

import (
	"io"
	"log"

	"github.com/schollz/progressbar/v3"

	"github.com/TobiSchelling/clvscore/internal/pipeline"
)

// newStepBar returns a bar counting pipeline steps.
func newStepBar(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(pipeline.StepCount,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Scoring"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// stepProgress advances bar as pipeline steps start. Progress output is
// cosmetic, so render failures are logged and the run continues.
func stepProgress(bar *progressbar.ProgressBar) func(step int, name string) {
	return func(step int, name string) {
		bar.Describe(name)
		if err := bar.Set(step - 1); err != nil {
			log.Printf("Progress bar: %v", err)
		}
	}
}
