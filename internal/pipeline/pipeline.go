package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/clvscore/internal/clv"
	"github.com/TobiSchelling/clvscore/internal/config"
	"github.com/TobiSchelling/clvscore/internal/database"
	"github.com/TobiSchelling/clvscore/internal/dataset"
	"github.com/TobiSchelling/clvscore/internal/report"
	"github.com/TobiSchelling/clvscore/internal/source"
)

// StepCount is the number of steps in a full run: loading, the engine
// stages and saving.
const StepCount = clv.StageCount + 2

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID   string
	Steps   []StepResult
	Outcome *clv.Outcome
}

// Err returns the first step error, if any.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", s.Name, s.Err)
		}
	}
	return nil
}

// Pipeline loads transactions, scores customers and stores the run.
type Pipeline struct {
	cfg    *config.Config
	db     *database.DB
	src    source.Source
	engine *clv.Engine

	// OnStep, if set, is called before each step starts.
	OnStep func(step int, name string)
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB, src source.Source) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		db:     db,
		src:    src,
		engine: clv.NewEngine(cfg.EngineOptions()),
	}
}

// Run executes the full pipeline: Load, the engine stages, then Save.
// It stops at the first failing step.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{RunID: uuid.New().String()}
	n := 0
	step := func(name string, fn func() (string, error)) bool {
		n++
		if p.OnStep != nil {
			p.OnStep(n, name)
		}
		log.Printf("Step %d/%d: %s...", n, StepCount, name)
		if err := ctx.Err(); err != nil {
			r.Steps = append(r.Steps, StepResult{Name: name, Err: err})
			return false
		}
		summary, err := fn()
		r.Steps = append(r.Steps, StepResult{Name: name, Summary: summary, Err: err})
		return err == nil
	}

	var frame *dataset.Frame
	if !step("Load", func() (string, error) {
		f, err := p.src.Load(ctx)
		if err != nil {
			return "", err
		}
		frame = f
		return fmt.Sprintf("Loaded %d lines from %s", f.Len(), p.src.Name()), nil
	}) {
		return r
	}

	out := &clv.Outcome{}
	for _, s := range p.engine.Stages(frame) {
		if !step(s.Name, func() (string, error) { return s.Run(out) }) {
			return r
		}
	}

	if !step("Save", func() (string, error) { return p.save(r.RunID, out) }) {
		return r
	}
	r.Outcome = out
	return r
}

// DryRun loads the input and runs the cheap engine stages, describing the
// rest without fitting or storing anything.
func (p *Pipeline) DryRun(ctx context.Context) *Result {
	r := &Result{}
	opts := p.engine.Options()

	f, err := p.src.Load(ctx)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Load", Err: err})
		return r
	}
	d := f.Describe()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Load",
		Summary: fmt.Sprintf("[dry-run] %d lines, %d columns from %s", d.RowCount, d.ColumnCount, p.src.Name()),
	})

	out := &clv.Outcome{}
	for _, s := range p.engine.Stages(f) {
		var summary string
		switch s.Name {
		case clv.StageSummarize, clv.StageRFM:
			if summary, err = s.Run(out); err != nil {
				r.Steps = append(r.Steps, StepResult{Name: s.Name, Err: err})
				return r
			}
		case clv.StageFitTiming:
			summary = fmt.Sprintf("Would fit BG/NBD (penalizer %g)", opts.TimingPenalizer)
		case clv.StageFitMonetary:
			summary = fmt.Sprintf("Would fit Gamma-Gamma (penalizer %g)", opts.MonetaryPenalizer)
		case clv.StageScore:
			summary = fmt.Sprintf("Would project %d months into %d segments", opts.Projection.TimePeriod, opts.Segments)
		}
		r.Steps = append(r.Steps, StepResult{Name: s.Name, Summary: "[dry-run] " + summary})
	}

	r.Steps = append(r.Steps, StepResult{Name: "Save", Summary: "[dry-run] Would store run and report"})
	return r
}

// save stores the outcome with its markdown report.
func (p *Pipeline) save(runID string, out *clv.Outcome) (string, error) {
	if p.cfg.Debug() {
		for _, r := range out.Results {
			log.Printf("customer %s: segment=%s clv=%.2f p_alive=%.3f predicted=%.3f",
				r.CustomerID, r.Segment, r.CLV, r.ProbabilityAlive, r.PredictedPurchases)
		}
	}
	if p.db == nil {
		return "No store; run not saved", nil
	}

	md := report.Markdown(runID, p.src.Name(), out)
	if err := p.db.SaveRun(toRun(runID, p.src.Name(), md, out), toResults(out.Results), SegmentRows(out.Segments)); err != nil {
		return "", fmt.Errorf("saving run: %w", err)
	}
	return fmt.Sprintf("Stored run %s", runID), nil
}

// Schedule returns a job that runs the pipeline and logs the outcome, for use
// with a cron scheduler.
func (p *Pipeline) Schedule(timeout time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		r := p.Run(ctx)
		if err := r.Err(); err != nil {
			log.Printf("Scheduled run failed: %v", err)
			return
		}
		log.Printf("Scheduled run %s complete", r.RunID)
	}
}
