package clv

import (
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/clvscore/internal/dataset"
)

// Options configures an engine run. Use DefaultOptions and override fields.
type Options struct {
	Columns dataset.Columns

	TimingPenalizer   float64
	MonetaryPenalizer float64
	Fit               FitSettings

	Projection Projection
	// PredictPeriods is the horizon, in model time units, of PredictedPurchases.
	PredictPeriods float64

	// ReferenceOffsetDays shifts "now" past the last purchase. Ignored if Now is set.
	ReferenceOffsetDays int
	Now                 time.Time

	Segments int
	Labels   []string

	ProfitMarginRate float64
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Columns:             dataset.DefaultColumns(),
		TimingPenalizer:     DefaultTimingPenalizer,
		MonetaryPenalizer:   DefaultMonetaryPenalizer,
		Fit:                 FitSettings{MaxEvaluations: DefaultMaxEvaluations},
		Projection:          DefaultProjection(),
		PredictPeriods:      1,
		ReferenceOffsetDays: DefaultReferenceOffsetDays,
		Segments:            DefaultSegmentCount,
		ProfitMarginRate:    DefaultProfitMarginRate,
	}
}

// Outcome is everything a run derives from one input frame.
type Outcome struct {
	Lines    []SalesLine
	Now      time.Time
	Summary  *SummaryResult
	RFM      []CustomerRFM
	Timing   *TimingModel
	Monetary *MonetaryModel
	Results  []CLVResult
	Segments []SegmentSummary
}

// Engine runs the CLV stages with fixed options.
type Engine struct {
	opts Options
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	opts.Columns = opts.Columns.WithDefaults()
	return &Engine{opts: opts}
}

// Options returns the engine's options.
func (e *Engine) Options() Options {
	return e.opts
}

// Lines adds sales amounts to the frame and converts it to typed sales lines.
func (e *Engine) Lines(f *dataset.Frame) ([]SalesLine, error) {
	agg, err := Aggregate(f, e.opts.Columns)
	if err != nil {
		return nil, err
	}
	return SalesLines(agg, e.opts.Columns)
}

// ReferenceTime returns Now if set, else the last purchase plus the offset.
func (e *Engine) ReferenceTime(lines []SalesLine) time.Time {
	if !e.opts.Now.IsZero() {
		return e.opts.Now.UTC()
	}
	return ReferenceTime(lines, e.opts.ReferenceOffsetDays)
}

// Predict scores each repeat customer with both fitted models.
func (e *Engine) Predict(timing *TimingModel, monetary *MonetaryModel, rfm []CustomerRFM) ([]CLVResult, error) {
	values, err := Project(timing, monetary, rfm, e.opts.Projection)
	if err != nil {
		return nil, err
	}
	t := e.opts.PredictPeriods
	if t <= 0 {
		t = 1
	}

	out := make([]CLVResult, len(rfm))
	for i, c := range rfm {
		out[i] = CLVResult{
			CustomerRFM:           c,
			PredictedPurchases:    timing.ExpectedPurchasesFor(t, c.Frequency, c.Recency, c.T),
			ExpectedAverageProfit: monetary.ExpectedAverageValue(c.Frequency, c.Monetary),
			ProbabilityAlive:      timing.ProbabilityAlive(c.Frequency, c.Recency, c.T),
			CLV:                   values[i],
		}
	}
	return out, nil
}

// Segment assigns tiers using the configured count and labels.
func (e *Engine) Segment(results []CLVResult) ([]CLVResult, error) {
	count := e.opts.Segments
	if count == 0 {
		count = DefaultSegmentCount
	}
	return Segment(results, count, e.opts.Labels)
}

// Stage names, in run order.
const (
	StageSummarize   = "Summarize"
	StageRFM         = "RFM"
	StageFitTiming   = "Fit timing"
	StageFitMonetary = "Fit monetary"
	StageScore       = "Score"
)

// StageCount is the number of stages Stages returns.
const StageCount = 5

// Stage is one step of a run. Run fills its part of the outcome and
// returns a one-line summary.
type Stage struct {
	Name string
	Run  func(o *Outcome) (string, error)
}

// Stages returns the run over f as ordered stages sharing one Outcome.
// Each stage expects the ones before it to have succeeded.
func (e *Engine) Stages(f *dataset.Frame) []Stage {
	return []Stage{
		{StageSummarize, func(o *Outcome) (string, error) {
			lines, err := e.Lines(f)
			if err != nil {
				return "", err
			}
			summary, err := Summarize(lines, e.opts.ProfitMarginRate)
			if err != nil {
				return "", err
			}
			o.Lines, o.Summary = lines, summary
			return fmt.Sprintf("%d customers, repeat rate %.1f%%, churn rate %.1f%%",
				len(summary.Customers), summary.RepeatRate*100, summary.ChurnRate*100), nil
		}},
		{StageRFM, func(o *Outcome) (string, error) {
			now := e.ReferenceTime(o.Lines)
			rfm, err := BuildRFM(o.Lines, now)
			if err != nil {
				return "", err
			}
			o.Now, o.RFM = now, rfm
			return fmt.Sprintf("%d repeat customers as of %s", len(rfm), now.Format("2006-01-02")), nil
		}},
		{StageFitTiming, func(o *Outcome) (string, error) {
			m, err := FitTiming(o.RFM, e.opts.TimingPenalizer, e.opts.Fit)
			if err != nil {
				return "", err
			}
			o.Timing = m
			return fmt.Sprintf("BG/NBD r=%.4f alpha=%.4f a=%.4f b=%.4f (%d evaluations)",
				m.R, m.Alpha, m.A, m.B, m.Evaluations), nil
		}},
		{StageFitMonetary, func(o *Outcome) (string, error) {
			m, err := FitMonetary(o.RFM, e.opts.MonetaryPenalizer, e.opts.Fit)
			if err != nil {
				return "", err
			}
			o.Monetary = m
			return fmt.Sprintf("Gamma-Gamma p=%.4f q=%.4f v=%.4f (%d evaluations)",
				m.P, m.Q, m.V, m.Evaluations), nil
		}},
		{StageScore, func(o *Outcome) (string, error) {
			scored, err := e.Predict(o.Timing, o.Monetary, o.RFM)
			if err != nil {
				return "", err
			}
			results, err := e.Segment(scored)
			if err != nil {
				return "", err
			}
			o.Results, o.Segments = results, SummarizeSegments(results)
			return fmt.Sprintf("Scored %d customers into %d segments", len(results), len(o.Segments)), nil
		}},
	}
}

// Run executes every stage in order over one frame.
func (e *Engine) Run(f *dataset.Frame) (*Outcome, error) {
	out := &Outcome{}
	for _, s := range e.Stages(f) {
		summary, err := s.Run(out)
		if err != nil {
			return nil, err
		}
		log.Printf("%s: %s", s.Name, summary)
	}
	return out, nil
}
