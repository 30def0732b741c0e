package clv

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// DefaultMaxEvaluations bounds objective evaluations per fit.
const DefaultMaxEvaluations = 20000

// FitSettings controls the numerical optimizer.
type FitSettings struct {
	MaxEvaluations int
}

// fitResult is the optimum in natural (positive) parameter space.
type fitResult struct {
	params      []float64
	objective   float64
	evaluations int
	status      optimize.Status
}

// minimizeLog minimizes objective over log-parameters starting from all ones,
// so every returned parameter is positive.
func minimizeLog(model string, dim int, objective func(params []float64) float64, settings FitSettings) (*fitResult, error) {
	maxEval := settings.MaxEvaluations
	if maxEval <= 0 {
		maxEval = DefaultMaxEvaluations
	}

	params := make([]float64, dim)
	problem := optimize.Problem{
		Func: func(logParams []float64) float64 {
			for i, lp := range logParams {
				params[i] = math.Exp(lp)
			}
			v := objective(params)
			if math.IsNaN(v) {
				return math.Inf(1)
			}
			return v
		},
	}

	res, err := optimize.Minimize(problem, make([]float64, dim), &optimize.Settings{
		FuncEvaluations: maxEval,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 200,
		},
	}, &optimize.NelderMead{})
	if err != nil {
		status := "optimizer failed"
		if res != nil {
			status = res.Status.String()
		}
		return nil, &ModelFitError{Model: model, Status: status, Err: err}
	}
	if !converged(res.Status) {
		return nil, &ModelFitError{Model: model, Status: res.Status.String()}
	}

	out := &fitResult{
		params:      make([]float64, dim),
		objective:   res.F,
		evaluations: res.Stats.FuncEvaluations,
		status:      res.Status,
	}
	for i, lp := range res.X {
		p := math.Exp(lp)
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return nil, &ModelFitError{Model: model, Status: fmt.Sprintf("non-finite parameter %d (%g)", i, p)}
		}
		out.params[i] = p
	}
	if math.IsInf(res.F, 0) || math.IsNaN(res.F) {
		return nil, &ModelFitError{Model: model, Status: "non-finite likelihood at optimum"}
	}
	return out, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.MethodConverge,
		optimize.GradientThreshold, optimize.StepConvergence, optimize.FunctionThreshold:
		return true
	}
	return false
}

// l2 is the ridge penalty applied to natural-space parameters.
func l2(coef float64, params []float64) float64 {
	var s float64
	for _, p := range params {
		s += p * p
	}
	return coef * s
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

func logAddExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	m := math.Max(a, b)
	return m + math.Log1p(math.Exp(-math.Abs(a-b)))
}
