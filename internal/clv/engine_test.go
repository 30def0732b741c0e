package clv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/clvscore/internal/dataset"
)

func TestEngineRun(t *testing.T) {
	f := simulateFrame(t, 250, 21)
	e := NewEngine(DefaultOptions())

	out, err := e.Run(f)
	require.NoError(t, err)

	require.NotEmpty(t, out.Results)
	assert.Len(t, out.Results, len(out.RFM))
	assert.Len(t, out.Segments, DefaultSegmentCount)

	known := map[string]bool{}
	for _, c := range out.Summary.Customers {
		known[c.CustomerID] = true
	}
	for i, r := range out.Results {
		assert.True(t, known[r.CustomerID], "result for unknown customer %s", r.CustomerID)
		assert.Greater(t, r.Frequency, 1.0)
		assert.NotEmpty(t, r.Segment)
		assert.GreaterOrEqual(t, r.PredictedPurchases, 0.0)
		if i > 0 {
			assert.GreaterOrEqual(t, out.Results[i-1].CLV, r.CLV)
		}
	}
}

func TestEngineRunIsRepeatable(t *testing.T) {
	f := simulateFrame(t, 150, 33)
	opts := DefaultOptions()
	opts.Now = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	first, err := NewEngine(opts).Run(f)
	require.NoError(t, err)
	second, err := NewEngine(opts).Run(f)
	require.NoError(t, err)

	for i, p := range first.Timing.Params() {
		assert.InEpsilon(t, p, second.Timing.Params()[i], 1e-6)
	}
	for i, p := range first.Monetary.Params() {
		assert.InEpsilon(t, p, second.Monetary.Params()[i], 1e-6)
	}
	require.Equal(t, len(first.Results), len(second.Results))
	for i := range first.Results {
		assert.Equal(t, first.Results[i].CustomerID, second.Results[i].CustomerID)
		assert.Equal(t, first.Results[i].Segment, second.Results[i].Segment)
	}
}

func TestEngineReferenceTime(t *testing.T) {
	lines := []SalesLine{line("a", "1", 0, 1), line("a", "2", 9, 1)}

	opts := DefaultOptions()
	assert.Equal(t, epoch.AddDate(0, 0, 10), NewEngine(opts).ReferenceTime(lines))

	opts.ReferenceOffsetDays = 3
	assert.Equal(t, epoch.AddDate(0, 0, 12), NewEngine(opts).ReferenceTime(lines))

	opts.Now = epoch.AddDate(0, 1, 0)
	assert.Equal(t, epoch.AddDate(0, 1, 0), NewEngine(opts).ReferenceTime(lines))
}

func TestEngineStages(t *testing.T) {
	e := NewEngine(DefaultOptions())
	stages := e.Stages(simulateFrame(t, 50, 4))
	require.Len(t, stages, StageCount)

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	assert.Equal(t, []string{StageSummarize, StageRFM, StageFitTiming, StageFitMonetary, StageScore}, names)
}

func TestEngineRunStopsAtFailingStage(t *testing.T) {
	_, err := NewEngine(DefaultOptions()).Run(&dataset.Frame{Columns: []string{"customer_id"}})
	var empty *EmptyDatasetError
	require.ErrorAs(t, err, &empty)
}
