package clv

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/TobiSchelling/clvscore/internal/dataset"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// simulateFrame draws a transaction log from a BG/NBD purchase process with
// Gamma-Gamma spend over a 52-week window.
func simulateFrame(t *testing.T, customers int, seed uint64) *dataset.Frame {
	t.Helper()
	src := rand.NewPCG(seed, seed+1)
	rng := rand.New(src)

	rate := distuv.Gamma{Alpha: 2, Beta: 4, Src: src}
	dropout := distuv.Beta{Alpha: 1.5, Beta: 6, Src: src}
	spend := distuv.Gamma{Alpha: 3.5, Beta: 1.5, Src: src}

	const windowWeeks = 52.0
	f := &dataset.Frame{Columns: []string{"customer_id", "transaction_id", "date", "unit_price", "quantity"}}
	tx := 0
	for c := 0; c < customers; c++ {
		lambda := rate.Rand()
		p := dropout.Rand()
		meanSpend := distuv.Gamma{Alpha: 6, Beta: spend.Rand(), Src: src}
		inter := distuv.Exponential{Rate: lambda, Src: src}

		week := rng.Float64() * windowWeeks / 2
		for week < windowWeeks {
			tx++
			qty := 1 + rng.IntN(3)
			value := meanSpend.Rand()
			date := epoch.Add(time.Duration(week * 7 * 24 * float64(time.Hour)))
			f.Rows = append(f.Rows, []any{
				fmt.Sprintf("C%04d", c),
				fmt.Sprintf("T%06d", tx),
				date.Format("2006-01-02"),
				value / float64(qty),
				float64(qty),
			})
			if rng.Float64() < p {
				break
			}
			week += inter.Rand()
		}
	}
	return f
}

func simulateRFM(t *testing.T, customers int, seed uint64) []CustomerRFM {
	t.Helper()
	f := simulateFrame(t, customers, seed)
	e := NewEngine(DefaultOptions())
	lines, err := e.Lines(f)
	if err != nil {
		t.Fatalf("building lines: %v", err)
	}
	rfm, err := BuildRFM(lines, e.ReferenceTime(lines))
	if err != nil {
		t.Fatalf("building rfm: %v", err)
	}
	return rfm
}

// line builds a sales line n days after the epoch.
func line(customer, tx string, day int, amount float64) SalesLine {
	return SalesLine{
		CustomerID:    customer,
		TransactionID: tx,
		Date:          epoch.AddDate(0, 0, day),
		SalesAmount:   amount,
	}
}
