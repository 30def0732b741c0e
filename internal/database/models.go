package database

// Transaction is one imported sales line.
type Transaction struct {
	CustomerID    string
	TransactionID string
	Date          string
	UnitPrice     float64
	Quantity      float64
}

// Run is one stored scoring run.
type Run struct {
	ID              string
	Source          string
	ReferenceDate   string
	Customers       int
	RepeatCustomers int
	RepeatRate      float64
	ChurnRate       float64
	TotalCLV        float64
	Warnings        []string
	ReportMarkdown  string
	CreatedAt       *string
	Params          []ModelParam
}

// ModelParam is one fitted parameter of a run's models.
type ModelParam struct {
	Model string // "bgnbd" or "gamma_gamma"
	Name  string
	Value float64
}

// CustomerResult is the stored score of one repeat customer.
type CustomerResult struct {
	CustomerID            string
	Recency               float64
	T                     float64
	Frequency             float64
	Monetary              float64
	PredictedPurchases    float64
	ExpectedAverageProfit float64
	ProbabilityAlive      float64
	CLV                   float64
	Segment               string
}

// SegmentRow is the stored summary of one segment.
type SegmentRow struct {
	Label                  string
	Customers              int
	MinCLV                 float64
	MaxCLV                 float64
	MeanCLV                float64
	SumCLV                 float64
	MeanFrequency          float64
	MeanMonetary           float64
	MeanPredictedPurchases float64
}

// Stats contains aggregate database statistics.
type Stats struct {
	Transactions int
	Customers    int
	FirstDate    *string
	LastDate     *string
	Runs         int
	LastRunAt    *string
}
