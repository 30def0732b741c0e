package dataset

// Columns maps the engine's fields to column names in the input frame.
type Columns struct {
	CustomerID    string `yaml:"customer_id"`
	TransactionID string `yaml:"transaction_id"`
	Date          string `yaml:"date"`
	UnitPrice     string `yaml:"unit_price"`
	Quantity      string `yaml:"quantity"`
	SalesAmount   string `yaml:"sales_amount"`
}

// DefaultColumns returns the canonical column names.
func DefaultColumns() Columns {
	return Columns{
		CustomerID:    "customer_id",
		TransactionID: "transaction_id",
		Date:          "date",
		UnitPrice:     "unit_price",
		Quantity:      "quantity",
		SalesAmount:   "sales_amount",
	}
}

// WithDefaults fills empty names with the canonical ones.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	if c.CustomerID == "" {
		c.CustomerID = d.CustomerID
	}
	if c.TransactionID == "" {
		c.TransactionID = d.TransactionID
	}
	if c.Date == "" {
		c.Date = d.Date
	}
	if c.UnitPrice == "" {
		c.UnitPrice = d.UnitPrice
	}
	if c.Quantity == "" {
		c.Quantity = d.Quantity
	}
	if c.SalesAmount == "" {
		c.SalesAmount = d.SalesAmount
	}
	return c
}
