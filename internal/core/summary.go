package core

// Summary aggregates a transaction list the way the header cards show it.
type Summary struct {
	Income  float64
	Outcome float64
	Total   float64
}

// Summarize sums income and outcome prices. Total is income minus outcome.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.Income += t.Price
		case Outcome:
			s.Outcome += t.Price
		}
	}
	s.Total = s.Income - s.Outcome
	return s
}
