package domain

// InputRow is one immutable record from the source dataset. Identity is the
// unique key within a run; SourceURL must match the expected marketplace
// search path or the row is short-circuited to an error output.
type InputRow struct {
	Keyword    string
	Identity   string
	SourceURL  string // OMURL column
	StartPrice int    // SP column, yen
	FinalPrice string // FMP column, free-form
	TargetSold int    // TSC column
	Period     int    // lookback the TSC was measured over, 30 or 90 days
}

// OutputRow is the enriched record written back to the output dataset. It is
// a superset of InputRow; one OutputRow is produced per input row, written at
// most once, and never mutated after persistence.
type OutputRow struct {
	Input InputRow

	DerivedURL string // NMURL column

	MatchedSoldCount   int     // MSC: distinct sold-out items for the original query
	RecentMatchedCount int     // MSPC: matched items updated within the window
	MedianPrice        float64 // MMP: median price among recent matched items
	WindowRatio        float64 // MWR: MSPC / MSC
	DemandSaleRatio    float64 // MDSR: MSPC / normalized TSC

	Name           string
	Keywords       string // kws, comma-joined inclusion keywords
	ExcludeKeyword string // kwes, pipe-joined exclusion keywords
	PriceMin       int
	PriceMax       int
	Tags           string
	Memo           string
	Error          string
}
