// Package domain holds the core types and interfaces of the sold-item scrape
// orchestrator. Concrete implementations (browser sessions, Redis, Postgres,
// S3) live in their own packages and satisfy the interfaces defined here.
package domain

import "time"

// ItemStatus is the marketplace listing status as it appears in the search
// API payload. Only sold-out items are counted.
type ItemStatus string

// StatusSoldOut marks a listing that has been sold.
const StatusSoldOut ItemStatus = "ITEM_STATUS_SOLD_OUT"

// Item is one listing as received from the target search API.
type Item struct {
	ID      string
	Name    string
	Price   int
	Status  ItemStatus
	Updated time.Time
}

// SearchCondition is the keyword/price filter metadata the target API echoes
// back for a query. It may be absent from a response; absent is treated as
// all-empty defaults.
type SearchCondition struct {
	Keyword        string
	ExcludeKeyword string
	PriceMin       int
	PriceMax       int
}

// AggregateResult is the deduplicated, window-filtered view over every item
// seen during one scrape unit's lifetime. Counts accumulate monotonically
// within one attempt and reset across retries.
type AggregateResult struct {
	// MatchedCount is the number of distinct sold-out items seen.
	MatchedCount int
	// RecentCount is the subset of MatchedCount updated within the window.
	RecentCount int
	// Prices holds one sample per recent matched item.
	Prices []int
	// Condition is the normalized search condition, zero if never observed.
	Condition SearchCondition
	// ConditionSeen reports whether any response carried a search condition.
	ConditionSeen bool
}
