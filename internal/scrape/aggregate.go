package scrape

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/soldscout/internal/domain"
)

// Accumulator folds extractions into one AggregateResult. An item is counted
// at most once per scrape unit, keyed by id, first occurrence wins. Add runs
// on the session's capture goroutine, so state is guarded by a mutex; the
// accumulator is reset across retries by allocating a fresh one.
type Accumulator struct {
	windowStart time.Time
	now         time.Time

	mu     sync.Mutex
	seen   map[string]struct{}
	result domain.AggregateResult
}

// NewAccumulator creates an Accumulator counting items updated within
// [windowStart, now] toward the recent sub-total.
func NewAccumulator(windowStart, now time.Time) *Accumulator {
	return &Accumulator{
		windowStart: windowStart,
		now:         now,
		seen:        make(map[string]struct{}),
	}
}

// Add folds one extraction into the accumulated state. Only sold-out items
// count; a search condition observed on any response is kept, first one wins.
func (a *Accumulator) Add(ext Extraction) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, item := range ext.Items {
		if item.Status != domain.StatusSoldOut {
			continue
		}
		if _, dup := a.seen[item.ID]; dup {
			continue
		}
		a.seen[item.ID] = struct{}{}

		a.result.MatchedCount++
		if !item.Updated.Before(a.windowStart) && !item.Updated.After(a.now) {
			a.result.RecentCount++
			a.result.Prices = append(a.result.Prices, item.Price)
		}
	}

	if ext.Condition != nil && !a.result.ConditionSeen {
		a.result.ConditionSeen = true
		a.result.Condition = domain.SearchCondition{
			Keyword:        JoinKeywords(ext.Condition.Keyword),
			ExcludeKeyword: JoinExcludeKeywords(ext.Condition.ExcludeKeyword),
			PriceMin:       ext.Condition.PriceMin,
			PriceMax:       ext.Condition.PriceMax,
		}
	}
}

// Result returns the accumulated view.
func (a *Accumulator) Result() domain.AggregateResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// Median returns the median of prices: sort ascending, even-length sets
// average the two middle values, an empty set yields 0.
func Median(prices []int) float64 {
	if len(prices) == 0 {
		return 0
	}
	sorted := make([]int, len(prices))
	copy(sorted, prices)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return float64(sorted[mid-1]+sorted[mid]) / 2
	}
	return float64(sorted[mid])
}

// JoinKeywords normalizes a space-delimited keyword string into the
// comma-joined encoding the downstream consumer expects.
func JoinKeywords(raw string) string {
	return joinTokens(raw, ",")
}

// JoinExcludeKeywords normalizes a space-delimited exclusion keyword string
// into the pipe-joined encoding.
func JoinExcludeKeywords(raw string) string {
	return joinTokens(raw, "|")
}

func joinTokens(raw, sep string) string {
	parts := strings.Fields(raw)
	return strings.Join(parts, sep)
}
