package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/alanyoungcy/soldscout/internal/domain"
)

// outputHeader is the downstream consumer's wide schema. Column order is part
// of the contract and must not change.
var outputHeader = []string{
	"Keyword", "Identity", "OMURL", "SP", "FMP", "TSC", "Period",
	"NMURL", "MSC", "MMP", "MSPC", "MWR", "MDSR",
	"name", "switchAll", "kws", "kwes", "pmin", "pmax", "sve",
	"nickname", "nicknameExs", "itemStatuses", "freeShipping",
	"kwsTitle", "kwesTitle", "autoBuy", "gotoBuy", "type", "target",
	"category", "size", "brand", "sellerId", "sellerIdExs",
	"notificationCnt", "receiveCnt", "openCnt", "buyCnt", "buyPrice",
	"autoBuyTryCnt", "autoBuySuccessCnt", "autoMoveTryCnt",
	"autoMoveSuccessCnt", "tags", "memo", "Error",
}

// Table is the single serialized writer for the output CSV. All row slots are
// allocated up front; Set fills one slot and Flush atomically rewrites the
// whole file. Concurrent workers share one Table and contend only on the
// mutex, so no two snapshots interleave.
type Table struct {
	path string

	mu      sync.Mutex
	records [][]string
}

// NewTable creates a Table for n row slots writing to path.
func NewTable(path string, n int) *Table {
	return &Table{
		path:    path,
		records: make([][]string, n),
	}
}

// Seed loads a previous snapshot of this table, matching existing records to
// the input rows by identity, and returns the set of identities that resume
// without reprocessing. A missing file means a fresh run.
func (t *Table) Seed(inputs []domain.InputRow) (map[string]struct{}, error) {
	done := map[string]struct{}{}

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return done, nil
		}
		return nil, fmt.Errorf("dataset: open output %s: %w", t.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: parse output %s: %w", t.path, err)
	}
	if len(records) < 2 {
		return done, nil
	}

	col := indexHeader(records[0])
	slot := make(map[string]int, len(inputs))
	for i, in := range inputs {
		slot[in.Identity] = i
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range records[1:] {
		id := field(rec, col, "Identity")
		i, ok := slot[id]
		if !ok {
			continue
		}
		t.records[i] = normalize(rec)
		done[id] = struct{}{}
	}
	return done, nil
}

// Set stores the result for row slot i.
func (t *Table) Set(i int, row domain.OutputRow) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.records) {
		return
	}
	t.records[i] = record(&row)
}

// Completed returns how many slots hold a result.
func (t *Table) Completed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, rec := range t.records {
		if rec != nil {
			n++
		}
	}
	return n
}

// Size returns the number of row slots.
func (t *Table) Size() int {
	return len(t.records)
}

// Flush writes a full snapshot of every completed row, in input order, to a
// temp file in the output directory and renames it over the target. A crash
// mid-flush leaves the previous snapshot intact.
func (t *Table) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(t.path), ".output-*.csv")
	if err != nil {
		return fmt.Errorf("dataset: create temp output: %w", err)
	}
	tmpPath := tmp.Name()

	fail := func(stage string, err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("dataset: %s: %w", stage, err)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(outputHeader); err != nil {
		return fail("write output header", err)
	}
	for _, rec := range t.records {
		if rec == nil {
			continue
		}
		if err := w.Write(rec); err != nil {
			return fail("write output row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fail("flush output", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("dataset: close temp output: %w", err)
	}
	if err := os.Rename(tmpPath, t.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("dataset: replace output: %w", err)
	}
	return nil
}

// normalize pads or truncates a seeded record to the header width so older
// snapshots round-trip cleanly.
func normalize(rec []string) []string {
	out := make([]string, len(outputHeader))
	copy(out, rec)
	return out
}

// record lays one row out in outputHeader order. Fixed columns carry the
// values the downstream consumer expects for imported searches.
func record(row *domain.OutputRow) []string {
	in := row.Input

	switchAll := "true"
	if row.Error != "" {
		switchAll = ""
	}

	return []string{
		in.Keyword,
		in.Identity,
		in.SourceURL,
		strconv.Itoa(in.StartPrice),
		in.FinalPrice,
		strconv.Itoa(in.TargetSold),
		strconv.Itoa(in.Period),
		row.DerivedURL,
		strconv.Itoa(row.MatchedSoldCount),
		formatFloat(row.MedianPrice),
		strconv.Itoa(row.RecentMatchedCount),
		formatFloat(row.WindowRatio),
		formatFloat(row.DemandSaleRatio),
		row.Name,
		switchAll,
		row.Keywords,
		row.ExcludeKeyword,
		strconv.Itoa(row.PriceMin),
		strconv.Itoa(row.PriceMax),
		"", // sve
		"", // nickname
		"", // nicknameExs
		"2,3,4,5",
		"", // freeShipping
		row.Keywords,
		row.ExcludeKeyword,
		"false", // autoBuy
		"false", // gotoBuy
		"normal",
		"", // target
		"", // category
		"", // size
		"", // brand
		"", // sellerId
		"", // sellerIdExs
		"0", // notificationCnt
		"0", // receiveCnt
		"0", // openCnt
		"0", // buyCnt
		"",  // buyPrice
		"0", // autoBuyTryCnt
		"0", // autoBuySuccessCnt
		"0", // autoMoveTryCnt
		"0", // autoMoveSuccessCnt
		row.Tags,
		row.Memo,
		row.Error,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
