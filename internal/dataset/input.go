// Package dataset reads the input CSV and maintains the resumable output CSV.
package dataset

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/alanyoungcy/soldscout/internal/domain"
)

// ReadInput parses the header-driven input CSV at path. Rows missing a
// keyword, identity, source URL, or start price are skipped with a logged
// reason; a missing or empty file is fatal.
func ReadInput(path string, logger *slog.Logger) ([]domain.InputRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open input %s: %w: %v", path, domain.ErrNoInput, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: parse input %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("dataset: input %s has no data rows: %w", path, domain.ErrNoInput)
	}

	col := indexHeader(records[0])
	rows := make([]domain.InputRow, 0, len(records)-1)

	for i, rec := range records[1:] {
		rowNum := i + 2 // 1-based, after header

		row := domain.InputRow{
			Keyword:    field(rec, col, "Keyword"),
			Identity:   field(rec, col, "Identity"),
			SourceURL:  field(rec, col, "OMURL"),
			FinalPrice: field(rec, col, "FMP"),
		}
		if row.Keyword == "" || row.Identity == "" || row.SourceURL == "" {
			logger.Warn("skipping input row with missing fields", slog.Int("row", rowNum))
			continue
		}

		sp, ok := parsePrice(field(rec, col, "SP"))
		if !ok {
			logger.Warn("skipping input row with invalid price",
				slog.Int("row", rowNum),
				slog.String("identity", row.Identity),
			)
			continue
		}
		row.StartPrice = sp
		row.TargetSold, _ = strconv.Atoi(field(rec, col, "TSC"))
		row.Period, _ = strconv.Atoi(field(rec, col, "Period"))

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset: input %s has no usable rows: %w", path, domain.ErrNoInput)
	}
	return rows, nil
}

// indexHeader maps trimmed column names to positions. "S.P." is accepted as
// an alias for "SP".
func indexHeader(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "S.P." {
			name = "SP"
		}
		col[name] = i
	}
	return col
}

func field(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// parsePrice strips currency symbols and grouping and parses the remainder.
// "¥1,500" parses to 1500.
func parsePrice(raw string) (int, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}
