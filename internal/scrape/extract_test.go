package scrape

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/soldscout/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testAPIPath = "https://api.example.jp/v2/entities:search"

func TestExtractor_IsRelevant(t *testing.T) {
	e := NewExtractor(testAPIPath, discardLogger())

	if !e.IsRelevant(testAPIPath + "?page=2") {
		t.Fatalf("search API URL should be relevant")
	}
	if e.IsRelevant("https://static.example.jp/assets/app.js") {
		t.Fatalf("asset URL should not be relevant")
	}
}

func TestExtract_DegradedInputs(t *testing.T) {
	e := NewExtractor(testAPIPath, discardLogger())

	cases := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "<html>blocked</html>"},
		{"json without items", `{"meta":{"count":0}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Extract([]byte(tc.body))
			if len(got.Items) != 0 {
				t.Fatalf("expected no items, got %d", len(got.Items))
			}
			if got.Condition != nil {
				t.Fatalf("expected no condition, got %+v", got.Condition)
			}
		})
	}
}

func TestExtract_ParsesItemsAndCondition(t *testing.T) {
	e := NewExtractor(testAPIPath, discardLogger())

	body := `{
		"items": [
			{"id":"m1","name":"camera a","price":"1500","status":"ITEM_STATUS_SOLD_OUT","updated":"1700000000"},
			{"id":"m2","name":"camera b","price":"2500","status":"ITEM_STATUS_ON_SALE","updated":"1700000100"},
			{"id":"m3","name":"camera c","price":"bogus","status":"ITEM_STATUS_SOLD_OUT","updated":"not-a-number"}
		],
		"searchCondition": {"keyword":"film camera","excludeKeyword":"junk broken","priceMin":"0","priceMax":"4500"}
	}`

	got := e.Extract([]byte(body))
	if len(got.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(got.Items))
	}

	first := got.Items[0]
	if first.ID != "m1" || first.Price != 1500 || first.Status != domain.StatusSoldOut {
		t.Fatalf("first item parsed wrong: %+v", first)
	}
	if want := time.Unix(1700000000, 0).UTC(); !first.Updated.Equal(want) {
		t.Fatalf("updated = %v, want %v", first.Updated, want)
	}

	// Unparseable numerics degrade to zero values, not errors.
	third := got.Items[2]
	if third.Price != 0 || !third.Updated.IsZero() {
		t.Fatalf("degraded item parsed wrong: %+v", third)
	}

	if got.Condition == nil {
		t.Fatalf("expected a condition")
	}
	if got.Condition.Keyword != "film camera" || got.Condition.PriceMax != 4500 {
		t.Fatalf("condition parsed wrong: %+v", got.Condition)
	}
}
