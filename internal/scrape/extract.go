package scrape

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/soldscout/internal/domain"
)

// Failure classifications for malformed responses. These are logged, never
// returned: one bad response must not abort a session.
const (
	classParseFailure   = "parse_failure"
	classSchemaMismatch = "schema_mismatch"
)

// Extraction is the parsed view of one relevant network response.
type Extraction struct {
	Items     []domain.Item
	Condition *domain.SearchCondition
}

// payload mirrors the target API's response schema. Numeric fields arrive as
// strings.
type payload struct {
	Items []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Price   string `json:"price"`
		Status  string `json:"status"`
		Updated string `json:"updated"` // unix seconds
	} `json:"items"`
	SearchCondition *struct {
		Keyword        string `json:"keyword"`
		ExcludeKeyword string `json:"excludeKeyword"`
		PriceMin       string `json:"priceMin"`
		PriceMax       string `json:"priceMax"`
	} `json:"searchCondition"`
}

// Extractor decides response relevance and parses payloads. Malformed input
// degrades to an empty Extraction plus a logged classification.
type Extractor struct {
	apiPath string
	logger  *slog.Logger
}

// NewExtractor creates an Extractor matching responses whose URL contains
// apiPath.
func NewExtractor(apiPath string, logger *slog.Logger) *Extractor {
	return &Extractor{
		apiPath: apiPath,
		logger:  logger.With(slog.String("component", "extractor")),
	}
}

// IsRelevant reports whether the response URL targets the search API.
func (e *Extractor) IsRelevant(url string) bool {
	return strings.Contains(url, e.apiPath)
}

// Extract parses a raw response body. An empty body yields an empty result.
// Non-JSON bodies and bodies missing the items field are classified, logged,
// and also yield an empty result; Extract never fails.
func (e *Extractor) Extract(body []byte) Extraction {
	if len(body) == 0 {
		return Extraction{}
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		e.logger.Warn("discarding malformed response",
			slog.String("class", classParseFailure),
			slog.String("error", err.Error()),
		)
		return Extraction{}
	}

	if p.Items == nil {
		e.logger.Warn("discarding response without items",
			slog.String("class", classSchemaMismatch),
		)
		return Extraction{}
	}

	out := Extraction{Items: make([]domain.Item, 0, len(p.Items))}
	for _, it := range p.Items {
		price, _ := strconv.Atoi(it.Price)
		out.Items = append(out.Items, domain.Item{
			ID:      it.ID,
			Name:    it.Name,
			Price:   price,
			Status:  domain.ItemStatus(it.Status),
			Updated: parseUnixSeconds(it.Updated),
		})
	}

	if p.SearchCondition != nil {
		priceMin, _ := strconv.Atoi(p.SearchCondition.PriceMin)
		priceMax, _ := strconv.Atoi(p.SearchCondition.PriceMax)
		out.Condition = &domain.SearchCondition{
			Keyword:        p.SearchCondition.Keyword,
			ExcludeKeyword: p.SearchCondition.ExcludeKeyword,
			PriceMin:       priceMin,
			PriceMax:       priceMax,
		}
	}

	return out
}

// parseUnixSeconds converts the API's unix-seconds string timestamp. Invalid
// input yields the zero time, which falls outside any window.
func parseUnixSeconds(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
