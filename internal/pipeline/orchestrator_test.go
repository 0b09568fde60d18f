package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/soldscout/internal/dataset"
	"github.com/alanyoungcy/soldscout/internal/domain"
	"github.com/alanyoungcy/soldscout/internal/proxy"
	"github.com/alanyoungcy/soldscout/internal/scrape"
)

const testAPIPath = "https://api.example.jp/v2/entities:search"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubSession replays canned responses for the navigated URL.
type stubSession struct {
	respond  func(target string) []domain.CapturedResponse
	handlers []func(domain.CapturedResponse)
	navErr   error
}

func (s *stubSession) OnResponse(fn func(domain.CapturedResponse)) {
	s.handlers = append(s.handlers, fn)
}

func (s *stubSession) Navigate(_ context.Context, url string, _ time.Duration) error {
	if s.navErr != nil {
		return s.navErr
	}
	for _, resp := range s.respond(url) {
		for _, fn := range s.handlers {
			fn(resp)
		}
	}
	return nil
}

func (s *stubSession) Close() error { return nil }

// stubProvider counts session acquisitions.
type stubProvider struct {
	mu       sync.Mutex
	acquires int
	respond  func(target string) []domain.CapturedResponse
	navErr   error
}

func (p *stubProvider) Acquire(context.Context, *domain.Proxy) (domain.Session, error) {
	p.mu.Lock()
	p.acquires++
	p.mu.Unlock()
	return &stubSession{respond: p.respond, navErr: p.navErr}, nil
}

func (p *stubProvider) acquired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquires
}

// itemJSON renders one API item with a unix-seconds updated timestamp.
func itemJSON(id string, price int, updated time.Time) string {
	return fmt.Sprintf(`{"id":%q,"name":"item %s","price":"%d","status":"ITEM_STATUS_SOLD_OUT","updated":"%d"}`,
		id, id, price, updated.Unix())
}

// marketResponses emulates the two query pages: the derived (recency) query
// answers with a search condition and 5 recent sold items; the original query
// answers with 10 sold items of which 4 fall in the window with prices
// 100..400.
func marketResponses(sourceURL string) func(string) []domain.CapturedResponse {
	now := time.Now().UTC()
	recent := now.AddDate(0, 0, -5)
	old := now.AddDate(0, 0, -60)

	return func(target string) []domain.CapturedResponse {
		var items []string
		var condition string

		if target == sourceURL {
			for i := 0; i < 6; i++ {
				items = append(items, itemJSON(fmt.Sprintf("old-%d", i), 999, old))
			}
			for i, price := range []int{100, 200, 300, 400} {
				items = append(items, itemJSON(fmt.Sprintf("recent-%d", i), price, recent))
			}
		} else {
			for i := 0; i < 5; i++ {
				items = append(items, itemJSON(fmt.Sprintf("window-%d", i), 500, recent))
			}
			condition = `,"searchCondition":{"keyword":"film camera","excludeKeyword":"junk broken","priceMin":"0","priceMax":"4500"}`
		}

		body := `{"items":[` + strings.Join(items, ",") + `]` + condition + `}`
		return []domain.CapturedResponse{
			{URL: "https://static.example.jp/app.js", Body: []byte("not json")},
			{URL: testAPIPath + "?page=1", Body: []byte(body)},
		}
	}
}

func newTestUnit(provider domain.SessionProvider) *scrape.Unit {
	return scrape.NewUnit(provider, nil, scrape.UnitConfig{
		APIPath:     testAPIPath,
		NavTimeout:  5 * time.Second,
		WindowStart: time.Now().UTC().AddDate(0, 0, -30),
	}, discardLogger())
}

func newTestController(maxAttempts int) *scrape.Controller {
	c := scrape.NewController(maxAttempts, 60*time.Second, discardLogger())
	c.Sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func readOutput(t *testing.T, path string) []map[string]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) < 1 {
		t.Fatalf("output has no header")
	}

	var rows []map[string]string
	for _, rec := range records[1:] {
		row := map[string]string{}
		for i, name := range records[0] {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func testInputRow() domain.InputRow {
	return domain.InputRow{
		Keyword:    "film camera",
		Identity:   "cam-1",
		SourceURL:  "https://jp.mercari.com/search?keyword=camera",
		StartPrice: 4500,
		FinalPrice: "3000",
		TargetSold: 30,
		Period:     30,
	}
}

func TestProcessRow_ComputesMetrics(t *testing.T) {
	in := testInputRow()
	provider := &stubProvider{respond: marketResponses(in.SourceURL)}
	outPath := filepath.Join(t.TempDir(), "output.csv")
	table := dataset.NewTable(outPath, 1)

	orch := NewOrchestrator(newTestUnit(provider), newTestController(1),
		proxy.Disabled(), table, nil, "run-1", nil, discardLogger())

	if err := orch.ProcessRow(context.Background(), 0, in); err != nil {
		t.Fatalf("process row: %v", err)
	}

	rows := readOutput(t, outPath)
	if len(rows) != 1 {
		t.Fatalf("output rows = %d, want 1", len(rows))
	}
	got := rows[0]

	if got["MSC"] != "10" {
		t.Fatalf("MSC = %q, want 10", got["MSC"])
	}
	if got["MSPC"] != "5" {
		t.Fatalf("MSPC = %q, want 5", got["MSPC"])
	}
	if got["MMP"] != "250" {
		t.Fatalf("MMP = %q, want 250", got["MMP"])
	}
	if got["MWR"] != "0.5" {
		t.Fatalf("MWR = %q, want 0.5", got["MWR"])
	}
	if got["kws"] != "film,camera" {
		t.Fatalf("kws = %q, want comma-joined", got["kws"])
	}
	if got["kwes"] != "junk|broken" {
		t.Fatalf("kwes = %q, want pipe-joined", got["kwes"])
	}
	if got["Error"] != "" {
		t.Fatalf("Error = %q, want empty", got["Error"])
	}
	if !strings.Contains(got["name"], "MSPC:5") || !strings.Contains(got["name"], "MMP:¥250") {
		t.Fatalf("name = %q", got["name"])
	}
	if !strings.Contains(got["NMURL"], "price_max=4500") || !strings.Contains(got["NMURL"], "status=sold_out") {
		t.Fatalf("NMURL = %q", got["NMURL"])
	}

	// Two queries, one fresh session each.
	if provider.acquired() != 2 {
		t.Fatalf("sessions acquired = %d, want 2", provider.acquired())
	}
}

func TestProcessRow_InvalidURLWritesErrorRowWithoutNavigation(t *testing.T) {
	in := testInputRow()
	in.SourceURL = "https://jp.mercari.com/item/m123" // no search path

	provider := &stubProvider{respond: marketResponses(in.SourceURL)}
	outPath := filepath.Join(t.TempDir(), "output.csv")
	table := dataset.NewTable(outPath, 1)

	orch := NewOrchestrator(newTestUnit(provider), newTestController(3),
		proxy.Disabled(), table, nil, "run-1", nil, discardLogger())

	if err := orch.ProcessRow(context.Background(), 0, in); err != nil {
		t.Fatalf("process row: %v", err)
	}

	if provider.acquired() != 0 {
		t.Fatalf("sessions acquired = %d, invalid rows must never navigate", provider.acquired())
	}

	rows := readOutput(t, outPath)
	got := rows[0]
	if !strings.Contains(got["Error"], "invalid source URL") {
		t.Fatalf("Error = %q", got["Error"])
	}
	if got["MSC"] != "0" || got["MSPC"] != "0" || got["MMP"] != "0" {
		t.Fatalf("error row must carry zeroed metrics: %v", got)
	}
	if got["switchAll"] != "" {
		t.Fatalf("switchAll = %q, want empty on error rows", got["switchAll"])
	}
}

func TestProcessRow_ResumeSkipsWithZeroNavigations(t *testing.T) {
	in := testInputRow()
	provider := &stubProvider{respond: marketResponses(in.SourceURL)}
	outPath := filepath.Join(t.TempDir(), "output.csv")
	table := dataset.NewTable(outPath, 1)

	done := map[string]struct{}{in.Identity: {}}
	orch := NewOrchestrator(newTestUnit(provider), newTestController(3),
		proxy.Disabled(), table, nil, "run-1", done, discardLogger())

	if err := orch.ProcessRow(context.Background(), 0, in); err != nil {
		t.Fatalf("process row: %v", err)
	}
	if provider.acquired() != 0 {
		t.Fatalf("sessions acquired = %d, resumed rows must never navigate", provider.acquired())
	}
}

func TestProcessRow_DegradesToDefaultsOnPersistentFailure(t *testing.T) {
	in := testInputRow()
	provider := &stubProvider{
		respond: marketResponses(in.SourceURL),
		navErr:  errors.New("net::ERR_TUNNEL_CONNECTION_FAILED"),
	}
	outPath := filepath.Join(t.TempDir(), "output.csv")
	table := dataset.NewTable(outPath, 1)

	orch := NewOrchestrator(newTestUnit(provider), newTestController(3),
		proxy.Disabled(), table, nil, "run-1", nil, discardLogger())

	if err := orch.ProcessRow(context.Background(), 0, in); err != nil {
		t.Fatalf("process row: %v", err)
	}

	// 3 attempts per query, fresh session each.
	if provider.acquired() != 6 {
		t.Fatalf("sessions acquired = %d, want 6", provider.acquired())
	}

	rows := readOutput(t, outPath)
	got := rows[0]
	if got["MSC"] != "0" || got["MSPC"] != "0" {
		t.Fatalf("degraded row must carry defaults: %v", got)
	}
	if !strings.Contains(got["Error"], "degraded to defaults") {
		t.Fatalf("Error = %q", got["Error"])
	}
}

func TestGuardedRatio(t *testing.T) {
	cases := []struct {
		num, den, want float64
	}{
		{5, 10, 0.5},
		{5, 0, 0},
		{0, 0, 0},
		{0, 10, 0},
	}
	for _, tc := range cases {
		if got := guardedRatio(tc.num, tc.den); got != tc.want {
			t.Fatalf("guardedRatio(%v, %v) = %v, want %v", tc.num, tc.den, got, tc.want)
		}
	}
}

func TestAssemble_NormalizesNinetyDayTarget(t *testing.T) {
	in := testInputRow()
	in.TargetSold = 90
	in.Period = 90

	recency := domain.AggregateResult{RecentCount: 15}
	listing := domain.AggregateResult{MatchedCount: 30}

	out := assemble(in, "https://example.com/search", recency, listing)
	// 15 / (90/3) = 0.5
	if out.DemandSaleRatio != 0.5 {
		t.Fatalf("DemandSaleRatio = %v, want 0.5", out.DemandSaleRatio)
	}
}

func TestFormatYen(t *testing.T) {
	cases := []struct {
		v    float64
		want string
	}{
		{0, "¥0"},
		{250, "¥250"},
		{1250, "¥1,250"},
		{1234567, "¥1,234,567"},
		{249.5, "¥250"},
	}
	for _, tc := range cases {
		if got := formatYen(tc.v); got != tc.want {
			t.Fatalf("formatYen(%v) = %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestBuildName(t *testing.T) {
	in := testInputRow()
	got := buildName(in, 5, 250)
	want := "cam-1 | film camera | SP:4500 | MSPC:5 | MMP:¥250 | FMP:3000 | TSC30:30"
	if got != want {
		t.Fatalf("name = %q, want %q", got, want)
	}
}
