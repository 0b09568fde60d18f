// Package pipeline orchestrates a run: it walks the input rows, drives the
// two scrape queries per row through the retry controller, computes the
// derived metrics, and persists each row through the serialized output table.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/alanyoungcy/soldscout/internal/dataset"
	"github.com/alanyoungcy/soldscout/internal/domain"
	"github.com/alanyoungcy/soldscout/internal/proxy"
	"github.com/alanyoungcy/soldscout/internal/scrape"
)

// Orchestrator processes rows independently. It is safe for concurrent use:
// per-row state is local and all shared sinks serialize internally.
type Orchestrator struct {
	unit    *scrape.Unit
	retry   *scrape.Controller
	proxies *proxy.Pool
	table   *dataset.Table
	store   domain.RunStore // nil when persistence is disabled
	runID   string
	done    map[string]struct{} // identities resumed from a previous snapshot
	logger  *slog.Logger
}

// NewOrchestrator creates an Orchestrator. done holds identities already
// present in the output snapshot; their rows are skipped without navigation.
func NewOrchestrator(
	unit *scrape.Unit,
	retry *scrape.Controller,
	proxies *proxy.Pool,
	table *dataset.Table,
	store domain.RunStore,
	runID string,
	done map[string]struct{},
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		unit:    unit,
		retry:   retry,
		proxies: proxies,
		table:   table,
		store:   store,
		runID:   runID,
		done:    done,
		logger:  logger.With(slog.String("component", "orchestrator")),
	}
}

// ProcessRow runs the full per-row sequence: resume check, URL validation,
// the recency and listing queries, metric computation, and persistence. It
// returns an error only when the output snapshot cannot be written; scrape
// failures degrade to default values instead.
func (o *Orchestrator) ProcessRow(ctx context.Context, i int, in domain.InputRow) error {
	log := o.logger.With(
		slog.Int("row", i),
		slog.String("identity", in.Identity),
	)

	if _, resumed := o.done[in.Identity]; resumed {
		log.Info("row already in output snapshot, skipping")
		return nil
	}

	if !scrape.ValidSourceURL(in.SourceURL) {
		log.Warn("invalid source url, writing error row", slog.String("url", in.SourceURL))
		return o.persist(ctx, i, errorOutput(in, "invalid source URL: "+in.SourceURL), log)
	}

	derived, err := scrape.DeriveQueryURL(in.SourceURL, in.StartPrice)
	if err != nil {
		log.Warn("underivable source url, writing error row", slog.String("error", err.Error()))
		return o.persist(ctx, i, errorOutput(in, "invalid source URL: "+in.SourceURL), log)
	}

	px := o.proxies.Select(i)

	recency, recencyOK := scrape.Run(ctx, o.retry, "recency",
		func(ctx context.Context) (domain.AggregateResult, error) {
			return o.unit.Attempt(ctx, derived, px)
		},
		scrape.ConditionAcceptable,
		domain.AggregateResult{},
	)

	listing, listingOK := scrape.Run(ctx, o.retry, "listing",
		func(ctx context.Context) (domain.AggregateResult, error) {
			return o.unit.Attempt(ctx, in.SourceURL, px)
		},
		scrape.ListingAcceptable,
		domain.AggregateResult{},
	)

	out := assemble(in, derived, recency, listing)
	if !recencyOK || !listingOK {
		var degraded []string
		if !recencyOK {
			degraded = append(degraded, "recency query degraded to defaults")
		}
		if !listingOK {
			degraded = append(degraded, "listing query degraded to defaults")
		}
		out.Error = strings.Join(degraded, "; ")
	}

	log.Info("row processed",
		slog.Int("matched_sold", out.MatchedSoldCount),
		slog.Int("recent_matched", out.RecentMatchedCount),
		slog.Float64("median_price", out.MedianPrice),
	)
	return o.persist(ctx, i, out, log)
}

// persist stores the row in the table, flushes a snapshot, and mirrors the
// row to the run store when one is wired. Store failures are logged, not
// fatal; the CSV snapshot is the source of truth.
func (o *Orchestrator) persist(ctx context.Context, i int, out domain.OutputRow, log *slog.Logger) error {
	o.table.Set(i, out)
	if err := o.table.Flush(); err != nil {
		return fmt.Errorf("pipeline: persist row %d: %w", i, err)
	}

	if o.store != nil {
		if err := o.store.UpsertRow(ctx, o.runID, i, out); err != nil {
			log.Warn("run store upsert failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// assemble computes the derived metrics and the composite label from the two
// query results.
func assemble(in domain.InputRow, derived string, recency, listing domain.AggregateResult) domain.OutputRow {
	msc := listing.MatchedCount
	mspc := recency.RecentCount
	mmp := scrape.Median(listing.Prices)

	normTarget := float64(in.TargetSold)
	if in.Period == 90 {
		normTarget /= 3
	}

	return domain.OutputRow{
		Input:              in,
		DerivedURL:         derived,
		MatchedSoldCount:   msc,
		RecentMatchedCount: mspc,
		MedianPrice:        mmp,
		WindowRatio:        guardedRatio(float64(mspc), float64(msc)),
		DemandSaleRatio:    guardedRatio(float64(mspc), normTarget),
		Name:               buildName(in, mspc, mmp),
		Keywords:           recency.Condition.Keyword,
		ExcludeKeyword:     recency.Condition.ExcludeKeyword,
		PriceMin:           recency.Condition.PriceMin,
		PriceMax:           recency.Condition.PriceMax,
		Tags:               in.Identity,
		Memo:               derived,
	}
}

// errorOutput builds the zeroed row written for rows that never navigate.
func errorOutput(in domain.InputRow, msg string) domain.OutputRow {
	return domain.OutputRow{
		Input: in,
		Tags:  in.Identity,
		Error: msg,
	}
}

// guardedRatio divides num by den, mapping zero denominators and non-finite
// results to 0 so downstream consumers never see NaN or Inf.
func guardedRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// buildName renders the composite label shown in the downstream consumer:
// identity, keyword, start price, recent count, median as yen, final price,
// and the target sold count with its period.
func buildName(in domain.InputRow, mspc int, mmp float64) string {
	return fmt.Sprintf("%s | %s | SP:%d | MSPC:%d | MMP:%s | FMP:%s | TSC%d:%d",
		in.Identity, in.Keyword, in.StartPrice, mspc,
		formatYen(mmp), in.FinalPrice, in.Period, in.TargetSold,
	)
}

// formatYen renders v as a whole-yen amount with comma grouping, e.g. ¥12,500.
func formatYen(v float64) string {
	n := int64(math.Round(v))
	neg := n < 0
	if neg {
		n = -n
	}

	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("¥")
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return b.String()
}
