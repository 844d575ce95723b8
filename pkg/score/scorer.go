// Package score computes TruthMetrics for claims whose evidence has
// changed, weighting each piece of evidence by source trust, document
// type, recency, and independence-cluster diminishing returns (spec
// §4.6).
package score

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/truthledger/truthledger/pkg/config"
	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

// ErrCancelled is returned when checkCancelled signals abort mid-run.
var ErrCancelled = errors.New("score: cancelled")

// ProgressFunc reports scorer progress every 10 claims.
type ProgressFunc func(current, total int, message string)

// Result is the scoreClaims(config) → ScoreResult contract.
type Result struct {
	ClaimsScored int
}

// ln2 underlies the exponential recency half-life decay (spec §9 Open
// Question 2, pinned in SPEC_FULL.md §C.2).
var ln2 = math.Log(2)

// Scorer computes TruthMetrics for claims selected per spec §4.6
// "Selection".
type Scorer struct {
	store  store.Store
	policy *config.ScorerPolicy
	logger *slog.Logger
	now    func() time.Time
}

func New(st store.Store, policy *config.ScorerPolicy, logger *slog.Logger, now func() time.Time) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == nil {
		policy = config.DefaultScorerPolicy()
	}
	if now == nil {
		now = time.Now
	}
	return &Scorer{store: st, policy: policy, logger: logger, now: now}
}

// Run implements the scorer's per-claim pass (spec §4.6 steps 1-4).
func (sc *Scorer) Run(ctx context.Context, filter store.ScoreFilter, checkCancelled func() bool, onProgress ProgressFunc) (*Result, error) {
	claims, err := sc.store.ListClaimsNeedingScore(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("score: list claims: %w", err)
	}

	result := &Result{}
	total := len(claims)
	for i, claim := range claims {
		if checkCancelled != nil && checkCancelled() {
			return result, ErrCancelled
		}

		if err := sc.scoreClaim(ctx, claim); err != nil {
			sc.logger.Warn("score: claim failed", "claim_id", claim.ID, "error", err)
		} else {
			result.ClaimsScored++
		}

		if onProgress != nil && (i+1)%10 == 0 {
			onProgress(i+1, total, fmt.Sprintf("scored %d/%d claims", i+1, total))
		}
	}
	if onProgress != nil {
		onProgress(total, total, "scoring complete")
	}
	return result, nil
}

// weighted bundles one evidence row with its computed weights (spec §4.6
// step 2).
type weighted struct {
	detail       *store.EvidenceDetail
	effective    float64
	isLowQuality bool
}

func (sc *Scorer) scoreClaim(ctx context.Context, claim *models.Claim) error {
	evidence, err := sc.store.ListEvidenceForClaim(ctx, claim.ID)
	if err != nil {
		return fmt.Errorf("list evidence: %w", err)
	}

	now := sc.now()
	weightedRows := make([]weighted, 0, len(evidence))
	clusterPosition := map[string]int{}
	var recencySum float64

	for _, e := range evidence {
		clusterKey := e.SourceIndependenceClusterID
		if clusterKey == "" {
			clusterKey = e.SourceID
		}
		clusterPosition[clusterKey]++
		position := clusterPosition[clusterKey]

		recency := recencyScore(e.DocumentPublished, e.DocumentSuperseded, now, sc.policy)
		recencySum += recency

		docMultiplier := sc.policy.Multiplier(e.DocumentDocType)
		rawWeight := e.SourceBaseTrust * docMultiplier * e.Evidence.ExtractionConfidence * recency
		effective := rawWeight * clusterWeight(position)

		weightedRows = append(weightedRows, weighted{
			detail:       e,
			effective:    effective,
			isLowQuality: sc.policy.IsLowQuality(e.DocumentDocType),
		})
	}

	supportRaw, contradiction, lowQ := aggregateStances(weightedRows)

	highQ := supportRaw - lowQ
	support := supportRaw
	lowQualityCapped := false
	if highQ > 0 && lowQ > sc.policy.LowQualityCapRatio*highQ {
		support = highQ + sc.policy.LowQualityCapRatio*highQ
		lowQualityCapped = true
	}

	prior := sc.policy.Prior
	truthRaw := clamp01(support / (support + contradiction + prior))

	independentSources := countIndependentSources(evidence)

	recencyAvg := 0.0
	if len(evidence) > 0 {
		recencyAvg = recencySum / float64(len(evidence))
	}

	factors := buildFactors(weightedRows, sc.policy, lowQualityCapped)

	group, err := sc.store.GetConflictGroupByHash(ctx, claim.ClaimKeyHash)
	if err != nil {
		return fmt.Errorf("get conflict group: %w", err)
	}

	tm := &models.TruthMetrics{
		ClaimID:            claim.ID,
		ConflictGroupID:    group.ID,
		TruthRaw:           truthRaw,
		SupportScore:       support,
		ContradictionScore: contradiction,
		IndependentSources: independentSources,
		RecencyScore:       recencyAvg,
		SpecificityScore:   1.0,
		Factors:            factors,
		ComputedAt:         now,
	}

	if err := sc.store.UpsertTruthMetrics(ctx, tm); err != nil {
		return fmt.Errorf("upsert truth metrics: %w", err)
	}
	return nil
}

// recencyScore implements spec §9 Open Question 2: exponential half-life
// decay floored at RecencyFloor, zero when the document is superseded.
func recencyScore(publishedAt *time.Time, superseded bool, now time.Time, policy *config.ScorerPolicy) float64 {
	if superseded {
		return 0
	}
	if publishedAt == nil {
		return policy.RecencyFloor
	}
	ageDays := now.Sub(*publishedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	halfLife := policy.RecencyHalfLifeDays
	if halfLife <= 0 {
		halfLife = 365
	}
	score := math.Exp(-ln2 * ageDays / halfLife)
	if score < policy.RecencyFloor {
		return policy.RecencyFloor
	}
	return score
}

// clusterWeight implements spec §9 Open Question 3: harmonic diminishing
// returns, 1/k for the k-th (1-indexed) piece of evidence in a cluster.
func clusterWeight(position int) float64 {
	if position < 1 {
		position = 1
	}
	return 1.0 / float64(position)
}

func aggregateStances(rows []weighted) (support, contradiction, lowQualitySupport float64) {
	for _, w := range rows {
		switch w.detail.Evidence.Stance {
		case models.StanceSupport:
			support += w.effective
			if w.isLowQuality {
				lowQualitySupport += w.effective
			}
		case models.StanceContradict:
			contradiction += w.effective
		}
	}
	return support, contradiction, lowQualitySupport
}

func countIndependentSources(evidence []*store.EvidenceDetail) int {
	seen := map[string]bool{}
	for _, e := range evidence {
		key := e.SourceIndependenceClusterID
		if key == "" {
			key = e.SourceID
		}
		seen[key] = true
	}
	return len(seen)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// buildFactors assembles the factorsJson payload (spec §4.6 step 4):
// evidence count, per-cluster counts, top-5 contributors by effective
// weight, the docType multiplier table, and cap flags.
func buildFactors(rows []weighted, policy *config.ScorerPolicy, lowQualityCapped bool) map[string]any {
	perCluster := map[string]int{}
	for _, w := range rows {
		key := w.detail.SourceIndependenceClusterID
		if key == "" {
			key = w.detail.SourceID
		}
		perCluster[key]++
	}

	sorted := make([]weighted, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].effective > sorted[j].effective })

	topN := sorted
	if len(topN) > 5 {
		topN = topN[:5]
	}
	top := make([]map[string]any, 0, len(topN))
	for _, w := range topN {
		top = append(top, map[string]any{
			"source":           w.detail.SourceName,
			"effective_weight": w.effective,
			"stance":           w.detail.Evidence.Stance,
		})
	}

	return map[string]any{
		"evidence_count":      len(rows),
		"per_cluster_counts":  perCluster,
		"top_contributors":    top,
		"doc_type_multiplier": policy.DocTypeMultiplier,
		"low_quality_capped":  lowQualityCapped,
	}
}
