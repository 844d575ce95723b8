// Package extract discovers numeric attribute values in snippets and
// produces Claims and Evidence (spec §4.3).
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/truthledger/truthledger/pkg/claimkey"
	"github.com/truthledger/truthledger/pkg/config"
	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

// ErrCancelled is returned when checkCancelled signals abort mid-run
// (spec §4.3 step 3).
var ErrCancelled = errors.New("extract: cancelled")

// ProgressFunc is invoked every 10 snippets (spec §4.3 "Progress
// reporting").
type ProgressFunc func(current, total int, message string)

// Result is the extract(config) → ExtractResult contract (spec §4.3).
type Result struct {
	SnippetsProcessed int
	ClaimsCreated     int
	ClaimsReused      int
	EvidenceCreated   int
}

// RunFilter narrows snippet selection (spec §4.3 step 2).
type RunFilter struct {
	DocumentIDs []string
	Limit       int
}

// Extractor runs the registered AttributeExtractors over unprocessed
// snippets (spec §4.3).
type Extractor struct {
	store    store.Store
	registry *config.ExtractorRegistry
	logger   *slog.Logger
}

func New(st store.Store, registry *config.ExtractorRegistry, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{store: st, registry: registry, logger: logger}
}

// Run implements the extract run loop (spec §4.3 steps 1-6).
func (ex *Extractor) Run(ctx context.Context, filter RunFilter, checkCancelled func() bool, onProgress ProgressFunc) (*Result, error) {
	entities, err := ex.store.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract: list entities: %w", err)
	}
	attributes, err := ex.store.ListAttributes(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract: list attributes: %w", err)
	}
	attrByName := make(map[string]*models.Attribute, len(attributes))
	for _, a := range attributes {
		attrByName[a.CanonicalName] = a
	}
	aliasMap := models.AliasMap(entities)

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	snippets, err := ex.store.ListUnprocessedSnippets(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("extract: list snippets: %w", err)
	}
	if len(filter.DocumentIDs) > 0 {
		wanted := make(map[string]bool, len(filter.DocumentIDs))
		for _, id := range filter.DocumentIDs {
			wanted[id] = true
		}
		kept := snippets[:0]
		for _, snip := range snippets {
			if wanted[snip.DocumentID] {
				kept = append(kept, snip)
			}
		}
		snippets = kept
	}

	result := &Result{}
	total := len(snippets)
	for i, snip := range snippets {
		if checkCancelled != nil && checkCancelled() {
			return result, ErrCancelled
		}

		matched := matchEntities(snip.Text, aliasMap)
		result.SnippetsProcessed++
		for _, entity := range matched {
			if err := ex.processSnippet(ctx, entity, snip, attrByName, result); err != nil {
				ex.logger.Warn("extract: snippet failed", "snippet_id", snip.ID, "entity_id", entity.ID, "error", err)
			}
		}

		if onProgress != nil && (i+1)%10 == 0 {
			onProgress(i+1, total, fmt.Sprintf("processed %d/%d snippets", i+1, total))
		}
	}
	if onProgress != nil {
		onProgress(total, total, "extraction complete")
	}
	return result, nil
}

// matchEntities scans lowercased snippet text for every known alias and
// returns every distinct entity mentioned (spec §4.3 step 4: "find
// matching entities"), sorted by ID so the result — and everything
// downstream of it — is stable across runs regardless of Go's randomized
// map iteration order (spec §5 "stable, reproducible across restarts";
// §8 extract∘extract idempotence).
func matchEntities(text string, aliasMap map[string]*models.Entity) []*models.Entity {
	lower := strings.ToLower(text)
	seen := make(map[string]*models.Entity)
	for alias, entity := range aliasMap {
		if strings.Contains(lower, alias) {
			seen[entity.ID] = entity
		}
	}
	if len(seen) == 0 {
		return nil
	}
	matched := make([]*models.Entity, 0, len(seen))
	for _, entity := range seen {
		matched = append(matched, entity)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched
}

func (ex *Extractor) processSnippet(ctx context.Context, entity *models.Entity, snip *models.Snippet, attrByName map[string]*models.Attribute, result *Result) error {
	prefix := entityPrefix(entity.EntityType)
	for _, extractorCfg := range ex.registry.GetAll() {
		if !strings.HasPrefix(extractorCfg.AttributePattern, prefix) {
			continue
		}
		attr, ok := attrByName[extractorCfg.AttributePattern]
		if !ok {
			continue
		}
		matches := findMatches(extractorCfg, entity, snip.SnippetType, snip.Text)
		for _, m := range matches {
			if err := ex.persistMatch(ctx, entity, attr, extractorCfg, snip, m, result); err != nil {
				return err
			}
		}
	}
	return nil
}

// entityPrefix maps entity type to the extractor attributePattern
// namespace it's eligible for (spec §4.3 step 5).
func entityPrefix(entityType string) string {
	switch entityType {
	case models.EntityTypeEngine:
		return "engines."
	case models.EntityTypeLaunchVehicle:
		return "launch_vehicles."
	default:
		return ""
	}
}

func (ex *Extractor) persistMatch(ctx context.Context, entity *models.Entity, attr *models.Attribute, extractorCfg *config.ExtractorConfig, snip *models.Snippet, m match, result *Result) error {
	scope, err := inferScope(snip.Text).Canonicalize()
	if err != nil {
		return fmt.Errorf("canonicalize scope: %w", err)
	}

	hash, err := claimkey.Compute(entity.ID, attr.ID, scope)
	if err != nil {
		return fmt.Errorf("compute claim key: %w", err)
	}

	groupID, err := ex.store.UpsertConflictGroup(ctx, hash, entity.ID, attr.ID, scope)
	if err != nil {
		return fmt.Errorf("upsert conflict group: %w", err)
	}

	value := models.ClaimValue{Value: m.Value, Type: "number", Confidence: m.Confidence}

	claim, err := ex.store.FindClaimByKeyAndValue(ctx, hash, value)
	var claimID string
	switch {
	case err == nil:
		claimID = claim.ID
		result.ClaimsReused++
	case errors.Is(err, store.ErrNotFound):
		claimID, err = ex.store.InsertClaim(ctx, &models.Claim{
			ClaimKeyHash: hash,
			EntityID:     entity.ID,
			AttributeID:  attr.ID,
			Value:        value,
			Unit:         extractorCfg.TargetUnit,
			Scope:        scope,
		})
		if err != nil {
			return fmt.Errorf("insert claim: %w", err)
		}
		if err := ex.store.IncrementConflictGroupClaimCount(ctx, groupID, 1); err != nil {
			return fmt.Errorf("increment claim count: %w", err)
		}
		result.ClaimsCreated++
	default:
		return fmt.Errorf("find claim: %w", err)
	}

	created, err := ex.store.InsertEvidence(ctx, &models.Evidence{
		ClaimID:              claimID,
		SnippetID:            snip.ID,
		Quote:                m.Quote,
		Stance:               models.StanceSupport,
		ExtractionConfidence: m.Confidence,
	})
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	if created {
		result.EvidenceCreated++
	}
	return nil
}

// parseNumber strips thousands separators and parses as a 64-bit float
// (spec §4.3 step 5 "Parse value").
func parseNumber(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
