// internal/analysis/orchestrator.go

// Package analysis drives the credibility pipeline across a paper's
// full reference list and persists the aggregate.
package analysis

import (
	"context"
	"strings"
	"sync"
	"time"

	"predcheck/internal/common/errors"
	"predcheck/internal/common/logger"
	"predcheck/internal/common/metrics"
	"predcheck/internal/models"
	"predcheck/internal/openalex"
	"predcheck/internal/scoring"

	"github.com/google/uuid"
)

// Defaults for the batch loop.
const (
	DefaultBatchSize         = 10
	DefaultBatchDelay        = 500 * time.Millisecond
	DefaultHighRiskThreshold = 60
)

// ReferenceProvider supplies the hydrated reference list for a DOI.
type ReferenceProvider interface {
	GetReferences(ctx context.Context, doi string) ([]models.Reference, error)
}

// RetractionResolver answers whether a DOI has been retracted.
type RetractionResolver interface {
	Resolve(ctx context.Context, doi string) models.RetractionStatus
}

// ReferenceScorer runs the predatory-evidence score for one reference.
type ReferenceScorer interface {
	Score(ctx context.Context, journalName, issn, publisher string) (*models.ScoringResult, error)
}

// Sink persists and reloads finished analyses.
type Sink interface {
	SaveAnalysis(ctx context.Context, a *models.Analysis) (string, error)
	GetAnalysis(ctx context.Context, id string) (*models.Analysis, error)
}

// predatoryDOIPrefixes maps known predatory-publisher DOI prefixes to
// the warning raised when the input paper itself carries one.
var predatoryDOIPrefixes = map[string]string{
	"10.4236/": "Input paper is published by Scientific Research Publishing (SCIRP), which appears on Beall's list of predatory publishers.",
}

// Orchestrator coordinates retraction resolution, scoring and
// aggregation over batches of references.
type Orchestrator struct {
	provider          ReferenceProvider
	resolver          RetractionResolver
	scorer            ReferenceScorer
	sink              Sink
	batchSize         int
	batchDelay        time.Duration
	highRiskThreshold int
	log               logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBatchSize sets how many references are processed concurrently.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between batches.
func WithBatchDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.batchDelay = d
		}
	}
}

// WithHighRiskThreshold sets the score at which a reference counts as
// high risk in the aggregate.
func WithHighRiskThreshold(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.highRiskThreshold = n
		}
	}
}

// WithSink attaches a result sink. Without one, analyses are returned
// but not persisted.
func WithSink(s Sink) Option {
	return func(o *Orchestrator) {
		o.sink = s
	}
}

// NewOrchestrator wires the pipeline components together.
func NewOrchestrator(provider ReferenceProvider, resolver RetractionResolver, scorer ReferenceScorer, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:          provider,
		resolver:          resolver,
		scorer:            scorer,
		batchSize:         DefaultBatchSize,
		batchDelay:        DefaultBatchDelay,
		highRiskThreshold: DefaultHighRiskThreshold,
		log:               log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze runs the full pipeline for one input paper. Only a provider
// failure (or an empty reference list) is terminal; everything else
// degrades to reduced evidence on individual references.
func (o *Orchestrator) Analyze(ctx context.Context, doi string) (*models.Analysis, error) {
	started := time.Now()
	doi = openalex.CleanDOI(doi)

	analysis := &models.Analysis{
		ID:        uuid.New().String(),
		InputDOI:  doi,
		CreatedAt: started,
	}
	for prefix, warning := range predatoryDOIPrefixes {
		if strings.HasPrefix(doi, prefix) {
			o.log.Warn("input paper flagged", map[string]interface{}{"doi": doi})
			analysis.Warnings = append(analysis.Warnings, warning)
		}
	}

	refs, err := o.provider.GetReferences(ctx, doi)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, errors.NewProviderUnavailableError(nil)
	}
	analysis.InputTitle = refs[0].Title
	if analysis.InputTitle == "" {
		analysis.InputTitle = doi
	}
	o.log.Info("analysis started", map[string]interface{}{
		"doi":        doi,
		"references": len(refs),
	})

	scored := make([]models.ScoredReference, len(refs))
	deadlineHit := false

	for batchStart := 0; batchStart < len(refs); batchStart += o.batchSize {
		if ctx.Err() != nil {
			deadlineHit = true
			break
		}

		batchEnd := batchStart + o.batchSize
		if batchEnd > len(refs) {
			batchEnd = len(refs)
		}
		o.log.Debug("processing batch", map[string]interface{}{
			"from": batchStart,
			"to":   batchEnd,
		})

		var wg sync.WaitGroup
		for i := batchStart; i < batchEnd; i++ {
			wg.Add(1)
			go func(slot int, ref models.Reference) {
				defer wg.Done()
				scored[slot] = o.process(ctx, ref)
			}(i, refs[i])
		}
		wg.Wait()

		// Aggregation happens only here, after the join.
		metrics.BatchesProcessed.Inc()
		for i := batchStart; i < batchEnd; i++ {
			metrics.ReferencesScored.WithLabelValues(scored[i].Risk.Level).Inc()
		}

		if batchEnd < len(refs) {
			select {
			case <-ctx.Done():
				deadlineHit = true
			case <-time.After(o.batchDelay):
			}
			if deadlineHit {
				break
			}
		}
	}

	if deadlineHit {
		o.markUnscored(scored)
	}

	analysis.References = scored
	analysis.Summary = models.BuildSummary(scored, o.highRiskThreshold)
	metrics.AnalysisDuration.Observe(time.Since(started).Seconds())

	o.persist(ctx, analysis)

	o.log.Info("analysis complete", map[string]interface{}{
		"doi":       doi,
		"total":     analysis.Summary.Total,
		"highRisk":  analysis.Summary.HighRiskCount,
		"retracted": analysis.Summary.RetractedCount,
		"unscored":  analysis.Summary.UnscoredCount,
		"elapsed":   time.Since(started).String(),
	})
	return analysis, nil
}

// process handles a single reference: retraction first, scoring only
// when the work is not retracted.
func (o *Orchestrator) process(ctx context.Context, ref models.Reference) models.ScoredReference {
	sr := models.ScoredReference{Reference: ref}

	if ref.HasDOI() {
		sr.Retraction = o.resolver.Resolve(ctx, ref.DOI)
		if sr.Retraction.IsRetracted {
			sr.Scoring = scoring.RetractedScoringResult(sr.Retraction)
			sr.Risk = models.RetractedRiskLevel()
			return sr
		}
	}

	journal := ref.Journal
	if journal == "" {
		journal = "Unknown"
	}
	issn := ""
	if len(ref.ISSN) > 0 {
		issn = ref.ISSN[0]
	}

	result, err := o.scorer.Score(ctx, journal, issn, ref.Publisher)
	if err != nil {
		o.log.WithError(err).Warn("scoring failed, recording zero-score reference", map[string]interface{}{
			"title": ref.DisplayName(),
		})
		result = models.NewScoringResult()
		result.Details = append(result.Details, "Scoring failed for this reference; no evidence could be evaluated.")
	}
	sr.Scoring = result
	sr.Risk = models.ClassifyRisk(result.Score)
	return sr
}

// markUnscored fills every still-empty slot after the deadline was hit.
func (o *Orchestrator) markUnscored(scored []models.ScoredReference) {
	for i := range scored {
		if scored[i].Scoring != nil {
			continue
		}
		result := models.NewScoringResult()
		result.Details = append(result.Details, "Analysis deadline exceeded before this reference was scored.")
		scored[i].Scoring = result
		scored[i].Risk = models.ClassifyRisk(0)
		scored[i].Unscored = true
		metrics.ReferencesScored.WithLabelValues(scored[i].Risk.Level).Inc()
	}
}

func (o *Orchestrator) persist(ctx context.Context, analysis *models.Analysis) {
	if o.sink == nil {
		return
	}
	if _, err := o.sink.SaveAnalysis(ctx, analysis); err != nil {
		persistErr := errors.NewPersistenceFailureError(err)
		o.log.WithError(persistErr).Error("analysis not persisted; results remain valid", map[string]interface{}{
			"analysisId": analysis.ID,
		})
	}
}
