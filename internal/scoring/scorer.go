// internal/scoring/scorer.go
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"predcheck/internal/common/logger"
	"predcheck/internal/matcher"
	"predcheck/internal/models"
	"predcheck/internal/watchlist"
)

// Evidence weights per watchlist family.
const (
	PointsBealls             = 40
	PointsStopPredatory      = 35
	PointsHijacked           = 20
	PointsScopusDiscontinued = 15
)

// Scorer runs a reference's journal, publisher and ISSN through the
// watchlists, confirming lexical candidates with the semantic matcher.
type Scorer struct {
	store     watchlist.Store
	matcher   matcher.Matcher
	topN      int
	threshold int
	log       logger.Logger
}

// NewScorer creates a scorer. threshold is the semantic-match
// confidence floor; topN the pre-filter cutoff.
func NewScorer(store watchlist.Store, m matcher.Matcher, topN, threshold int, log logger.Logger) *Scorer {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if threshold <= 0 {
		threshold = matcher.DefaultThreshold
	}
	return &Scorer{
		store:     store,
		matcher:   m,
		topN:      topN,
		threshold: threshold,
		log:       log,
	}
}

// evidence tracks confidence accumulation across families.
type evidence struct {
	result          *models.ScoringResult
	totalConfidence int
	matchCount      int
}

func (e *evidence) record(confidence int) {
	e.totalConfidence += confidence
	e.matchCount++
}

// Score evaluates one reference. Evidence families run in a fixed
// order; a watchlist that fails to load contributes nothing and leaves
// a coverage note in the detail trail instead of failing the score.
func (s *Scorer) Score(ctx context.Context, journalName, issn, publisher string) (*models.ScoringResult, error) {
	ev := &evidence{result: models.NewScoringResult()}

	s.log.Debug("scoring reference", map[string]interface{}{
		"journal":   journalName,
		"publisher": publisher,
		"issn":      issn,
	})

	if publisher != "" {
		s.checkBealls(ctx, ev, publisher)
		if ev.result.Breakdown[models.BreakdownBealls] == 0 {
			s.checkStopPredatoryPublishers(ctx, ev, publisher)
		}
	}
	s.checkPredatoryJournals(ctx, ev, journalName)
	s.checkHijacked(ctx, ev, journalName)
	if issn != "" {
		s.checkDiscontinued(ctx, ev, issn)
	}

	if ev.matchCount > 0 {
		ev.result.MatchConfidence = int(math.Round(float64(ev.totalConfidence) / float64(ev.matchCount)))
	}
	return ev.result, nil
}

// confirm runs pre-filtered candidates through the semantic matcher in
// similarity order and returns the first confirmed match. A matcher
// failure demotes that candidate to non-matching.
func (s *Scorer) confirm(ctx context.Context, name string, candidates []Ranked) (*watchlist.Entry, matcher.Result, bool) {
	for _, c := range candidates {
		match, err := s.matcher.MatchNames(ctx, name, c.Entry.Name, s.threshold)
		if err != nil {
			s.log.WithError(err).Warn("matcher failed, treating candidate as non-matching", map[string]interface{}{
				"name":      name,
				"candidate": c.Entry.Name,
			})
			continue
		}
		if match.IsMatch {
			return &c.Entry, match, true
		}
	}
	return nil, matcher.Result{}, false
}

func (s *Scorer) loadCategory(ctx context.Context, ev *evidence, category watchlist.Category) ([]watchlist.Entry, bool) {
	entries, err := s.store.Lookup(ctx, category)
	if err != nil {
		s.log.WithError(err).Warn("watchlist unavailable, skipping category", map[string]interface{}{
			"category": string(category),
		})
		ev.result.Details = append(ev.result.Details,
			fmt.Sprintf("Coverage note: %s watchlist could not be loaded; this category contributed no evidence.", category))
		return nil, false
	}
	return entries, true
}

func (s *Scorer) checkBealls(ctx context.Context, ev *evidence, publisher string) {
	entries, ok := s.loadCategory(ctx, ev, watchlist.CategoryBeallsPublishers)
	if !ok || len(entries) == 0 {
		return
	}
	candidates := Prefilter(publisher, entries, s.topN)
	entry, match, found := s.confirm(ctx, publisher, candidates)
	if !found {
		return
	}

	ev.result.AddEvidence(models.BreakdownBealls, models.EvidenceBealls, PointsBealls,
		"PUBLISHER FOUND IN BEALL'S LIST")
	ev.result.Details = append(ev.result.Details,
		fmt.Sprintf("Matched publisher: %q (confidence %d%%)", entry.Name, match.Confidence),
		"Beall's List is a curated database of predatory publishers maintained by library science professionals. Listed publishers have been flagged for practices such as absent peer review, deceptive metric claims, and fees without editorial oversight.",
		"Matching reasoning: "+match.Reasoning)
	ev.record(match.Confidence)
}

func (s *Scorer) checkStopPredatoryPublishers(ctx context.Context, ev *evidence, publisher string) {
	entries, ok := s.loadCategory(ctx, ev, watchlist.CategoryStopPredatoryPublishers)
	if !ok || len(entries) == 0 {
		return
	}
	candidates := Prefilter(publisher, entries, s.topN)
	entry, match, found := s.confirm(ctx, publisher, candidates)
	if !found {
		return
	}

	ev.result.AddEvidence(models.BreakdownStopPredatory, models.EvidenceStopPredatory, PointsStopPredatory,
		"PUBLISHER FOUND IN STOP PREDATORY JOURNALS DATABASE")
	ev.result.Details = append(ev.result.Details,
		fmt.Sprintf("Matched publisher: %q (confidence %d%%)", entry.Name, match.Confidence),
		"The Stop Predatory Journals database is an independent watchdog resource tracking publishers flagged for inadequate peer review, misleading indexing claims, and fee-driven business models.",
		"Matching reasoning: "+match.Reasoning)
	ev.record(match.Confidence)
}

func (s *Scorer) checkPredatoryJournals(ctx context.Context, ev *evidence, journalName string) {
	entries, ok := s.loadCategory(ctx, ev, watchlist.CategoryPredatoryJournals)
	if !ok || len(entries) == 0 {
		return
	}
	candidates := Prefilter(journalName, entries, s.topN)
	entry, match, found := s.confirm(ctx, journalName, candidates)
	if !found {
		return
	}

	// Shares the 35-point budget with the publisher check above: points
	// only when that family has not already scored, the tag regardless.
	if ev.result.Breakdown[models.BreakdownStopPredatory] == 0 {
		ev.result.AddEvidence(models.BreakdownStopPredatory, models.EvidenceStopPredatory, PointsStopPredatory,
			"JOURNAL NAME FOUND IN PREDATORY JOURNAL DATABASE")
	} else {
		ev.result.TagSource(models.EvidenceStopPredatory)
		ev.result.Details = append(ev.result.Details, "JOURNAL NAME FOUND IN PREDATORY JOURNAL DATABASE")
	}
	ev.result.Details = append(ev.result.Details,
		fmt.Sprintf("Matched journal: %q (confidence %d%%)", entry.Name, match.Confidence),
		"This journal name appears in a curated list of predatory journals flagged for substandard peer review and profit-driven acceptance practices.",
		"Matching reasoning: "+match.Reasoning)
	ev.record(match.Confidence)
}

func (s *Scorer) checkHijacked(ctx context.Context, ev *evidence, journalName string) {
	entries, ok := s.loadCategory(ctx, ev, watchlist.CategoryHijackedJournals)
	if !ok || len(entries) == 0 {
		return
	}
	candidates := Prefilter(journalName, entries, s.topN)
	entry, match, found := s.confirm(ctx, journalName, candidates)
	if !found {
		return
	}

	legitimateISSN := entry.LegitimateISSN
	if legitimateISSN == "" {
		legitimateISSN = "Unknown"
	}
	ev.result.AddEvidence(models.BreakdownHijacked, models.EvidenceHijacked, PointsHijacked,
		"POTENTIAL HIJACKED JOURNAL DETECTED")
	ev.result.Details = append(ev.result.Details,
		fmt.Sprintf("Legitimate journal name: %q (confidence %d%%)", entry.Name, match.Confidence),
		"Fake website: "+entry.FakeWebsite,
		"Legitimate ISSN: "+legitimateISSN,
		"Journal hijacking is a form of academic fraud where a fake website impersonates a legitimate journal to collect submission fees. Always verify you are on the official journal site.",
		"Matching reasoning: "+match.Reasoning)
	ev.record(match.Confidence)
}

func (s *Scorer) checkDiscontinued(ctx context.Context, ev *evidence, issn string) {
	entry, err := s.store.LookupISSN(ctx, issn)
	if err != nil {
		s.log.WithError(err).Warn("watchlist unavailable, skipping category", map[string]interface{}{
			"category": string(watchlist.CategoryScopusDiscontinued),
		})
		ev.result.Details = append(ev.result.Details,
			fmt.Sprintf("Coverage note: %s watchlist could not be loaded; this category contributed no evidence.", watchlist.CategoryScopusDiscontinued))
		return
	}
	if entry == nil {
		return
	}

	reason := entry.DiscontinuedReason
	if reason == "" {
		reason = "Unknown"
	}
	year := "Unknown"
	if entry.DiscontinuedYear != 0 {
		year = fmt.Sprintf("%d", entry.DiscontinuedYear)
	}
	ev.result.AddEvidence(models.BreakdownScopusDiscontinued, models.EvidenceScopusDiscontinued, PointsScopusDiscontinued,
		"JOURNAL DISCONTINUED BY SCOPUS")
	ev.result.Details = append(ev.result.Details,
		fmt.Sprintf("ISSN match: %s (exact match, 100%% confidence)", issn),
		"Discontinued year: "+year,
		"Official reason: "+reason,
		"Scopus discontinuing coverage typically indicates publication irregularities, quality issues, or loss of peer review integrity. Not every discontinued journal is predatory, but it is a significant red flag.")
	ev.record(100)
}

// RetractedScoringResult synthesizes the fixed result for a retracted
// reference; the scorer itself is never invoked for these.
func RetractedScoringResult(status models.RetractionStatus) *models.ScoringResult {
	result := models.NewScoringResult()
	result.Score = 100
	result.MatchConfidence = 100
	for _, source := range status.Sources {
		result.EvidenceSources = append(result.EvidenceSources, "retraction-"+source)
	}
	result.Details = append(result.Details,
		"RETRACTED via "+strings.ToUpper(strings.Join(status.Sources, ", ")))
	if status.Reason != "" {
		result.Details = append(result.Details, status.Reason)
	} else {
		result.Details = append(result.Details, "No reason provided")
	}
	if status.Notice != "" {
		result.Details = append(result.Details, "Notice: "+status.Notice)
	}
	return result
}
