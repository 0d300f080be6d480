// internal/retraction/resolver.go
package retraction

import (
	"context"
	"strings"

	"predcheck/internal/common/errors"
	"predcheck/internal/common/logger"
	"predcheck/internal/common/metrics"
	"predcheck/internal/models"
)

// Resolver queries both registries concurrently and merges their
// verdicts into one RetractionStatus.
type Resolver struct {
	citationGraph RegistryClient
	biomedical    RegistryClient
	log           logger.Logger
}

// NewResolver creates a resolver over the citation-graph registry
// (Crossref) and the biomedical registry (PubMed).
func NewResolver(citationGraph, biomedical RegistryClient, log logger.Logger) *Resolver {
	return &Resolver{
		citationGraph: citationGraph,
		biomedical:    biomedical,
		log:           log,
	}
}

// Resolve checks both registries for the DOI. An empty DOI returns an
// unretracted status without any external calls. A registry failure is
// absorbed as "no evidence found" for that registry; detection degrades
// to whichever registry succeeded.
func (r *Resolver) Resolve(ctx context.Context, doi string) models.RetractionStatus {
	if doi == "" {
		return models.RetractionStatus{Sources: []string{}}
	}

	run := func(client RegistryClient, out chan<- verdict) {
		status, err := client.Check(ctx, doi)
		out <- verdict{status: status, err: err}
	}

	crossrefCh := make(chan verdict, 1)
	pubmedCh := make(chan verdict, 1)
	go run(r.citationGraph, crossrefCh)
	go run(r.biomedical, pubmedCh)

	crossref := r.collect(doi, r.citationGraph.Name(), <-crossrefCh)
	pubmed := r.collect(doi, r.biomedical.Name(), <-pubmedCh)

	return merge(crossref, pubmed)
}

func (r *Resolver) collect(doi, registry string, v verdict) models.RetractionStatus {
	if v.err != nil {
		regErr := errors.NewRegistryUnavailableError(registry, v.err)
		r.log.WithError(regErr).Warn("registry lookup failed, degrading", map[string]interface{}{
			"registry": registry,
			"doi":      doi,
		})
		metrics.RegistryLookups.WithLabelValues(registry, "error").Inc()
		return models.RetractionStatus{Sources: []string{}}
	}
	outcome := "clear"
	if v.status.IsRetracted {
		outcome = "retracted"
	}
	metrics.RegistryLookups.WithLabelValues(registry, outcome).Inc()
	return v.status
}

type verdict struct {
	status models.RetractionStatus
	err    error
}

// merge combines the two registry verdicts. Scalars prefer the
// citation-graph value; a confirmation from both registries replaces
// the explanation with a combined narrative.
func merge(crossref, pubmed models.RetractionStatus) models.RetractionStatus {
	combined := models.RetractionStatus{
		IsRetracted: crossref.IsRetracted || pubmed.IsRetracted,
		Sources:     []string{},
	}
	for _, s := range crossref.Sources {
		combined.AddSource(s)
	}
	for _, s := range pubmed.Sources {
		combined.AddSource(s)
	}

	combined.Date = firstNonEmpty(crossref.Date, pubmed.Date)
	combined.Reason = firstNonEmpty(crossref.Reason, pubmed.Reason)
	combined.Notice = firstNonEmpty(crossref.Notice, pubmed.Notice)
	combined.NoticeLink = firstNonEmpty(crossref.NoticeLink, pubmed.NoticeLink)
	combined.Explanation = firstNonEmpty(crossref.Explanation, pubmed.Explanation)

	if crossref.IsRetracted && pubmed.IsRetracted {
		combined.Explanation = strings.TrimSpace(
			"This paper was found to be retracted in both Crossref and PubMed databases. " +
				strings.TrimSpace(crossref.Explanation+" "+pubmed.Explanation))
	}
	return combined
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
