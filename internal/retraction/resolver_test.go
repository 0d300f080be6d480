// internal/retraction/resolver_test.go
package retraction

import (
	"context"
	"errors"
	"testing"

	"predcheck/internal/common/logger"
	"predcheck/internal/models"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Doubles
// ==========================

type fakeRegistry struct {
	name   string
	status models.RetractionStatus
	err    error
	calls  int
}

func (f *fakeRegistry) Name() string { return f.name }

func (f *fakeRegistry) Check(ctx context.Context, doi string) (models.RetractionStatus, error) {
	f.calls++
	return f.status, f.err
}

func retractedBy(source, explanation string) models.RetractionStatus {
	return models.RetractionStatus{
		IsRetracted: true,
		Sources:     []string{source},
		Explanation: explanation,
	}
}

// ==========================
// Resolver Tests
// ==========================

func TestResolve_EmptyDOIMakesNoCalls(t *testing.T) {
	crossref := &fakeRegistry{name: "crossref"}
	pubmed := &fakeRegistry{name: "pubmed"}
	r := NewResolver(crossref, pubmed, logger.NewTestLogger(t))

	status := r.Resolve(context.Background(), "")

	assert.False(t, status.IsRetracted)
	assert.Empty(t, status.Sources)
	assert.Zero(t, crossref.calls)
	assert.Zero(t, pubmed.calls)
}

func TestResolve_SingleRegistryVerdict(t *testing.T) {
	crossref := &fakeRegistry{name: "crossref"}
	pubmed := &fakeRegistry{name: "pubmed", status: retractedBy("pubmed", "Found in PubMed.")}
	r := NewResolver(crossref, pubmed, logger.NewTestLogger(t))

	status := r.Resolve(context.Background(), "10.1234/abc")

	assert.True(t, status.IsRetracted)
	assert.Equal(t, []string{"pubmed"}, status.Sources)
	assert.Equal(t, "Found in PubMed.", status.Explanation)
}

func TestResolve_BothRegistriesCombinedNarrative(t *testing.T) {
	crossref := &fakeRegistry{name: "crossref", status: models.RetractionStatus{
		IsRetracted: true,
		Sources:     []string{"crossref"},
		Date:        "2021-03-02T00:00:00Z",
		Notice:      "DOI: 10.1/retract.1",
		Explanation: "Found in Crossref.",
	}}
	pubmed := &fakeRegistry{name: "pubmed", status: models.RetractionStatus{
		IsRetracted: true,
		Sources:     []string{"pubmed"},
		Date:        "2021-03-05T00:00:00Z",
		Explanation: "Found in PubMed.",
	}}
	r := NewResolver(crossref, pubmed, logger.NewTestLogger(t))

	status := r.Resolve(context.Background(), "10.1234/abc")

	assert.True(t, status.IsRetracted)
	assert.Equal(t, []string{"crossref", "pubmed"}, status.Sources)
	// Scalars prefer the citation-graph registry.
	assert.Equal(t, "2021-03-02T00:00:00Z", status.Date)
	assert.Equal(t, "DOI: 10.1/retract.1", status.Notice)
	assert.Equal(t, "This paper was found to be retracted in both Crossref and PubMed databases. Found in Crossref. Found in PubMed.", status.Explanation)
}

func TestResolve_RegistryFailureDegrades(t *testing.T) {
	crossref := &fakeRegistry{name: "crossref", err: errors.New("timeout")}
	pubmed := &fakeRegistry{name: "pubmed"}
	r := NewResolver(crossref, pubmed, logger.NewTestLogger(t))

	status := r.Resolve(context.Background(), "10.1234/abc")

	assert.False(t, status.IsRetracted)
	assert.Empty(t, status.Sources)
	assert.Equal(t, 1, crossref.calls)
	assert.Equal(t, 1, pubmed.calls)
}

func TestResolve_FailedRegistryDoesNotMaskTheOther(t *testing.T) {
	crossref := &fakeRegistry{name: "crossref", err: errors.New("connection refused")}
	pubmed := &fakeRegistry{name: "pubmed", status: retractedBy("pubmed", "Found in PubMed.")}
	r := NewResolver(crossref, pubmed, logger.NewTestLogger(t))

	status := r.Resolve(context.Background(), "10.1234/abc")

	assert.True(t, status.IsRetracted)
	assert.Equal(t, []string{"pubmed"}, status.Sources)
}
