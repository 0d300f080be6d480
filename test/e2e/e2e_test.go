// test/e2e/e2e_test.go

// End-to-end pipeline test. Every external service (OpenAlex, Crossref,
// PubMed, the matcher API) is stood in for by an httptest server, so the
// real clients, resolver, scorer, and orchestrator run against realistic
// wire payloads without network access.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predcheck/internal/analysis"
	"predcheck/internal/common/logger"
	"predcheck/internal/matcher"
	"predcheck/internal/models"
	"predcheck/internal/openalex"
	"predcheck/internal/retraction"
	"predcheck/internal/scoring"
	"predcheck/internal/watchlist"
)

const inputDOI = "10.1000/paper"

// ==========================
// Service Doubles
// ==========================

// newOpenAlexServer serves the input work plus a three-reference
// hydration batch: a predatory-publisher hit, a retracted paper, and a
// clean one.
func newOpenAlexServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("filter") != "" {
			fmt.Fprint(w, `{"results": [
				{
					"id": "https://openalex.org/W1",
					"doi": "https://doi.org/10.1000/ref1",
					"title": "Advances in Everything",
					"publication_year": 2021,
					"primary_location": {"source": {
						"display_name": "Journal of Advanced Topics",
						"issn": ["1111-2222"],
						"host_organization_name": "OMICS Publishing Group Intl"
					}},
					"authorships": [{"author": {"display_name": "A. Author"}}]
				},
				{
					"id": "https://openalex.org/W2",
					"doi": "https://doi.org/10.1000/ref2",
					"title": "Withdrawn Results",
					"publication_year": 2019,
					"primary_location": {"source": {
						"display_name": "Respectable Journal",
						"issn": ["3333-4444"],
						"host_organization_name": "Respectable Press"
					}},
					"authorships": [{"author": {"display_name": "B. Author"}}]
				},
				{
					"id": "https://openalex.org/W3",
					"doi": "https://doi.org/10.1000/ref3",
					"title": "Sound Methodology",
					"publication_year": 2022,
					"primary_location": {"source": {
						"display_name": "Annals of Internal Medicine",
						"issn": ["5555-6666"],
						"host_organization_name": "American College of Physicians"
					}},
					"authorships": [{"author": {"display_name": "C. Author"}}]
				}
			]}`)
			return
		}

		if strings.Contains(r.URL.Path, inputDOI) {
			fmt.Fprint(w, `{
				"id": "https://openalex.org/W100",
				"doi": "https://doi.org/10.1000/paper",
				"title": "The Paper Under Analysis",
				"publication_year": 2023,
				"referenced_works": [
					"https://openalex.org/W1",
					"https://openalex.org/W2",
					"https://openalex.org/W3"
				]
			}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

// newCrossrefServer reports ref2 as retracted via an update record and
// knows nothing about the other DOIs.
func newCrossrefServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "10.1000/ref2") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"message": {
			"update": [{
				"type": "retraction",
				"label": "Retraction",
				"updated": {"date-time": "2020-06-01T00:00:00Z"}
			}]
		}}`)
	}))
}

// newPubMedServer indexes none of the DOIs, so every esearch comes back
// empty and the resolver leans on Crossref alone.
func newPubMedServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"esearchresult": {"idlist": []}}`)
	}))
}

// newMatcherServer speaks just enough of the OpenAI chat completion
// protocol to confirm any name pair with confidence 97.
func newMatcherServer(t *testing.T, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		verdict := `{\"isMatch\": true, \"confidence\": 97, \"reasoning\": \"Same publisher, abbreviated suffix.\"}`
		fmt.Fprintf(w, `{"choices": [{"message": {"role": "assistant", "content": "%s"}}]}`, verdict)
	}))
}

// memoryStore serves watchlists for the scorer without Postgres.
type memoryStore struct {
	entries map[watchlist.Category][]watchlist.Entry
}

func (m *memoryStore) Lookup(_ context.Context, category watchlist.Category) ([]watchlist.Entry, error) {
	return m.entries[category], nil
}

func (m *memoryStore) LookupISSN(_ context.Context, issn string) (*watchlist.Entry, error) {
	return nil, nil
}

// memorySink keeps saved analyses in a map so the round trip through
// the sink interface is exercised without a database.
type memorySink struct {
	mu    sync.Mutex
	saved map[string]*models.Analysis
}

func (s *memorySink) SaveAnalysis(_ context.Context, a *models.Analysis) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[a.ID] = a
	return a.ID, nil
}

func (s *memorySink) GetAnalysis(_ context.Context, id string) (*models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.saved[id]
	if !ok {
		return nil, fmt.Errorf("analysis %s not found", id)
	}
	return a, nil
}

// ==========================
// Full Pipeline
// ==========================

func TestFullPipeline(t *testing.T) {
	var matcherCalls int64

	openalexSrv := newOpenAlexServer(t)
	defer openalexSrv.Close()
	crossrefSrv := newCrossrefServer(t)
	defer crossrefSrv.Close()
	pubmedSrv := newPubMedServer(t)
	defer pubmedSrv.Close()
	matcherSrv := newMatcherServer(t, &matcherCalls)
	defer matcherSrv.Close()

	log := logger.NewTestLogger(t)

	provider := openalex.NewClient(log,
		openalex.WithBaseURL(openalexSrv.URL),
		openalex.WithRateLimit(1000),
	)
	resolver := retraction.NewResolver(
		retraction.NewCrossrefClient(log, retraction.WithCrossrefBaseURL(crossrefSrv.URL)),
		retraction.NewPubMedClient(log, retraction.WithPubMedBaseURL(pubmedSrv.URL)),
		log,
	)
	store := &memoryStore{entries: map[watchlist.Category][]watchlist.Entry{
		watchlist.CategoryBeallsPublishers: {
			{ID: "1", Name: "OMICS Publishing Group"},
		},
	}}
	match := matcher.NewClient(matcher.Config{
		BaseURL: matcherSrv.URL,
		APIKey:  "test-key",
	}, log)
	scorer := scoring.NewScorer(store, match, 3, 95, log)
	sink := &memorySink{saved: map[string]*models.Analysis{}}

	orch := analysis.NewOrchestrator(provider, resolver, scorer, log,
		analysis.WithBatchSize(10),
		analysis.WithBatchDelay(10*time.Millisecond),
		analysis.WithSink(sink),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := orch.Analyze(ctx, "https://doi.org/"+inputDOI)
	require.NoError(t, err)
	require.Len(t, result.References, 3)
	assert.Equal(t, inputDOI, result.InputDOI)
	assert.Empty(t, result.Warnings)

	// Predatory-publisher reference: prefilter surfaces the Beall's
	// entry, the matcher confirms it at 97, worth 40 points.
	pred := result.References[0]
	assert.Equal(t, "10.1000/ref1", pred.Reference.DOI)
	require.NotNil(t, pred.Scoring)
	assert.Equal(t, 40, pred.Scoring.Score)
	assert.Equal(t, 40, pred.Scoring.Breakdown["bealls"])
	assert.Equal(t, 97, pred.Scoring.MatchConfidence)
	assert.Contains(t, pred.Scoring.EvidenceSources, "bealls")
	assert.Equal(t, "moderate", pred.Risk.Level)
	assert.False(t, pred.Retraction.IsRetracted)

	// Retracted reference: Crossref's update record short-circuits
	// scoring entirely.
	ret := result.References[1]
	assert.Equal(t, "10.1000/ref2", ret.Reference.DOI)
	require.True(t, ret.Retraction.IsRetracted)
	assert.Equal(t, []string{"crossref"}, ret.Retraction.Sources)
	assert.Equal(t, "2020-06-01T00:00:00Z", ret.Retraction.Date)
	require.NotNil(t, ret.Scoring)
	assert.Equal(t, 100, ret.Scoring.Score)
	assert.Equal(t, "RETRACTED", ret.Risk.Label)

	// Clean reference: nothing on any watchlist, nothing retracted.
	clean := result.References[2]
	assert.Equal(t, "10.1000/ref3", clean.Reference.DOI)
	require.NotNil(t, clean.Scoring)
	assert.Equal(t, 0, clean.Scoring.Score)
	assert.Equal(t, "minimal", clean.Risk.Level)

	// The clean and retracted references never reach the matcher.
	assert.Equal(t, int64(1), atomic.LoadInt64(&matcherCalls))

	assert.Equal(t, 3, result.Summary.Total)
	assert.Equal(t, 1, result.Summary.RetractedCount)
	assert.Equal(t, 1, result.Summary.HighRiskCount)
	assert.Equal(t, 0, result.Summary.UnscoredCount)

	// The orchestrator persisted the analysis through the sink.
	stored, err := sink.GetAnalysis(ctx, result.ID)
	require.NoError(t, err)
	assert.Len(t, stored.References, 3)
}

func TestFullPipeline_UnknownDOI(t *testing.T) {
	openalexSrv := newOpenAlexServer(t)
	defer openalexSrv.Close()

	log := logger.NewTestLogger(t)
	provider := openalex.NewClient(log,
		openalex.WithBaseURL(openalexSrv.URL),
		openalex.WithRateLimit(1000),
	)
	orch := analysis.NewOrchestrator(provider, stubResolver{}, stubScorer{}, log)

	_, err := orch.Analyze(context.Background(), "10.9999/does-not-exist")
	require.Error(t, err)
}

type stubResolver struct{}

func (stubResolver) Resolve(context.Context, string) models.RetractionStatus {
	return models.RetractionStatus{}
}

type stubScorer struct{}

func (stubScorer) Score(context.Context, string, string, string) (*models.ScoringResult, error) {
	return models.NewScoringResult(), nil
}

// unmarshalContent guards the doubles against drift in the completion
// payload shape the real client expects.
func TestMatcherDoubleSpeaksValidJSON(t *testing.T) {
	var calls int64
	srv := newMatcherServer(t, &calls)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Choices, 1)

	var verdict matcher.Result
	require.NoError(t, json.Unmarshal([]byte(body.Choices[0].Message.Content), &verdict))
	assert.True(t, verdict.IsMatch)
	assert.Equal(t, 97, verdict.Confidence)
}
