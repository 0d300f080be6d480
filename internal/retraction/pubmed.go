// internal/retraction/pubmed.go
package retraction

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"predcheck/internal/common/logger"
	"predcheck/internal/models"
	"predcheck/internal/openalex"
)

const pubmedDefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

var retractionInPMID = regexp.MustCompile(`(?s)<CommentsCorrections[^>]*RefType="RetractionIn".*?<PMID[^>]*>(\d+)</PMID>`)

// PubMedClient checks the PubMed biomedical registry. Resolution is a
// two-step esearch/efetch: find the PMID for the DOI, then scan the
// record's publication types and correction comments.
type PubMedClient struct {
	httpClient *http.Client
	baseURL    string
	log        logger.Logger
}

// PubMedOption configures a PubMedClient.
type PubMedOption func(*PubMedClient)

// WithPubMedBaseURL sets a custom base URL (for testing).
func WithPubMedBaseURL(u string) PubMedOption {
	return func(c *PubMedClient) {
		c.baseURL = u
	}
}

// WithPubMedTimeout sets the HTTP request timeout.
func WithPubMedTimeout(d time.Duration) PubMedOption {
	return func(c *PubMedClient) {
		c.httpClient.Timeout = d
	}
}

// NewPubMedClient creates a PubMed registry client.
func NewPubMedClient(log logger.Logger, opts ...PubMedOption) *PubMedClient {
	c := &PubMedClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    pubmedDefaultBaseURL,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements RegistryClient.
func (c *PubMedClient) Name() string { return "pubmed" }

type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// Check resolves the DOI to a PMID and scans the record for retraction
// markers. A DOI not indexed in PubMed yields no evidence.
func (c *PubMedClient) Check(ctx context.Context, doi string) (models.RetractionStatus, error) {
	var status models.RetractionStatus
	doi = openalex.CleanDOI(doi)

	pmid, err := c.findPMID(ctx, doi)
	if err != nil {
		return status, err
	}
	if pmid == "" {
		return status, nil
	}

	record, err := c.fetchRecord(ctx, pmid)
	if err != nil {
		return status, err
	}

	if strings.Contains(record, "PublicationTypeList") && strings.Contains(record, "Retracted Publication") {
		status.IsRetracted = true
		status.AddSource(c.Name())
		status.Reason = `This paper is marked as "Retracted Publication" in the PubMed database.`
		status.Explanation = fmt.Sprintf("This paper was found to be retracted in PubMed (PMID: %s). PubMed is the U.S. National Library of Medicine's database and marks papers that have been officially withdrawn from the scientific literature.", pmid)
		status.NoticeLink = "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
	}

	if strings.Contains(record, "CommentsCorrectionsList") &&
		(strings.Contains(record, "RetractionIn") || strings.Contains(record, "RetractionOf")) {
		status.IsRetracted = true
		status.AddSource(c.Name())

		if m := retractionInPMID.FindStringSubmatch(record); m != nil {
			noticePMID := m[1]
			status.Notice = "PMID: " + noticePMID
			status.NoticeLink = "https://pubmed.ncbi.nlm.nih.gov/" + noticePMID + "/"
			if status.Reason == "" {
				status.Reason = fmt.Sprintf("A formal retraction notice has been published in PubMed (PMID: %s).", noticePMID)
			}
			if status.Explanation == "" {
				status.Explanation = "This paper was found to be retracted in PubMed. A retraction notice has been published and can be viewed at the provided link. Retractions indicate serious concerns about the validity or integrity of the published work."
			}
		} else if status.Reason == "" {
			status.Reason = "Retraction comment found in PubMed record."
			status.Explanation = fmt.Sprintf("This paper has retraction information in its PubMed record (PMID: %s), indicating it has been officially withdrawn from the scientific literature.", pmid)
			status.NoticeLink = "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
		}
	}

	if status.IsRetracted {
		c.log.Info("pubmed retraction found", map[string]interface{}{"doi": doi, "pmid": pmid})
	}
	return status, nil
}

func (c *PubMedClient) findPMID(ctx context.Context, doi string) (string, error) {
	query := url.Values{}
	query.Set("db", "pubmed")
	query.Set("term", doi+"[doi]")
	query.Set("retmode", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/esearch.fcgi?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pubmed esearch returned status %d", resp.StatusCode)
	}

	var search esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return "", err
	}
	if len(search.ESearchResult.IDList) == 0 {
		return "", nil
	}
	return search.ESearchResult.IDList[0], nil
}

func (c *PubMedClient) fetchRecord(ctx context.Context, pmid string) (string, error) {
	query := url.Values{}
	query.Set("db", "pubmed")
	query.Set("id", pmid)
	query.Set("retmode", "xml")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/efetch.fcgi?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pubmed efetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
