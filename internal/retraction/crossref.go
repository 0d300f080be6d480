// internal/retraction/crossref.go
package retraction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"predcheck/internal/common/logger"
	"predcheck/internal/models"
	"predcheck/internal/openalex"
)

const crossrefDefaultBaseURL = "https://api.crossref.org"

// CrossrefClient checks the Crossref citation-graph registry. Crossref
// records retractions as is-retracted-by relations and update notices on
// the work metadata.
type CrossrefClient struct {
	httpClient *http.Client
	baseURL    string
	mailto     string
	log        logger.Logger
}

// CrossrefOption configures a CrossrefClient.
type CrossrefOption func(*CrossrefClient)

// WithCrossrefBaseURL sets a custom base URL (for testing).
func WithCrossrefBaseURL(u string) CrossrefOption {
	return func(c *CrossrefClient) {
		c.baseURL = u
	}
}

// WithCrossrefMailto sets the polite-pool contact address.
func WithCrossrefMailto(email string) CrossrefOption {
	return func(c *CrossrefClient) {
		c.mailto = email
	}
}

// WithCrossrefTimeout sets the HTTP request timeout.
func WithCrossrefTimeout(d time.Duration) CrossrefOption {
	return func(c *CrossrefClient) {
		c.httpClient.Timeout = d
	}
}

// NewCrossrefClient creates a Crossref registry client.
func NewCrossrefClient(log logger.Logger, opts ...CrossrefOption) *CrossrefClient {
	c := &CrossrefClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    crossrefDefaultBaseURL,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements RegistryClient.
func (c *CrossrefClient) Name() string { return "crossref" }

type crossrefWork struct {
	Message struct {
		Relation map[string][]struct {
			ID string `json:"id"`
		} `json:"relation"`
		Update []struct {
			Type    string `json:"type"`
			Label   string `json:"label"`
			Updated struct {
				DateTime string `json:"date-time"`
			} `json:"updated"`
		} `json:"update"`
		ContentUpdated []struct {
			Label string `json:"label"`
		} `json:"content-updated"`
	} `json:"message"`
}

// Check looks up the work's retraction markers in Crossref metadata.
func (c *CrossrefClient) Check(ctx context.Context, doi string) (models.RetractionStatus, error) {
	var status models.RetractionStatus
	doi = openalex.CleanDOI(doi)

	u := c.baseURL + "/works/" + url.PathEscape(doi)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return status, err
	}
	if c.mailto != "" {
		req.Header.Set("User-Agent", fmt.Sprintf("predcheck/1.0 (mailto:%s)", c.mailto))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return status, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Not in Crossref: no evidence, not an error.
		return status, nil
	}
	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("crossref returned status %d", resp.StatusCode)
	}

	var work crossrefWork
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		return status, err
	}

	if refs := work.Message.Relation["is-retracted-by"]; len(refs) > 0 {
		status.IsRetracted = true
		status.AddSource(c.Name())
		retractionDOI := refs[0].ID
		status.Notice = "DOI: " + retractionDOI
		status.NoticeLink = "https://doi.org/" + retractionDOI
		status.Reason = "This paper has been officially retracted according to Crossref metadata."
		status.Explanation = "This paper was found to be retracted in Crossref. A formal retraction notice has been published and is linked to this paper in the scholarly record."
	}

	for _, update := range work.Message.Update {
		if update.Type == "retraction" || strings.Contains(strings.ToLower(update.Label), "retract") {
			status.IsRetracted = true
			status.AddSource(c.Name())
			status.Date = update.Updated.DateTime
			if status.Reason == "" {
				status.Reason = update.Label
				if status.Reason == "" {
					status.Reason = "Retraction notice recorded in Crossref metadata."
				}
			}
			if status.Explanation == "" {
				status.Explanation = "This paper was retracted according to Crossref records"
				if status.Date != "" {
					status.Explanation += " on " + status.Date
				}
				status.Explanation += "."
			}
		}
	}

	if len(work.Message.ContentUpdated) > 0 {
		label := work.Message.ContentUpdated[0].Label
		if strings.Contains(strings.ToLower(label), "retract") {
			status.IsRetracted = true
			status.AddSource(c.Name())
			if status.Reason == "" {
				status.Reason = label
			}
		}
	}

	if status.IsRetracted {
		c.log.Info("crossref retraction found", map[string]interface{}{"doi": doi})
	}
	return status, nil
}
