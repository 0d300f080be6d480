// internal/openalex/client.go
package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"predcheck/internal/common/errors"
	"predcheck/internal/common/logger"
	"predcheck/internal/models"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public OpenAlex API endpoint.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit is 10 requests per second per the OpenAlex polite-pool guidance.
	RateLimit = 10.0

	// BatchSize is the maximum works per batch hydration request.
	BatchSize = 50

	// SearchLimit caps the results returned by a title search.
	SearchLimit = 10
)

// Work is a single OpenAlex work record with its outgoing citations.
type Work struct {
	ID              string
	DOI             string
	Title           string
	PublicationYear int
	ReferencedWorks []string
	CitationCount   int
}

// SearchResult is one candidate from a title search.
type SearchResult struct {
	ID            string
	DOI           string
	Title         string
	Year          int
	Authors       []string
	Journal       string
	CitationCount int
}

// Client is a rate-limited HTTP client for the OpenAlex API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
	log        logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithMailto sets the polite-pool contact address.
func WithMailto(email string) ClientOption {
	return func(c *Client) {
		c.mailto = email
	}
}

// WithRateLimit overrides the default requests-per-second limit.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a new OpenAlex API client.
func NewClient(log logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    DefaultBaseURL,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CleanDOI strips doi.org URL prefixes so bare and prefixed DOIs resolve
// to the same work.
func CleanDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://dx.doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	return doi
}

// workRecord mirrors the subset of the OpenAlex work schema we read.
type workRecord struct {
	ID              string   `json:"id"`
	DOI             string   `json:"doi"`
	Title           string   `json:"title"`
	PublicationYear int      `json:"publication_year"`
	ReferencedWorks []string `json:"referenced_works"`
	CitedByCount    int      `json:"cited_by_count"`
	PrimaryLocation *struct {
		Source *struct {
			DisplayName          string   `json:"display_name"`
			ISSN                 []string `json:"issn"`
			HostOrganizationName string   `json:"host_organization_name"`
		} `json:"source"`
	} `json:"primary_location"`
	Authorships []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
}

type listResponse struct {
	Results []workRecord `json:"results"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if c.mailto != "" {
		query.Set("mailto", c.mailto)
	}
	u := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openalex returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetWork fetches a single work by DOI. A failure here is terminal for
// the whole analysis: without the work there are no references to score.
func (c *Client) GetWork(ctx context.Context, doi string) (*Work, error) {
	doi = CleanDOI(doi)
	c.log.Info("fetching work from openalex", map[string]interface{}{"doi": doi})

	var rec workRecord
	path := "/works/" + url.PathEscape("https://doi.org/"+doi)
	if err := c.get(ctx, path, url.Values{}, &rec); err != nil {
		return nil, errors.NewProviderUnavailableError(fmt.Errorf("work lookup for %s: %w", doi, err))
	}

	return &Work{
		ID:              rec.ID,
		DOI:             CleanDOI(rec.DOI),
		Title:           rec.Title,
		PublicationYear: rec.PublicationYear,
		ReferencedWorks: rec.ReferencedWorks,
		CitationCount:   rec.CitedByCount,
	}, nil
}

// GetReferences fetches the work for a DOI and hydrates its referenced
// works in batches of up to 50 per request.
func (c *Client) GetReferences(ctx context.Context, doi string) ([]models.Reference, error) {
	work, err := c.GetWork(ctx, doi)
	if err != nil {
		return nil, err
	}
	c.log.Info("hydrating references", map[string]interface{}{
		"doi":   work.DOI,
		"count": len(work.ReferencedWorks),
	})

	ids := make([]string, 0, len(work.ReferencedWorks))
	for _, u := range work.ReferencedWorks {
		parts := strings.Split(u, "/")
		ids = append(ids, parts[len(parts)-1])
	}
	return c.hydrate(ctx, ids)
}

// hydrate resolves OpenAlex IDs to reference records. A failed batch is
// logged and skipped: partial hydration yields reduced evidence, not a
// failed analysis.
func (c *Client) hydrate(ctx context.Context, ids []string) ([]models.Reference, error) {
	refs := make([]models.Reference, 0, len(ids))
	for i := 0; i < len(ids); i += BatchSize {
		end := i + BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[i:end]

		query := url.Values{}
		query.Set("filter", "openalex_id:"+strings.Join(batch, "|"))
		query.Set("per-page", fmt.Sprintf("%d", BatchSize))

		var list listResponse
		if err := c.get(ctx, "/works", query, &list); err != nil {
			if ctx.Err() != nil {
				return refs, ctx.Err()
			}
			c.log.Warn("reference batch failed, skipping", map[string]interface{}{
				"offset": i,
				"error":  err.Error(),
			})
			continue
		}
		for _, rec := range list.Results {
			refs = append(refs, toReference(rec))
		}
	}
	return refs, nil
}

// SearchByTitle returns up to SearchLimit candidate works for a free-text
// title query.
func (c *Client) SearchByTitle(ctx context.Context, title string) ([]SearchResult, error) {
	query := url.Values{}
	query.Set("search", title)
	query.Set("per-page", fmt.Sprintf("%d", SearchLimit))

	var list listResponse
	if err := c.get(ctx, "/works", query, &list); err != nil {
		return nil, errors.NewProviderUnavailableError(fmt.Errorf("title search: %w", err))
	}

	results := make([]SearchResult, 0, len(list.Results))
	for _, rec := range list.Results {
		r := SearchResult{
			ID:            rec.ID,
			DOI:           CleanDOI(rec.DOI),
			Title:         rec.Title,
			Year:          rec.PublicationYear,
			CitationCount: rec.CitedByCount,
		}
		if r.Title == "" {
			r.Title = "Unknown title"
		}
		for i, a := range rec.Authorships {
			if i >= 5 {
				break
			}
			r.Authors = append(r.Authors, a.Author.DisplayName)
		}
		if rec.PrimaryLocation != nil && rec.PrimaryLocation.Source != nil {
			r.Journal = rec.PrimaryLocation.Source.DisplayName
		}
		if r.Journal == "" {
			r.Journal = "Unknown journal"
		}
		results = append(results, r)
	}
	return results, nil
}

func toReference(rec workRecord) models.Reference {
	ref := models.Reference{
		DOI:        CleanDOI(rec.DOI),
		Title:      rec.Title,
		Year:       rec.PublicationYear,
		OpenAlexID: rec.ID,
	}
	if rec.PrimaryLocation != nil && rec.PrimaryLocation.Source != nil {
		ref.Journal = rec.PrimaryLocation.Source.DisplayName
		ref.ISSN = rec.PrimaryLocation.Source.ISSN
		ref.Publisher = rec.PrimaryLocation.Source.HostOrganizationName
	}
	for _, a := range rec.Authorships {
		ref.Authors = append(ref.Authors, models.Author{Name: a.Author.DisplayName})
	}
	return ref
}
