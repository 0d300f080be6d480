// internal/models/reference.go
package models

// Author is a single contributor to a work.
type Author struct {
	Name        string `json:"name"`
	ORCID       string `json:"orcid,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
}

// Reference is one bibliography entry to be analyzed. It may arrive
// with only a DOI, only a title, or a partially hydrated record.
type Reference struct {
	DOI        string   `json:"doi,omitempty"`
	Title      string   `json:"title"`
	Authors    []Author `json:"authors,omitempty"`
	Journal    string   `json:"journal,omitempty"`
	Publisher  string   `json:"publisher,omitempty"`
	ISSN       []string `json:"issn,omitempty"`
	Year       int      `json:"year,omitempty"`
	OpenAlexID string   `json:"openAlexId,omitempty"`
}

// HasDOI reports whether the reference carries a usable DOI.
func (r Reference) HasDOI() bool {
	return r.DOI != ""
}

// DisplayName returns the best human-readable identifier for logs.
func (r Reference) DisplayName() string {
	if r.Title != "" {
		return r.Title
	}
	return r.DOI
}
