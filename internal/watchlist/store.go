// internal/watchlist/store.go

// Package watchlist provides the curated predatory-publishing watchlists
// that the scorer checks references against.
package watchlist

import "context"

// Category identifies one watchlist.
type Category string

const (
	// CategoryBeallsPublishers is Beall's list of predatory publishers.
	CategoryBeallsPublishers Category = "bealls"

	// CategoryStopPredatoryPublishers is the Stop Predatory Journals
	// publisher list.
	CategoryStopPredatoryPublishers Category = "stop-predatory-journals"

	// CategoryPredatoryJournals is the curated predatory journal title list.
	CategoryPredatoryJournals Category = "predatory-journals"

	// CategoryHijackedJournals lists legitimate titles known to be
	// impersonated by fraudulent sites.
	CategoryHijackedJournals Category = "hijacked-journals"

	// CategoryScopusDiscontinued lists ISSNs whose Scopus coverage was
	// discontinued.
	CategoryScopusDiscontinued Category = "scopus-discontinued"
)

// Entry is one watchlist row. Name carries the publisher name, journal
// title, or legitimate title depending on the category; the remaining
// fields are populated only where the category defines them.
type Entry struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Source             string `json:"source,omitempty"`
	FakeWebsite        string `json:"fakeWebsite,omitempty"`
	LegitimateISSN     string `json:"legitimateIssn,omitempty"`
	ISSN               string `json:"issn,omitempty"`
	DiscontinuedYear   int    `json:"discontinuedYear,omitempty"`
	DiscontinuedReason string `json:"discontinuedReason,omitempty"`
}

// Store serves watchlist entries to the scorer.
type Store interface {
	// Lookup returns every entry in a category.
	Lookup(ctx context.Context, category Category) ([]Entry, error)

	// LookupISSN returns the discontinued-coverage entry exactly matching
	// the ISSN, or nil when none exists.
	LookupISSN(ctx context.Context, issn string) (*Entry, error)
}
