// internal/retraction/registry.go

// Package retraction resolves whether a cited work has been withdrawn
// from the scientific record, using two independent registries.
package retraction

import (
	"context"

	"predcheck/internal/models"
)

// RegistryClient is one retraction registry. A lookup error means "no
// evidence from this registry", never a failed analysis.
type RegistryClient interface {
	Name() string
	Check(ctx context.Context, doi string) (models.RetractionStatus, error)
}
