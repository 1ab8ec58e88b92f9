package usecase

import (
	"context"
	"fmt"
	"strings"

	"campaignledger/internal/domain"

	"github.com/agnivade/levenshtein"
)

// maxSuggestionDistance bounds how different a name may be to be offered as
// a suggestion.
const maxSuggestionDistance = 3

// CatalogService reads the reference price list.
type CatalogService struct {
	repo domain.CatalogRepository
}

func NewCatalogService(repo domain.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// List returns every catalog entry sorted by name.
func (s *CatalogService) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	return s.repo.List(ctx)
}

// Lookup finds a product by exact name. A miss suggests the closest name.
func (s *CatalogService) Lookup(ctx context.Context, name string) (*domain.CatalogEntry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i], nil
		}
	}

	if suggestion := closestName(entries, name); suggestion != "" {
		return nil, fmt.Errorf("%w: product %q is not in the catalog, did you mean %q?", domain.ErrNotFound, name, suggestion)
	}
	return nil, domain.NotFoundf("product %q is not in the catalog", name)
}

func closestName(entries []domain.CatalogEntry, name string) string {
	best, bestDistance := "", maxSuggestionDistance+1
	for _, e := range entries {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(e.Name))
		if d < bestDistance {
			best, bestDistance = e.Name, d
		}
	}
	return best
}
