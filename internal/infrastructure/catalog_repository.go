package infrastructure

import (
	"context"
	"sort"

	"campaignledger/internal/domain"
)

// implements domain.CatalogRepository over the products_pricing file, a JSON
// object keyed by product name. The ledger never writes it.
type CatalogRepository struct {
	collection *Collection[map[string]catalogRecord]
}

func NewCatalogRepository(store *JSONStore, name string) *CatalogRepository {
	return &CatalogRepository{
		collection: NewCollection(store, name, func() map[string]catalogRecord { return map[string]catalogRecord{} }),
	}
}

// List returns entries sorted by name.
func (r *CatalogRepository) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	records, err := r.collection.Load(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.CatalogEntry, 0, len(records))
	for name, rec := range records {
		entries = append(entries, rec.entry(name))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
