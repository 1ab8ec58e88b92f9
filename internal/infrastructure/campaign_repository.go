package infrastructure

import (
	"context"
	"errors"

	"campaignledger/internal/domain"
	"campaignledger/pkg/logger"
)

// errUnchanged aborts an Update without writing.
var errUnchanged = errors.New("collection unchanged")

// implements domain.CampaignRepository on a JSON collection
type CampaignRepository struct {
	collection *Collection[[]campaignRecord]
	logger     *logger.Logger
}

// creates a new campaign repository backed by <name>.json
func NewCampaignRepository(store *JSONStore, name string, logger *logger.Logger) *CampaignRepository {
	return &CampaignRepository{
		collection: NewCollection(store, name, func() []campaignRecord { return []campaignRecord{} }),
		logger:     logger,
	}
}

// List returns campaigns in storage order. Records still in a legacy shape
// are written back once in canonical form.
func (r *CampaignRepository) List(ctx context.Context) ([]domain.Campaign, error) {
	var loaded []campaignRecord
	err := r.collection.Update(ctx, func(records []campaignRecord) ([]campaignRecord, error) {
		loaded = records
		if !campaignsMigrated(records) {
			return nil, errUnchanged
		}
		return records, nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return nil, err
	}
	if err == nil {
		r.logger.WithContext(ctx).WithField("count", len(loaded)).Info("Normalized legacy campaign records")
	}
	return unwrapCampaigns(loaded), nil
}

func (r *CampaignRepository) Update(ctx context.Context, fn func([]domain.Campaign) ([]domain.Campaign, error)) error {
	return r.collection.Update(ctx, func(records []campaignRecord) ([]campaignRecord, error) {
		next, err := fn(unwrapCampaigns(records))
		if err != nil {
			return nil, err
		}
		out := make([]campaignRecord, len(next))
		for i, c := range next {
			out[i] = campaignRecord{Campaign: c}
		}
		return out, nil
	})
}

func campaignsMigrated(records []campaignRecord) bool {
	for _, r := range records {
		if r.migrated {
			return true
		}
	}
	return false
}

func unwrapCampaigns(records []campaignRecord) []domain.Campaign {
	campaigns := make([]domain.Campaign, len(records))
	for i, r := range records {
		campaigns[i] = r.Campaign
	}
	return campaigns
}
