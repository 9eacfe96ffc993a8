package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/persistence"
)

// CampaignRepository stores campaigns and the per-project campaign index.
type CampaignRepository struct {
	store persistence.Store
}

// Save persists a campaign, assigning an id and draft status on first save.
// Every mutation stamps updated_at.
func (r *CampaignRepository) Save(ctx context.Context, campaign *models.Campaign) error {
	now := time.Now().UTC()

	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
		campaign.CreatedAt = now
	}

	if campaign.Status == "" {
		campaign.Status = models.CampaignStatusDraft
	}

	campaign.UpdatedAt = now

	key := persistence.Key(persistence.KindCampaign, campaign.ProjectID, campaign.ID)
	if err := putRecord(ctx, r.store, key, campaign); err != nil {
		return err
	}

	return addToIndex(ctx, r.store, persistence.IndexKey(persistence.KindCampaign, campaign.ProjectID), campaign.ID)
}

// GetByID returns the campaign, or persistence.ErrCampaignNotFound.
func (r *CampaignRepository) GetByID(ctx context.Context, projectID, id string) (*models.Campaign, error) {
	key := persistence.Key(persistence.KindCampaign, projectID, id)

	return getRecord[models.Campaign](ctx, r.store, key, persistence.ErrCampaignNotFound)
}

// ListByProject returns every campaign in the project in index order.
func (r *CampaignRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Campaign, error) {
	ids, err := readIndex(ctx, r.store, persistence.IndexKey(persistence.KindCampaign, projectID))
	if err != nil {
		return nil, err
	}

	campaigns := make([]*models.Campaign, 0, len(ids))

	for _, id := range ids {
		campaign, err := r.GetByID(ctx, projectID, id)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}

			return nil, err
		}

		campaigns = append(campaigns, campaign)
	}

	return campaigns, nil
}

// ProjectIDs returns every project that has at least one campaign, sorted.
// Used by maintenance sweeps that must cover all projects.
func (r *CampaignRepository) ProjectIDs(ctx context.Context) ([]string, error) {
	records, err := r.store.ScanByPrefix(ctx, persistence.KindCampaign+":")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})

	for key := range records {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}

		seen[parts[1]] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids, nil
}
