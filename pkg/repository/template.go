package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/persistence"
)

// TemplateRepository stores message templates.
type TemplateRepository struct {
	store persistence.Store
}

// Save persists a template, assigning an id on first save.
func (r *TemplateRepository) Save(ctx context.Context, template *models.MessageTemplate) error {
	now := time.Now().UTC()

	if template.ID == "" {
		template.ID = uuid.New().String()
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	key := persistence.Key(persistence.KindTemplate, template.ProjectID, template.ID)
	if err := putRecord(ctx, r.store, key, template); err != nil {
		return err
	}

	return addToIndex(ctx, r.store, persistence.IndexKey(persistence.KindTemplate, template.ProjectID), template.ID)
}

// GetByID returns the template, or persistence.ErrTemplateNotFound.
func (r *TemplateRepository) GetByID(ctx context.Context, projectID, id string) (*models.MessageTemplate, error) {
	key := persistence.Key(persistence.KindTemplate, projectID, id)

	return getRecord[models.MessageTemplate](ctx, r.store, key, persistence.ErrTemplateNotFound)
}
