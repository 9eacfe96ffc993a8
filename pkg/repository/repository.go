// Package repository provides typed repositories over the key-addressed
// record store, including the hand-maintained ordered-id indexes.
package repository

import (
	"context"
	"encoding/json"

	"github.com/guestflow/guestflow/pkg/persistence"
)

// Repositories bundles every typed repository over one store.
type Repositories struct {
	Guests      *GuestRepository
	Chatflows   *ChatflowRepository
	Campaigns   *CampaignRepository
	Executions  *ExecutionRepository
	Sessions    *SessionRepository
	Invitations *InvitationRepository
	Templates   *TemplateRepository
	Messages    *MessageRepository
}

// New creates the full repository set over the given store.
func New(store persistence.Store) *Repositories {
	return &Repositories{
		Guests:      &GuestRepository{store: store},
		Chatflows:   &ChatflowRepository{store: store},
		Campaigns:   &CampaignRepository{store: store},
		Executions:  &ExecutionRepository{store: store},
		Sessions:    &SessionRepository{store: store},
		Invitations: &InvitationRepository{store: store},
		Templates:   &TemplateRepository{store: store},
		Messages:    &MessageRepository{store: store},
	}
}

func getRecord[T any](ctx context.Context, store persistence.Store, key string, notFound error) (*T, error) {
	body, err := store.Get(ctx, key)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, notFound
		}

		return nil, err
	}

	var record T
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, persistence.NewStoreError("Decode", key, err)
	}

	return &record, nil
}

func putRecord(ctx context.Context, store persistence.Store, key string, record any) error {
	body, err := json.Marshal(record)
	if err != nil {
		return persistence.NewStoreError("Encode", key, err)
	}

	return store.Set(ctx, key, body)
}

// No atomic multi-key transaction is assumed: indexes are ordinary records
// holding ordered id arrays, updated after the entity record itself.
func addToIndex(ctx context.Context, store persistence.Store, indexKey, id string) error {
	ids, err := readIndex(ctx, store, indexKey)
	if err != nil {
		return err
	}

	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}

	return putRecord(ctx, store, indexKey, append(ids, id))
}

func removeFromIndex(ctx context.Context, store persistence.Store, indexKey, id string) error {
	ids, err := readIndex(ctx, store, indexKey)
	if err != nil {
		return err
	}

	kept := ids[:0]

	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}

	return putRecord(ctx, store, indexKey, kept)
}

func readIndex(ctx context.Context, store persistence.Store, indexKey string) ([]string, error) {
	body, err := store.Get(ctx, indexKey)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, persistence.NewStoreError("Decode", indexKey, err)
	}

	return ids, nil
}
