package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/camp-autoscheduler/internal/models"
	appErrors "github.com/noah-isme/camp-autoscheduler/pkg/errors"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		delete(r.entries, key)
	}
	return nil
}

func sampleProposal(now time.Time) models.Proposal {
	return models.Proposal{
		ID:     "4f9b7f1e-7c53-4d0a-9d55-32a2b8f0e0a1",
		CampID: "camp-1",
		Mode:   models.ScheduleModeNew,
		Status: models.ProposalStatusValid,
		Assignments: []models.ProposalAssignment{{
			EventID:   "e1",
			SessionID: "s-a",
			StartsAt:  now.Add(time.Hour),
			EndsAt:    now.Add(2 * time.Hour),
		}},
		CreatedAt: now,
		ExpiresAt: now.Add(30 * time.Minute),
	}
}

func TestMemoryProposalStoreExpires(t *testing.T) {
	now := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	store := NewMemoryProposalStore()
	store.now = func() time.Time { return now }

	proposal := sampleProposal(now)
	require.NoError(t, store.Save(context.Background(), proposal))

	got, err := store.Get(context.Background(), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, "camp-1", got.CampID)

	now = now.Add(31 * time.Minute)
	_, err = store.Get(context.Background(), proposal.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Empty(t, store.items)
}

func TestMemoryProposalStoreReturnsCopies(t *testing.T) {
	store := NewMemoryProposalStore()
	proposal := sampleProposal(time.Now())
	require.NoError(t, store.Save(context.Background(), proposal))

	got, err := store.Get(context.Background(), proposal.ID)
	require.NoError(t, err)
	got.Status = models.ProposalStatusApplied

	again, err := store.Get(context.Background(), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusValid, again.Status)
}

func TestCacheProposalStoreRoundTrip(t *testing.T) {
	now := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	repo := newMemoryCacheRepo()
	store := NewCacheProposalStore(NewCacheService(repo, nil, time.Minute, nil, true))
	store.now = func() time.Time { return now }

	proposal := sampleProposal(now)
	require.NoError(t, store.Save(context.Background(), proposal))
	assert.Equal(t, 30*time.Minute, repo.ttls[proposalKeyPrefix+proposal.ID])

	got, err := store.Get(context.Background(), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.Assignments[0].EventID, got.Assignments[0].EventID)
	assert.True(t, proposal.Assignments[0].StartsAt.Equal(got.Assignments[0].StartsAt))

	require.NoError(t, store.Delete(context.Background(), proposal.ID))
	_, err = store.Get(context.Background(), proposal.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCacheProposalStoreRejectsExpired(t *testing.T) {
	now := time.Now()
	store := NewCacheProposalStore(NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true))
	proposal := sampleProposal(now)
	proposal.ExpiresAt = now.Add(-time.Second)

	err := store.Save(context.Background(), proposal)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCacheProposalStoreDisabledCacheMisses(t *testing.T) {
	store := NewCacheProposalStore(NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, false))
	proposal := sampleProposal(time.Now())
	require.NoError(t, store.Save(context.Background(), proposal))

	_, err := store.Get(context.Background(), proposal.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
