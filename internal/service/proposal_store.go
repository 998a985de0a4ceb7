package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/camp-autoscheduler/internal/models"
	appErrors "github.com/noah-isme/camp-autoscheduler/pkg/errors"
)

// ProposalStore keeps calculated proposals until they expire.
type ProposalStore interface {
	Save(ctx context.Context, proposal models.Proposal) error
	Get(ctx context.Context, id string) (*models.Proposal, error)
	Delete(ctx context.Context, id string) error
}

var errProposalNotFound = appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")

// MemoryProposalStore is a process local ProposalStore.
type MemoryProposalStore struct {
	mu    sync.RWMutex
	items map[string]models.Proposal
	now   func() time.Time
}

// NewMemoryProposalStore builds an empty in-memory store.
func NewMemoryProposalStore() *MemoryProposalStore {
	return &MemoryProposalStore{items: make(map[string]models.Proposal), now: time.Now}
}

func (s *MemoryProposalStore) Save(_ context.Context, proposal models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ID] = proposal
	return nil
}

func (s *MemoryProposalStore) Get(ctx context.Context, id string) (*models.Proposal, error) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errProposalNotFound
	}
	if proposal.Expired(s.now()) {
		_ = s.Delete(ctx, id)
		return nil, errProposalNotFound
	}
	return &proposal, nil
}

func (s *MemoryProposalStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

const proposalKeyPrefix = "autoscheduler:proposal:"

// CacheProposalStore keeps proposals in the shared cache so every replica can apply them.
type CacheProposalStore struct {
	cache *CacheService
	now   func() time.Time
}

// NewCacheProposalStore builds a store on top of the cache service.
func NewCacheProposalStore(cache *CacheService) *CacheProposalStore {
	return &CacheProposalStore{cache: cache, now: time.Now}
}

func (s *CacheProposalStore) Save(ctx context.Context, proposal models.Proposal) error {
	ttl := proposal.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "proposal already expired")
	}
	if err := s.cache.Set(ctx, proposalKeyPrefix+proposal.ID, proposal, ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store proposal")
	}
	return nil
}

func (s *CacheProposalStore) Get(ctx context.Context, id string) (*models.Proposal, error) {
	var proposal models.Proposal
	hit, err := s.cache.Get(ctx, proposalKeyPrefix+id, &proposal)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	if !hit || proposal.Expired(s.now()) {
		return nil, errProposalNotFound
	}
	return &proposal, nil
}

func (s *CacheProposalStore) Delete(ctx context.Context, id string) error {
	return s.cache.Invalidate(ctx, proposalKeyPrefix+id)
}
