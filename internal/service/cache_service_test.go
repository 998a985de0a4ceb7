package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCacheRepo struct{ *memoryCacheRepo }

func (failingCacheRepo) Get(context.Context, string, interface{}) error {
	return errors.New("connection refused")
}

func TestCacheServiceReportsHitsAndMisses(t *testing.T) {
	svc := NewCacheService(newMemoryCacheRepo(), NewMetricsService(), 0, nil, true)
	require.True(t, svc.Enabled())

	var out map[string]int
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "k", map[string]int{"a": 1}, 0))
	hit, err = svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, out["a"])

	require.NoError(t, svc.Invalidate(context.Background(), "k"))
	hit, _ = svc.Get(context.Background(), "k", &out)
	assert.False(t, hit)
}

func TestCacheServiceDefaultTTL(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 5*time.Minute, nil, true)
	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.Equal(t, 5*time.Minute, repo.ttls["k"])
}

func TestCacheServicePropagatesBackendErrors(t *testing.T) {
	svc := NewCacheService(failingCacheRepo{newMemoryCacheRepo()}, nil, 0, nil, true)
	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	assert.False(t, hit)
	assert.Error(t, err)
}
