package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
	"github.com/PrinceDelali/kraloan-gobackend/internal/models"
	"github.com/PrinceDelali/kraloan-gobackend/internal/storage"
)

// conflictStore makes UpdateGroup lose the optimistic write race a fixed
// number of times before letting the write through.
type conflictStore struct {
	storage.Store
	failures int
	calls    int
}

func (s *conflictStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	s.calls++
	if s.calls <= s.failures {
		return apperr.New(apperr.Conflict, "group was modified concurrently")
	}
	return s.Store.UpdateGroup(ctx, group)
}

func TestMutateGroupRetriesLostWriteRace(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "Ama", "ama@example.com")
	stranger := env.createUser(t, "Kofi", "kofi@example.com")
	group := env.createGroup(t, creator)

	store := &conflictStore{Store: env.store, failures: maxWriteRetries - 1}
	groups := NewGroupService(store, env.notifier)

	require.NoError(t, groups.RequestToJoin(context.Background(), stranger, group.ID.Hex()))
	assert.Equal(t, maxWriteRetries, store.calls)

	got, err := env.store.GetGroup(context.Background(), group.ID.Hex())
	require.NoError(t, err)
	assert.True(t, got.HasPendingRequest(stranger))
}

func TestMutateGroupConflictAfterExhaustedRetries(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "Ama", "ama@example.com")
	stranger := env.createUser(t, "Kofi", "kofi@example.com")
	group := env.createGroup(t, creator)

	store := &conflictStore{Store: env.store, failures: maxWriteRetries}
	groups := NewGroupService(store, env.notifier)

	err := groups.RequestToJoin(context.Background(), stranger, group.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	assert.Equal(t, maxWriteRetries, store.calls)

	got, err := env.store.GetGroup(context.Background(), group.ID.Hex())
	require.NoError(t, err)
	assert.False(t, got.HasPendingRequest(stranger))
}
