package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	notemodel "CollabNotes/module/note/model"
	"CollabNotes/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.Create(ctx, &notemodel.Note{CandidateID: "c1", Author: "u1", Content: "hi @bob", Mentions: []string{"u2"}})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.IsEdited)
	assert.False(t, created.CreatedAt.IsZero())

	updated, err := s.UpdateContent(ctx, created.ID, "hi @bob @carol", []string{"u2", "u3"})
	require.NoError(t, err)
	assert.True(t, updated.IsEdited)
	require.NotNil(t, updated.EditedAt)
	assert.Equal(t, []string{"u2", "u3"}, updated.Mentions)

	// returned copies are detached from the store
	updated.Mentions[0] = "zzz"
	again, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "u2", again.Mentions[0])

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.FindByID(ctx, created.ID)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.True(t, errors.Is(s.Delete(ctx, created.ID), errs.ErrNotFound))
	_, err = s.UpdateContent(ctx, created.ID, "x", nil)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestMemoryStoreToggleHighlightConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	n, err := s.Create(ctx, &notemodel.Note{CandidateID: "c1", Author: "u1", Content: "x"})
	require.NoError(t, err)

	const flips = 101
	var wg sync.WaitGroup
	for i := 0; i < flips; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ToggleHighlight(ctx, n.ID)
		}()
	}
	wg.Wait()

	got, err := s.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsHighlighted, "odd number of flips ends highlighted")

	_, err = s.ToggleHighlight(ctx, "missing")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}
