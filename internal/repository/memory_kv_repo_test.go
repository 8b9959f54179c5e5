package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKeyValueRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryKeyValueRepository()

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	value := []byte("glpat-1")
	require.NoError(t, repo.Set(ctx, "credential:abc", value))

	value[0] = 'X'
	got, err := repo.Get(ctx, "credential:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("glpat-1"), got)

	require.NoError(t, repo.Set(ctx, "credential:abc", []byte("glpat-2")))
	got, err = repo.Get(ctx, "credential:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("glpat-2"), got)

	require.NoError(t, repo.Delete(ctx, "credential:abc"))
	require.NoError(t, repo.Delete(ctx, "credential:abc"))

	_, err = repo.Get(ctx, "credential:abc")
	assert.ErrorIs(t, err, ErrNotFound)
}
