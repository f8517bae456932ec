package vault

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemorySecretStoreCRUD(t *testing.T) {
	store := NewMemorySecretStore()

	_, ok, err := store.Get("k1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(Secret{Key: "k1", Value: []byte("v1")}))
	got, ok, err := store.Get("k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), got.Value)
	require.EqualValues(t, 1, got.Version)

	require.NoError(t, store.Set(Secret{Key: "k1", Value: []byte("v2")}))
	got, _, err = store.Get("k1")
	require.NoError(t, err)
	require.EqualValues(t, 2, got.Version, "version must bump on overwrite")

	require.NoError(t, store.Set(Secret{Key: "prefix/a", Value: []byte("a")}))
	require.NoError(t, store.Set(Secret{Key: "prefix/b", Value: []byte("b")}))
	list, err := store.List("prefix/")
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, store.Delete("k1"))
	_, ok, err = store.Get("k1")
	require.NoError(t, err)
	require.False(t, ok)
}
