package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyRingRotationRetiresButKeepsVerifying(t *testing.T) {
	ring, err := NewKeyRing("HS256", 32, time.Hour)
	require.NoError(t, err)

	first := ring.Current()
	require.NotNil(t, first)
	require.True(t, ring.Valid(first.ID))

	secondID, err := ring.Rotate("")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, secondID)

	require.Equal(t, secondID, ring.Current().ID)
	require.True(t, ring.Valid(first.ID), "retired key must still verify during the overlap window")
	require.True(t, ring.Valid(secondID))
}

func TestKeyRingPurgesExpiredKeysOnRotate(t *testing.T) {
	ring, err := NewKeyRing("HS256", 32, time.Millisecond)
	require.NoError(t, err)
	first := ring.Current()

	_, err = ring.Rotate("")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, err = ring.Rotate("")
	require.NoError(t, err)

	require.False(t, ring.Valid(first.ID), "key must be purged once its overlap window has elapsed")
	_, ok := ring.Lookup(first.ID)
	require.False(t, ok)
}

func TestSigningKeyWipeZeroesSecret(t *testing.T) {
	k, err := newSigningKey("HS256", 16)
	require.NoError(t, err)
	require.Len(t, k.secret, 16)

	k.Wipe()
	require.Nil(t, k.secret)
}
