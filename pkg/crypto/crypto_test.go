package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPasswordWithCost("secret", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "secret", hash)

	require.True(t, VerifyPassword(hash, "secret"))
	require.False(t, VerifyPassword(hash, "wrong"))
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("   ")
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestVerifyPasswordEmptyHash(t *testing.T) {
	require.False(t, VerifyPassword("", "anything"))
}

func TestHashPasswordWithCostOutOfRangeUsesDefault(t *testing.T) {
	hash, err := HashPasswordWithCost("secret", 99)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, cost)
}
