package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/doccollab/internal/apperrors"
)

func TestStore(t *testing.T) {
	t.Run("get absent key", func(t *testing.T) {
		s := New()

		_, err := s.Get(t.Context(), "accessToken")

		require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)
	})

	t.Run("set and get", func(t *testing.T) {
		s := New()

		require.NoError(t, s.Set(t.Context(), "accessToken", "ACC1"))
		require.NoError(t, s.Set(t.Context(), "accessToken", "ACC2"))

		got, err := s.Get(t.Context(), "accessToken")
		require.NoError(t, err)
		require.Equal(t, "ACC2", got, "second set should overwrite the first one")
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Set(t.Context(), "refreshToken", "REF1"))

		require.NoError(t, s.Clear(t.Context()))
		require.NoError(t, s.Clear(t.Context()), "clearing empty store is not an error")

		_, err := s.Get(t.Context(), "refreshToken")
		require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)
	})
}
