package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/doccollab/internal/apperrors"
	"github.com/nkiryanov/doccollab/internal/testutil"
)

func Test_Store(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("new requires device id", func(t *testing.T) {
		_, err := New(pg.Pool, uuid.Nil)
		require.Error(t, err)
	})

	t.Run("get absent key", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := Store{DB: tx, DeviceID: uuid.New()}

			_, err := s.Get(t.Context(), "accessToken")

			require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)
		})
	})

	t.Run("set overwrites", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := Store{DB: tx, DeviceID: uuid.New()}

			require.NoError(t, s.Set(t.Context(), "accessToken", "ACC1"))
			require.NoError(t, s.Set(t.Context(), "accessToken", "ACC2"))
			require.Equal(t, map[string]string{"accessToken": "ACC2"}, testutil.DeviceCredentials(t, tx, s.DeviceID), "one row per key")

			got, err := s.Get(t.Context(), "accessToken")
			require.NoError(t, err)
			assert.Equal(t, "ACC2", got)
		})
	})

	t.Run("devices are isolated", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			laptop := Store{DB: tx, DeviceID: uuid.New()}
			desktop := Store{DB: tx, DeviceID: uuid.New()}

			require.NoError(t, laptop.Set(t.Context(), "refreshToken", "REF-laptop"))
			require.NoError(t, desktop.Set(t.Context(), "refreshToken", "REF-desktop"))

			require.NoError(t, laptop.Clear(t.Context()))
			require.Empty(t, testutil.DeviceCredentials(t, tx, laptop.DeviceID))
			require.Equal(t, map[string]string{"refreshToken": "REF-desktop"}, testutil.DeviceCredentials(t, tx, desktop.DeviceID))

			_, err := laptop.Get(t.Context(), "refreshToken")
			require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)

			got, err := desktop.Get(t.Context(), "refreshToken")
			require.NoError(t, err)
			assert.Equal(t, "REF-desktop", got, "clear must touch only own device keys")
		})
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := Store{DB: tx, DeviceID: uuid.New()}

			require.NoError(t, s.Clear(t.Context()))
			require.NoError(t, s.Clear(t.Context()))
		})
	})
}
