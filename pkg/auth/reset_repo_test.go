package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/financeflow/financeflow/internal/test_utils"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, *ResetRepoImpl, int) {
	background := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(background)
		require.NoError(t, err)
	})
	userId := test_utils.CreateTestUser(t, background, db)
	return background, NewResetRepo(db), userId
}

func TestResetRepoImpl(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("should find only unexpired reset by hash", func(t *testing.T) {
		// given
		c, repo, userId := setupTestRepository(t)
		stored, err := repo.Store(c, PasswordReset{UserId: userId, TokenHash: hashToken("token"), ExpiresAt: now.Add(time.Hour)})
		require.NoError(t, err)

		// when
		found, err := repo.FindValid(c, hashToken("token"), now)
		_, expiredErr := repo.FindValid(c, hashToken("token"), now.Add(2*time.Hour))
		_, unknownErr := repo.FindValid(c, hashToken("other"), now)

		// then
		require.NoError(t, err)
		assert.Equal(t, stored.Id, found.Id)
		assert.Equal(t, userId, found.UserId)
		assert.ErrorIs(t, expiredErr, ErrInvalidResetToken)
		assert.ErrorIs(t, unknownErr, ErrInvalidResetToken)
	})

	t.Run("should delete all resets of user", func(t *testing.T) {
		c, repo, userId := setupTestRepository(t)
		for _, token := range []string{"a", "b"} {
			_, err := repo.Store(c, PasswordReset{UserId: userId, TokenHash: hashToken(token), ExpiresAt: now.Add(time.Hour)})
			require.NoError(t, err)
		}

		require.NoError(t, repo.DeleteForUser(c, userId))

		_, err := repo.FindValid(c, hashToken("a"), now)
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("should delete only expired resets", func(t *testing.T) {
		// given
		c, repo, userId := setupTestRepository(t)
		_, err := repo.Store(c, PasswordReset{UserId: userId, TokenHash: hashToken("old"), ExpiresAt: now.Add(-time.Hour)})
		require.NoError(t, err)
		_, err = repo.Store(c, PasswordReset{UserId: userId, TokenHash: hashToken("new"), ExpiresAt: now.Add(time.Hour)})
		require.NoError(t, err)

		// when
		deleted, err := repo.DeleteExpired(c, now)

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
		_, err = repo.FindValid(c, hashToken("new"), now)
		assert.NoError(t, err)
	})
}
