package test_utils

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// CreateTestUser inserts a user row that transactions and budgets can reference.
func CreateTestUser(t *testing.T, ctx context.Context, db *pgxpool.Pool) int {
	t.Helper()
	uid := uuid.NewString()
	var id int
	err := db.QueryRow(ctx,
		`INSERT INTO users (uid, email, password_hash, name) VALUES ($1, $2, $3, $4) RETURNING id`,
		uid, fmt.Sprintf("%s@example.com", uid), []byte("not-a-hash"), "Test User",
	).Scan(&id)
	require.NoError(t, err)
	return id
}
