package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidResetToken = errors.New("invalid or expired reset token")

type PasswordReset struct {
	Id        int
	UserId    int
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type ResetRepo interface {
	Store(ctx context.Context, reset PasswordReset) (PasswordReset, error)
	// FindValid returns the reset with tokenHash that has not expired at now.
	FindValid(ctx context.Context, tokenHash string, now time.Time) (PasswordReset, error)
	// DeleteForUser removes every pending reset of the user.
	DeleteForUser(ctx context.Context, userId int) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type ResetRepoImpl struct {
	db *pgxpool.Pool
}

func NewResetRepo(db *pgxpool.Pool) *ResetRepoImpl {
	return &ResetRepoImpl{db: db}
}

func (r *ResetRepoImpl) Store(ctx context.Context, reset PasswordReset) (PasswordReset, error) {
	query := `INSERT INTO password_resets (user_id, token_hash, expires_at)
				VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, reset.UserId, reset.TokenHash, reset.ExpiresAt).
		Scan(&reset.Id, &reset.CreatedAt)
	if err != nil {
		err := fmt.Errorf("could not store password reset: %w", err)
		log.Error(err)
		return PasswordReset{}, err
	}
	return reset, nil
}

func (r *ResetRepoImpl) FindValid(ctx context.Context, tokenHash string, now time.Time) (PasswordReset, error) {
	query := `SELECT id, user_id, token_hash, expires_at, created_at
				FROM password_resets WHERE token_hash = $1 AND expires_at > $2`
	var reset PasswordReset
	err := r.db.QueryRow(ctx, query, tokenHash, now).
		Scan(&reset.Id, &reset.UserId, &reset.TokenHash, &reset.ExpiresAt, &reset.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PasswordReset{}, ErrInvalidResetToken
	} else if err != nil {
		err := fmt.Errorf("could not find password reset: %w", err)
		log.Error(err)
		return PasswordReset{}, err
	}
	return reset, nil
}

func (r *ResetRepoImpl) DeleteForUser(ctx context.Context, userId int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM password_resets WHERE user_id = $1`, userId)
	if err != nil {
		err := fmt.Errorf("could not delete password resets of user %d: %w", userId, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *ResetRepoImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM password_resets WHERE expires_at <= $1`, now)
	if err != nil {
		err := fmt.Errorf("could not delete expired password resets: %w", err)
		log.Error(err)
		return 0, err
	}
	return result.RowsAffected(), nil
}
