package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/financeflow/financeflow/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrUserNotFound = errors.New("user not found")
var ErrEmailTaken = errors.New("email already registered")

const emailUniqueConstraint = "users_email_key"

type Repo interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByPhone(ctx context.Context, phone string) (User, error)
	UpdateProfile(ctx context.Context, userId int, user User) (User, error)
	UpdatePassword(ctx context.Context, userId int, passwordHash []byte) error
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

const selectUserColumns = `SELECT id, uid, email, password_hash, name, phone, profile_picture, created_at, updated_at FROM users`

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (User, error) {
	query := `INSERT INTO users (uid, email, password_hash, name, phone, profile_picture)
				VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`
	err := u.db.QueryRow(ctx, query,
		user.Uid,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Phone,
		user.ProfilePicture,
	).Scan(&user.Id, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, emailUniqueConstraint) {
			return User{}, ErrEmailTaken
		}
		log.Errorf("failed to create user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	return u.getOne(ctx, selectUserColumns+` WHERE id = $1`, id)
}

func (u *UserRepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return u.getOne(ctx, selectUserColumns+` WHERE uid = $1`, uid)
}

func (u *UserRepoImpl) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return u.getOne(ctx, selectUserColumns+` WHERE email = $1`, email)
}

func (u *UserRepoImpl) GetUserByPhone(ctx context.Context, phone string) (User, error) {
	return u.getOne(ctx, selectUserColumns+` WHERE phone = $1 ORDER BY id LIMIT 1`, phone)
}

func (u *UserRepoImpl) getOne(ctx context.Context, query string, arg any) (User, error) {
	var user User
	err := u.db.QueryRow(ctx, query, arg).
		Scan(
			&user.Id,
			&user.Uid,
			&user.Email,
			&user.PasswordHash,
			&user.Name,
			&user.Phone,
			&user.ProfilePicture,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("user %v not found", arg)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) UpdateProfile(ctx context.Context, userId int, user User) (User, error) {
	query := `UPDATE users SET name = $1, phone = $2, profile_picture = $3, updated_at = now()
				WHERE id = $4 RETURNING updated_at`
	err := u.db.QueryRow(ctx, query,
		user.Name,
		user.Phone,
		user.ProfilePicture,
		userId,
	).Scan(&user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Infof("no rows affected of updating user %d", userId)
		return User{}, ErrUserNotFound
	} else if err != nil {
		err := fmt.Errorf("could not update user: %w", err)
		log.Error(err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) UpdatePassword(ctx context.Context, userId int, passwordHash []byte) error {
	query := `UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`
	result, err := u.db.Exec(ctx, query, passwordHash, userId)
	if err != nil {
		err := fmt.Errorf("could not update password: %w", err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
