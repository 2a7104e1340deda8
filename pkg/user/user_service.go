package user

import (
	"context"
	"fmt"
)

type Service interface {
	GetCurrentUser(ctx context.Context) (User, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByPhone(ctx context.Context, phone string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateProfile(ctx context.Context, update ProfileUpdate) (User, error)
	UpdatePassword(ctx context.Context, userId int, passwordHash []byte) error
}

type UserServiceImpl struct {
	repo Repo
}

func NewUserService(repo Repo) *UserServiceImpl {
	return &UserServiceImpl{repo: repo}
}

func (u *UserServiceImpl) GetCurrentUser(ctx context.Context) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return u.repo.GetUser(ctx, userId)
}

func (u *UserServiceImpl) GetUser(ctx context.Context, id int) (User, error) {
	return u.repo.GetUser(ctx, id)
}

func (u *UserServiceImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return u.repo.GetUserByUid(ctx, uid)
}

func (u *UserServiceImpl) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return u.repo.GetUserByEmail(ctx, email)
}

func (u *UserServiceImpl) GetUserByPhone(ctx context.Context, phone string) (User, error) {
	return u.repo.GetUserByPhone(ctx, phone)
}

func (u *UserServiceImpl) CreateUser(ctx context.Context, user User) (User, error) {
	return u.repo.CreateUser(ctx, user)
}

func (u *UserServiceImpl) UpdateProfile(ctx context.Context, update ProfileUpdate) (User, error) {
	current, err := u.GetCurrentUser(ctx)
	if err != nil {
		return User{}, err
	}
	return u.repo.UpdateProfile(ctx, current.Id, update.applyTo(current))
}

func (u *UserServiceImpl) UpdatePassword(ctx context.Context, userId int, passwordHash []byte) error {
	return u.repo.UpdatePassword(ctx, userId, passwordHash)
}
