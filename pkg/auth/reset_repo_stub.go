package auth

import (
	"context"
	"time"
)

type ResetRepoStub struct {
	nextId int
	resets map[int]PasswordReset
}

func NewResetRepoStub() *ResetRepoStub {
	return &ResetRepoStub{resets: map[int]PasswordReset{}}
}

func (s *ResetRepoStub) Store(ctx context.Context, reset PasswordReset) (PasswordReset, error) {
	s.nextId++
	reset.Id = s.nextId
	s.resets[reset.Id] = reset
	return reset, nil
}

func (s *ResetRepoStub) FindValid(ctx context.Context, tokenHash string, now time.Time) (PasswordReset, error) {
	for _, reset := range s.resets {
		if reset.TokenHash == tokenHash && reset.ExpiresAt.After(now) {
			return reset, nil
		}
	}
	return PasswordReset{}, ErrInvalidResetToken
}

func (s *ResetRepoStub) DeleteForUser(ctx context.Context, userId int) error {
	for id, reset := range s.resets {
		if reset.UserId == userId {
			delete(s.resets, id)
		}
	}
	return nil
}

func (s *ResetRepoStub) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	for id, reset := range s.resets {
		if !reset.ExpiresAt.After(now) {
			delete(s.resets, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *ResetRepoStub) Count() int {
	return len(s.resets)
}

func (s *ResetRepoStub) Cleanup() {
	s.nextId = 0
	s.resets = map[int]PasswordReset{}
}
