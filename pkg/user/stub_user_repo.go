package user

import (
	"context"
)

type StubUserRepository struct {
	nextId int
	data   map[int]User
}

func NewStubUserRepository() *StubUserRepository {
	return &StubUserRepository{nextId: 0, data: map[int]User{}}
}

func (s *StubUserRepository) CreateUser(ctx context.Context, user User) (User, error) {
	for _, existing := range s.data {
		if existing.Email == user.Email {
			return User{}, ErrEmailTaken
		}
	}
	s.nextId++
	user.Id = s.nextId
	s.data[s.nextId] = user
	return user, nil
}

func (s *StubUserRepository) GetUser(ctx context.Context, id int) (User, error) {
	user, ok := s.data[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *StubUserRepository) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return s.find(func(u User) bool { return u.Uid == uid })
}

func (s *StubUserRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.find(func(u User) bool { return u.Email == email })
}

func (s *StubUserRepository) GetUserByPhone(ctx context.Context, phone string) (User, error) {
	return s.find(func(u User) bool { return phone != "" && u.Phone == phone })
}

func (s *StubUserRepository) find(match func(User) bool) (User, error) {
	for id := 1; id <= s.nextId; id++ {
		if u, ok := s.data[id]; ok && match(u) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *StubUserRepository) UpdateProfile(ctx context.Context, userId int, user User) (User, error) {
	existing, ok := s.data[userId]
	if !ok {
		return User{}, ErrUserNotFound
	}
	existing.Name = user.Name
	existing.Phone = user.Phone
	existing.ProfilePicture = user.ProfilePicture
	s.data[userId] = existing
	return existing, nil
}

func (s *StubUserRepository) UpdatePassword(ctx context.Context, userId int, passwordHash []byte) error {
	existing, ok := s.data[userId]
	if !ok {
		return ErrUserNotFound
	}
	existing.PasswordHash = passwordHash
	s.data[userId] = existing
	return nil
}

func (s *StubUserRepository) Cleanup() {
	s.nextId = 0
	s.data = map[int]User{}
}
