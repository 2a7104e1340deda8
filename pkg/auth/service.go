package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/financeflow/financeflow/internal/event_bus"
	"github.com/financeflow/financeflow/internal/utils"
	"github.com/financeflow/financeflow/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrInvalidEmail = errors.New("invalid email address")
var ErrInvalidResetChannel = errors.New("invalid reset method")
var ErrMissingResetAddress = errors.New("reset address is required")

const resetTTL = time.Hour

// smsCodeLength is the number of token characters sent by SMS; the code alone redeems the reset.
const smsCodeLength = 8

type Registration struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	Tokens TokenPair
	User   user.User
}

type Service interface {
	Register(ctx context.Context, registration Registration) (Session, error)
	Login(ctx context.Context, email, password string) (Session, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
	// Authenticate resolves the user behind an access token.
	Authenticate(ctx context.Context, accessToken string) (user.User, error)
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
	// ForgotPassword starts a reset for the account behind address. Unknown addresses are not reported.
	ForgotPassword(ctx context.Context, channel event_bus.ResetChannel, address string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type ServiceImpl struct {
	users    user.Service
	resets   ResetRepo
	tokens   *TokenManager
	eventBus *event_bus.EventBus
	clock    utils.Clock
	hashCost int
}

func NewService(users user.Service, resets ResetRepo, tokens *TokenManager, eventBus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		users:    users,
		resets:   resets,
		tokens:   tokens,
		eventBus: eventBus,
		clock:    clock,
		hashCost: bcrypt.DefaultCost,
	}
}

func (s *ServiceImpl) Register(ctx context.Context, registration Registration) (Session, error) {
	email := strings.TrimSpace(registration.Email)
	if err := user.ValidateEmail(email); err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidEmail, err)
	}
	hash, err := s.hash(registration.Password)
	if err != nil {
		return Session{}, err
	}

	created, err := s.users.CreateUser(ctx, user.User{
		Uid:          uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         registration.Name,
		Phone:        registration.Phone,
	})
	if err != nil {
		return Session{}, err
	}
	log.Infof("registered user %s", created.Uid)
	return s.session(created)
}

func (s *ServiceImpl) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, user.ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	} else if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		log.Debugf("wrong password for user %s", u.Uid)
		return Session{}, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *ServiceImpl) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	uid, err := s.tokens.Verify(refreshToken, RefreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if _, err := s.users.GetUserByUid(ctx, uid); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	return s.tokens.Issue(uid)
}

func (s *ServiceImpl) Authenticate(ctx context.Context, accessToken string) (user.User, error) {
	uid, err := s.tokens.Verify(accessToken, AccessToken)
	if err != nil {
		return user.User{}, err
	}
	u, err := s.users.GetUserByUid(ctx, uid)
	if errors.Is(err, user.ErrUserNotFound) {
		return user.User{}, ErrInvalidToken
	}
	return u, err
}

func (s *ServiceImpl) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	current, err := s.users.GetCurrentUser(ctx)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(current.PasswordHash, []byte(currentPassword)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, current.Id, hash)
}

func (s *ServiceImpl) ForgotPassword(ctx context.Context, channel event_bus.ResetChannel, address string) error {
	if channel != event_bus.ResetByEmail && channel != event_bus.ResetBySms {
		return ErrInvalidResetChannel
	}
	// The lookup would otherwise match accounts that never set a phone.
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrMissingResetAddress
	}

	var u user.User
	var err error
	if channel == event_bus.ResetBySms {
		u, err = s.users.GetUserByPhone(ctx, address)
	} else {
		u, err = s.users.GetUserByEmail(ctx, address)
	}
	if errors.Is(err, user.ErrUserNotFound) {
		log.Infof("password reset requested by %s for unknown account", channel)
		return nil
	} else if err != nil {
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	if channel == event_bus.ResetBySms {
		token = token[:smsCodeLength]
	}
	expiresAt := s.clock.Now().Add(resetTTL)
	_, err = s.resets.Store(ctx, PasswordReset{
		UserId:    u.Id,
		TokenHash: hashToken(token),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return err
	}

	s.eventBus.Notify(event_bus.NewEvent(ctx, event_bus.PasswordResetRequested, event_bus.PasswordResetRequest{
		UserId:    u.Id,
		Channel:   channel,
		Email:     u.Email,
		Phone:     u.Phone,
		Token:     token,
		ExpiresAt: expiresAt,
	}))
	return nil
}

func (s *ServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	reset, err := s.resets.FindValid(ctx, hashToken(token), s.clock.Now())
	if err != nil {
		return err
	}
	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, reset.UserId, hash); err != nil {
		return err
	}
	return s.resets.DeleteForUser(ctx, reset.UserId)
}

func (s *ServiceImpl) session(u user.User) (Session, error) {
	tokens, err := s.tokens.Issue(u.Uid)
	if err != nil {
		return Session{}, err
	}
	return Session{Tokens: tokens, User: u}, nil
}

func (s *ServiceImpl) hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}
	return hash, nil
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("could not generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
