package auth

import (
	"context"
	"testing"
	"time"

	"github.com/financeflow/financeflow/internal/event_bus"
	"github.com/financeflow/financeflow/internal/utils"
	"github.com/financeflow/financeflow/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userRepoStub = user.NewStubUserRepository()
var resetRepoStub = NewResetRepoStub()
var clock *utils.MockClock
var eventBus *event_bus.EventBus
var tokens *TokenManager
var service *ServiceImpl

// resetRequests collects published password reset requests.
var resetRequests []event_bus.PasswordResetRequest

func setup(t *testing.T) func() {
	clock = &utils.MockClock{FixedNow: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	eventBus = event_bus.NewEventBus()
	tokens = newTestTokenManager(clock)
	service = NewService(user.NewUserService(userRepoStub), resetRepoStub, tokens, eventBus, clock)
	service.hashCost = bcrypt.MinCost

	resetRequests = nil
	event_bus.SubscribeTyped(eventBus, event_bus.PasswordResetRequested, func(e event_bus.EventT[event_bus.PasswordResetRequest]) error {
		resetRequests = append(resetRequests, e.Data)
		return nil
	})
	return func() {
		t.Log("Teardown after test")
		userRepoStub.Cleanup()
		resetRepoStub.Cleanup()
	}
}

func register(t *testing.T, email, phone string) Session {
	session, err := service.Register(context.Background(), Registration{Email: email, Password: "secret-1", Name: "Jane", Phone: phone})
	require.NoError(t, err)
	return session
}

func TestServiceImpl_Register(t *testing.T) {
	t.Run("should create user with hashed password and issue tokens", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		session := register(t, "jane@example.com", "")

		// then
		assert.NotEmpty(t, session.User.Uid)
		assert.NotEqual(t, []byte("secret-1"), session.User.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword(session.User.PasswordHash, []byte("secret-1")))
		uid, err := tokens.Verify(session.Tokens.AccessToken, AccessToken)
		require.NoError(t, err)
		assert.Equal(t, session.User.Uid, uid)
	})

	t.Run("should reject invalid email", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		_, err := service.Register(context.Background(), Registration{Email: "not-an-email", Password: "x"})

		assert.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("should reject taken email", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		register(t, "jane@example.com", "")

		_, err := service.Register(context.Background(), Registration{Email: "jane@example.com", Password: "other"})

		assert.ErrorIs(t, err, user.ErrEmailTaken)
	})
}

func TestServiceImpl_Login(t *testing.T) {
	teardown := setup(t)
	defer teardown()
	registered := register(t, "jane@example.com", "")

	t.Run("should log in with correct password", func(t *testing.T) {
		session, err := service.Login(context.Background(), "jane@example.com", "secret-1")

		require.NoError(t, err)
		assert.Equal(t, registered.User.Uid, session.User.Uid)
		assert.NotEmpty(t, session.Tokens.RefreshToken)
	})

	t.Run("should reject wrong password", func(t *testing.T) {
		_, err := service.Login(context.Background(), "jane@example.com", "wrong")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("should reject unknown email with the same error", func(t *testing.T) {
		_, err := service.Login(context.Background(), "nobody@example.com", "secret-1")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestServiceImpl_RefreshAndAuthenticate(t *testing.T) {
	teardown := setup(t)
	defer teardown()
	registered := register(t, "jane@example.com", "")

	t.Run("should issue new pair for refresh token", func(t *testing.T) {
		clock.Advance(2 * time.Hour)

		pair, err := service.Refresh(context.Background(), registered.Tokens.RefreshToken)

		require.NoError(t, err)
		u, err := service.Authenticate(context.Background(), pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, registered.User.Id, u.Id)
	})

	t.Run("should not refresh with access token", func(t *testing.T) {
		_, err := service.Refresh(context.Background(), registered.Tokens.AccessToken)

		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("should reject expired access token", func(t *testing.T) {
		_, err := service.Authenticate(context.Background(), registered.Tokens.AccessToken)

		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("should reject token of removed user", func(t *testing.T) {
		pair, err := tokens.Issue("unknown-uid")
		require.NoError(t, err)

		_, err = service.Authenticate(context.Background(), pair.AccessToken)

		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestServiceImpl_ChangePassword(t *testing.T) {
	teardown := setup(t)
	defer teardown()
	registered := register(t, "jane@example.com", "")
	ctx := user.WithUser(context.Background(), registered.User)

	t.Run("should reject wrong current password", func(t *testing.T) {
		err := service.ChangePassword(ctx, "wrong", "new-secret")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("should change password", func(t *testing.T) {
		require.NoError(t, service.ChangePassword(ctx, "secret-1", "new-secret"))

		_, oldErr := service.Login(context.Background(), "jane@example.com", "secret-1")
		_, newErr := service.Login(context.Background(), "jane@example.com", "new-secret")
		assert.ErrorIs(t, oldErr, ErrInvalidCredentials)
		assert.NoError(t, newErr)
	})

	t.Run("should require user in context", func(t *testing.T) {
		err := service.ChangePassword(context.Background(), "secret-1", "x")

		assert.ErrorIs(t, err, user.ErrNoUser)
	})
}

func TestServiceImpl_ForgotPassword(t *testing.T) {
	t.Run("should store reset and publish email request", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		registered := register(t, "jane@example.com", "")

		// when
		err := service.ForgotPassword(context.Background(), event_bus.ResetByEmail, "jane@example.com")

		// then
		require.NoError(t, err)
		require.Len(t, resetRequests, 1)
		request := resetRequests[0]
		assert.Equal(t, registered.User.Id, request.UserId)
		assert.Equal(t, event_bus.ResetByEmail, request.Channel)
		assert.Equal(t, "jane@example.com", request.Email)
		assert.Len(t, request.Token, 43)
		assert.Equal(t, clock.Now().Add(time.Hour), request.ExpiresAt)
		assert.Equal(t, 1, resetRepoStub.Count())
	})

	t.Run("should send short code by sms", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		register(t, "jane@example.com", "+48111222333")

		err := service.ForgotPassword(context.Background(), event_bus.ResetBySms, "+48111222333")

		require.NoError(t, err)
		require.Len(t, resetRequests, 1)
		assert.Len(t, resetRequests[0].Token, smsCodeLength)
		assert.Equal(t, "+48111222333", resetRequests[0].Phone)
	})

	t.Run("should silently accept unknown account", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		err := service.ForgotPassword(context.Background(), event_bus.ResetByEmail, "nobody@example.com")

		require.NoError(t, err)
		assert.Empty(t, resetRequests)
		assert.Zero(t, resetRepoStub.Count())
	})

	t.Run("should not match accounts without phone for a blank number", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		register(t, "jane@example.com", "")

		// when
		err := service.ForgotPassword(context.Background(), event_bus.ResetBySms, "  ")

		// then
		assert.ErrorIs(t, err, ErrMissingResetAddress)
		assert.Empty(t, resetRequests)
		assert.Zero(t, resetRepoStub.Count())
	})

	t.Run("should reject unknown channel", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		err := service.ForgotPassword(context.Background(), "pigeon", "jane@example.com")

		assert.ErrorIs(t, err, ErrInvalidResetChannel)
	})
}

func TestServiceImpl_ResetPassword(t *testing.T) {
	t.Run("should reset password once with the delivered token", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		register(t, "jane@example.com", "")
		require.NoError(t, service.ForgotPassword(context.Background(), event_bus.ResetByEmail, "jane@example.com"))
		token := resetRequests[0].Token

		// when
		err := service.ResetPassword(context.Background(), token, "brand-new")

		// then
		require.NoError(t, err)
		_, loginErr := service.Login(context.Background(), "jane@example.com", "brand-new")
		assert.NoError(t, loginErr)
		assert.ErrorIs(t, service.ResetPassword(context.Background(), token, "again"), ErrInvalidResetToken)
	})

	t.Run("should accept sms code", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		register(t, "jane@example.com", "+48111222333")
		require.NoError(t, service.ForgotPassword(context.Background(), event_bus.ResetBySms, "+48111222333"))

		err := service.ResetPassword(context.Background(), resetRequests[0].Token, "brand-new")

		assert.NoError(t, err)
	})

	t.Run("should reject expired token", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		register(t, "jane@example.com", "")
		require.NoError(t, service.ForgotPassword(context.Background(), event_bus.ResetByEmail, "jane@example.com"))

		clock.Advance(61 * time.Minute)
		err := service.ResetPassword(context.Background(), resetRequests[0].Token, "brand-new")

		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})
}
