package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/financeflow/financeflow/internal/event_bus"
	"github.com/financeflow/financeflow/internal/rest"
	"github.com/financeflow/financeflow/pkg/user"
	log "github.com/sirupsen/logrus"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ForgotPasswordRequest struct {
	Method string `json:"method"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type AuthResponse struct {
	Message      string       `json:"message"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         user.UserDTO `json:"user"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register godoc
// @Summary Register a new account
// @Tags Auth
// @Accept json
// @Produce json
// @Param registration body RegisterRequest true "Account"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} rest.ErrorResponse "Missing fields or invalid email"
// @Failure 409 {object} rest.ErrorResponse "Email already registered"
// @Router /api/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !rest.DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		rest.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	session, err := h.service.Register(r.Context(), Registration{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toAuthResponse("User registered successfully", session))
}

// Login godoc
// @Summary Log in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} rest.ErrorResponse "Invalid credentials"
// @Router /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !rest.DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		rest.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toAuthResponse("Login successful", session))
}

// Refresh godoc
// @Summary Exchange a refresh token for a new token pair
// @Description The refresh token is read from the body or from the Authorization header.
// @Tags Auth
// @Accept json
// @Produce json
// @Param token body RefreshRequest false "Refresh token"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} rest.ErrorResponse "Invalid or expired token"
// @Router /api/auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if r.ContentLength != 0 && !rest.DecodeJSON(w, r, &req) {
		return
	}
	token := req.RefreshToken
	if token == "" {
		token = BearerToken(r)
	}
	if token == "" {
		rest.WriteError(w, http.StatusUnauthorized, "Refresh token is required")
		return
	}
	tokens, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken})
}

// ForgotPassword godoc
// @Summary Request a password reset by email or SMS
// @Description Always succeeds for well-formed requests, whether or not the account exists.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Reset method and address"
// @Success 200 {object} rest.MessageResponse
// @Failure 400 {object} rest.ErrorResponse "Invalid method or missing address"
// @Router /api/auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !rest.DecodeJSON(w, r, &req) {
		return
	}
	channel := event_bus.ResetChannel(req.Method)
	if req.Method == "" {
		channel = event_bus.ResetByEmail
	}

	var address, message string
	switch channel {
	case event_bus.ResetByEmail:
		address, message = strings.TrimSpace(req.Email), "If the email is registered, a reset link has been sent"
		if address == "" {
			rest.WriteError(w, http.StatusBadRequest, "Email is required")
			return
		}
	case event_bus.ResetBySms:
		address, message = strings.TrimSpace(req.Phone), "If the phone number is registered, a reset code has been sent"
		if address == "" {
			rest.WriteError(w, http.StatusBadRequest, "Phone number is required")
			return
		}
	default:
		rest.WriteError(w, http.StatusBadRequest, "Invalid method")
		return
	}

	if err := h.service.ForgotPassword(r.Context(), channel, address); err != nil {
		writeError(w, err)
		return
	}
	rest.WriteMessage(w, http.StatusOK, message)
}

// ResetPassword godoc
// @Summary Set a new password with a reset token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Token and new password"
// @Success 200 {object} rest.MessageResponse
// @Failure 400 {object} rest.ErrorResponse "Invalid or expired token"
// @Router /api/auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !rest.DecodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" || req.Password == "" {
		rest.WriteError(w, http.StatusBadRequest, "Token and password are required")
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, err)
		return
	}
	rest.WriteMessage(w, http.StatusOK, "Password reset successfully")
}

// ChangePassword godoc
// @Summary Change the password of the current user
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Current and new password"
// @Success 200 {object} rest.MessageResponse
// @Failure 401 {object} rest.ErrorResponse "Current password is incorrect"
// @Router /api/auth/change-password [post]
// @Security BearerAuth
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !rest.DecodeJSON(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		rest.WriteError(w, http.StatusBadRequest, "Current and new password are required")
		return
	}
	err := h.service.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword)
	if errors.Is(err, ErrInvalidCredentials) {
		rest.WriteError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	} else if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteMessage(w, http.StatusOK, "Password changed successfully")
}

// BearerToken returns the token of an "Authorization: Bearer" header, or an empty string.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidEmail):
		rest.WriteErrorDetails(w, http.StatusBadRequest, "Invalid email address", err.Error())
	case errors.Is(err, ErrInvalidResetChannel):
		rest.WriteError(w, http.StatusBadRequest, "Invalid method")
	case errors.Is(err, ErrMissingResetAddress):
		rest.WriteError(w, http.StatusBadRequest, "Email or phone number is required")
	case errors.Is(err, ErrInvalidResetToken):
		rest.WriteError(w, http.StatusBadRequest, "Invalid or expired token")
	case errors.Is(err, user.ErrEmailTaken):
		rest.WriteError(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, ErrInvalidCredentials):
		rest.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrExpiredToken), errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
	default:
		log.Errorf("auth request failed: %v", err)
		rest.WriteErrorDetails(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

func toAuthResponse(message string, session Session) AuthResponse {
	return AuthResponse{
		Message:      message,
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
		User:         user.ToDTO(session.User),
	}
}
