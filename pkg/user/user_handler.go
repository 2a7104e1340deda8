package user

import (
	"errors"
	"net/http"
	"time"

	"github.com/badoux/checkmail"
	"github.com/financeflow/financeflow/internal/rest"
	log "github.com/sirupsen/logrus"
)

type UserDTO struct {
	Id             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	ProfilePicture string `json:"profile_picture"`
	CreatedAt      string `json:"created_at"`
}

type ProfileResponse struct {
	Message string  `json:"message,omitempty"`
	User    UserDTO `json:"user"`
}

type UpdateProfileRequest struct {
	Name           *string `json:"name"`
	Phone          *string `json:"phone"`
	ProfilePicture *string `json:"profile_picture"`
}

type Handler struct {
	userService Service
}

func NewHandler(userService Service) *Handler {
	return &Handler{
		userService: userService,
	}
}

// GetProfile godoc
// @Summary Get current user profile
// @Tags User
// @Produce json
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} rest.ErrorResponse "Not authenticated"
// @Failure 404 {object} rest.ErrorResponse "User not found"
// @Router /api/auth/profile [get]
// @Security BearerAuth
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting current user profile")
	u, err := h.userService.GetCurrentUser(r.Context())
	if err != nil {
		writeUserError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ProfileResponse{User: ToDTO(u)})
}

// UpdateProfile godoc
// @Summary Update current user profile
// @Description Only the fields present in the body are changed
// @Tags User
// @Accept json
// @Produce json
// @Param profile body UpdateProfileRequest true "Profile"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 401 {object} rest.ErrorResponse "Not authenticated"
// @Router /api/auth/profile [put]
// @Security BearerAuth
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	log.Debug("Updating current user profile")
	var req UpdateProfileRequest
	if !rest.DecodeJSON(w, r, &req) {
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), ProfileUpdate{
		Name:           req.Name,
		Phone:          req.Phone,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		writeUserError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ProfileResponse{Message: "Profile updated successfully", User: ToDTO(updated)})
}

func writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, ErrUserNotFound):
		rest.WriteError(w, http.StatusNotFound, "User not found")
	default:
		log.Errorf("user request failed: %v", err)
		rest.WriteErrorDetails(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

// ValidateEmail checks the address format without contacting the mail host.
func ValidateEmail(email string) error {
	return checkmail.ValidateFormat(email)
}

func ToDTO(u User) UserDTO {
	return UserDTO{
		Id:             u.Uid,
		Email:          u.Email,
		Name:           u.Name,
		Phone:          u.Phone,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
