package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_GetProfile(t *testing.T) {
	t.Run("should return profile of authenticated user", func(t *testing.T) {
		ctx, created := setup(t)
		handler := NewHandler(service)
		req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil).WithContext(ctx)
		w := httptest.NewRecorder()

		// when
		handler.GetProfile(w, req)

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var resp ProfileResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, created.Uid, resp.User.Id)
		assert.Equal(t, "Jane", resp.User.Name)
	})

	t.Run("should return 401 without user", func(t *testing.T) {
		setup(t)
		handler := NewHandler(service)
		req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
		w := httptest.NewRecorder()

		// when
		handler.GetProfile(w, req)

		// then
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandler_UpdateProfile(t *testing.T) {
	t.Run("should update profile picture", func(t *testing.T) {
		ctx, _ := setup(t)
		handler := NewHandler(service)
		body, _ := json.Marshal(map[string]string{"profile_picture": "https://cdn.example.com/jane.png"})
		req := httptest.NewRequest(http.MethodPut, "/api/auth/profile", bytes.NewBuffer(body)).WithContext(ctx)
		w := httptest.NewRecorder()

		// when
		handler.UpdateProfile(w, req)

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var resp ProfileResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "Profile updated successfully", resp.Message)
		assert.Equal(t, "https://cdn.example.com/jane.png", resp.User.ProfilePicture)
		assert.Equal(t, "Jane", resp.User.Name)
	})

	t.Run("should reject malformed body", func(t *testing.T) {
		ctx, _ := setup(t)
		handler := NewHandler(service)
		req := httptest.NewRequest(http.MethodPut, "/api/auth/profile", bytes.NewBufferString("{")).WithContext(ctx)
		w := httptest.NewRecorder()

		// when
		handler.UpdateProfile(w, req)

		// then
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("jane@example.com"))
	assert.Error(t, ValidateEmail("jane.example.com"))
	assert.Error(t, ValidateEmail(""))
}
