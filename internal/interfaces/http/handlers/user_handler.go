package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
	"qrbook.backend/internal/interfaces/http/middleware"
	"qrbook.backend/internal/interfaces/http/response"
	"qrbook.backend/internal/usecases"
)

// UserHandler handles account endpoints
type UserHandler struct {
	userUsecase *usecases.UserUsecase
}

// NewUserHandler creates a new user handler
func NewUserHandler(userUsecase *usecases.UserUsecase) *UserHandler {
	return &UserHandler{userUsecase: userUsecase}
}

// Register handles user registration
// POST /api/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var input entities.RegisterInput
	if err := bindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.userUsecase.Register(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// Login handles user login
// POST /api/users/login
func (h *UserHandler) Login(c *gin.Context) {
	var input entities.LoginInput
	if err := bindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	authResponse, err := h.userUsecase.Login(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, authResponse)
}

// ForgotPassword emails a password reset code
// POST /api/users/forgot-password
func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var input entities.ForgotPasswordInput
	if err := bindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.userUsecase.ForgotPassword(c.Request.Context(), &input); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "OTP sent to your email")
}

// ResetPassword redeems a reset code
// POST /api/users/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var input entities.ResetPasswordInput
	if err := bindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.userUsecase.ResetPassword(c.Request.Context(), &input); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Password reset successfully")
}

// ChangePassword changes the caller's password
// POST /api/users/change-password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("Authentication required"))
		return
	}

	var input entities.ChangePasswordInput
	if err := bindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.userUsecase.ChangePassword(c.Request.Context(), userID, &input); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Password changed successfully")
}

// ListUsers lists every account
// GET /api/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userUsecase.ListUsers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// GetUser returns one account
// GET /api/users/:userId
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userUsecase.GetUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// UpdateUser changes account details
// PUT /api/users/:userId
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var input entities.UpdateUserInput
	if err := bindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.userUsecase.UpdateUser(c.Request.Context(), c.Param("userId"), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// DeleteUser removes an account; its cards are kept
// DELETE /api/users/:userId
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userUsecase.DeleteUser(c.Request.Context(), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "User deleted")
}
