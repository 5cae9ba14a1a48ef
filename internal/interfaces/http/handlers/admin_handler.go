package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"qrbook.backend/internal/domain/entities"
	"qrbook.backend/internal/interfaces/http/response"
	"qrbook.backend/internal/usecases"
)

// AdminHandler handles administrator management and card housekeeping
type AdminHandler struct {
	userUsecase *usecases.UserUsecase
	cardUsecase *usecases.CardUsecase
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userUsecase *usecases.UserUsecase, cardUsecase *usecases.CardUsecase) *AdminHandler {
	return &AdminHandler{
		userUsecase: userUsecase,
		cardUsecase: cardUsecase,
	}
}

// CreateAdmin creates an administrator account
// POST /api/users/admin
func (h *AdminHandler) CreateAdmin(c *gin.Context) {
	var input entities.RegisterInput
	if err := bindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	admin, err := h.userUsecase.CreateAdmin(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, admin)
}

// ListAdmins returns one page of administrators, newest first
// GET /api/users/admins?page=&limit=
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	page, err := h.userUsecase.ListAdmins(c.Request.Context(), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

// ListAllAdmins returns every administrator
// GET /api/users/all-admins
func (h *AdminHandler) ListAllAdmins(c *gin.Context) {
	admins, err := h.userUsecase.ListAllAdmins(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, admins)
}

// UpdateAdmin changes administrator details
// PUT /api/users/admins/:userId
func (h *AdminHandler) UpdateAdmin(c *gin.Context) {
	var input entities.UpdateAdminInput
	if err := bindJSON(c, &input); err != nil {
		response.Error(c, err)
		return
	}

	admin, err := h.userUsecase.UpdateAdmin(c.Request.Context(), c.Param("userId"), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, admin)
}

// DeleteAdmin removes an administrator account
// DELETE /api/users/admins/:userId
func (h *AdminHandler) DeleteAdmin(c *gin.Context) {
	if err := h.userUsecase.DeleteAdmin(c.Request.Context(), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Admin deleted successfully")
}

// ConfirmPayment marks a card as paid
// PUT /api/admin/cards/:id/payment
func (h *AdminHandler) ConfirmPayment(c *gin.Context) {
	card, err := h.cardUsecase.ConfirmPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, card)
}

// SweepExpiredCards runs the unpaid card sweep immediately
// POST /api/admin/cards/sweep
func (h *AdminHandler) SweepExpiredCards(c *gin.Context) {
	result, err := h.cardUsecase.SweepExpiredUnpaid(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
