package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
	"qrbook.backend/internal/interfaces/http/middleware"
	"qrbook.backend/internal/interfaces/http/response"
	"qrbook.backend/internal/usecases"
	"qrbook.backend/pkg/imageutil"
	"qrbook.backend/pkg/utils"
)

// CardHandler handles business card endpoints
type CardHandler struct {
	cardUsecase   *usecases.CardUsecase
	maxImageBytes int64
}

// NewCardHandler creates a new card handler
func NewCardHandler(cardUsecase *usecases.CardUsecase, maxImageBytes int64) *CardHandler {
	return &CardHandler{cardUsecase: cardUsecase, maxImageBytes: maxImageBytes}
}

// CreateCard creates a card from a JSON body or a multipart form with an
// optional profileImage file.
// POST /api/cards
func (h *CardHandler) CreateCard(c *gin.Context) {
	input, err := h.createInput(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	callerID, _ := middleware.GetUserID(c)
	switch {
	case input.UserID == "":
		input.UserID = callerID
	case input.UserID != callerID && !middleware.IsAdmin(c):
		response.Error(c, domainerrors.Forbidden("You can only create cards for your own account"))
		return
	}

	image, err := readImageUpload(c, h.maxImageBytes)
	if err != nil {
		response.Error(c, err)
		return
	}

	card, err := h.cardUsecase.Create(c.Request.Context(), input, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, card)
}

func (h *CardHandler) createInput(c *gin.Context) (*entities.CreateCardInput, error) {
	var input entities.CreateCardInput
	if !isMultipart(c) {
		if err := decodeJSON(c, &input); err != nil {
			return nil, err
		}
		return &input, nil
	}

	input.UserID = c.PostForm("userId")
	input.Name = c.PostForm("name")
	input.Pronouns = c.PostForm("pronouns")
	input.JobPosition = c.PostForm("jobPosition")
	input.MobileNumber = c.PostForm("mobileNumber")
	input.Email = c.PostForm("email")
	input.Description = c.PostForm("description")
	if social, ok := c.GetPostForm("socialMedia"); ok {
		input.SocialMedia = entities.SocialMediaText(social)
	}
	return &input, nil
}

// ListCards returns one page of all cards
// GET /api/cards
func (h *CardHandler) ListCards(c *gin.Context) {
	page, err := h.cardUsecase.List(c.Request.Context(), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

// GetCard resolves a shared token or a raw card id
// GET /api/cards/:id
func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.cardUsecase.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, card)
}

// GetCardByEncodedPath looks a card up by its stored token
// GET /api/cards/encoded/:encodedPath
func (h *CardHandler) GetCardByEncodedPath(c *gin.Context) {
	card, err := h.cardUsecase.GetByEncodedPath(c.Request.Context(), c.Param("encodedPath"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, card)
}

// ListUserCards returns every card of one owner
// GET /api/cards/user/:userId
func (h *CardHandler) ListUserCards(c *gin.Context) {
	cards, err := h.cardUsecase.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cards)
}

// GetImage streams a stored profile image
// GET /api/cards/image/:filename
func (h *CardHandler) GetImage(c *gin.Context) {
	data, err := h.cardUsecase.ServeImage(c.Request.Context(), c.Param("filename"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, imageutil.DetectContentType(data), data)
}

// UpdateCard changes a card owned by the caller. Only administrators may
// change the payment flag.
// PUT /api/cards/:id
func (h *CardHandler) UpdateCard(c *gin.Context) {
	ctx := c.Request.Context()
	card, err := h.cardUsecase.FindByRef(ctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.canManage(c, card) {
		response.Error(c, domainerrors.Forbidden("You can only modify your own cards"))
		return
	}

	input, err := h.updateInput(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !middleware.IsAdmin(c) {
		input.PaymentConfirmed = nil
	}

	image, err := readImageUpload(c, h.maxImageBytes)
	if err != nil {
		response.Error(c, err)
		return
	}

	updated, err := h.cardUsecase.Update(ctx, card.Key.String(), input, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, updated)
}

func (h *CardHandler) updateInput(c *gin.Context) (*entities.UpdateCardInput, error) {
	var input entities.UpdateCardInput
	if !isMultipart(c) {
		if err := decodeJSON(c, &input); err != nil {
			return nil, err
		}
		return &input, nil
	}

	input.Name = optionalForm(c, "name")
	input.Pronouns = optionalForm(c, "pronouns")
	input.JobPosition = optionalForm(c, "jobPosition")
	input.MobileNumber = optionalForm(c, "mobileNumber")
	input.Email = optionalForm(c, "email")
	input.Description = optionalForm(c, "description")
	if social := optionalForm(c, "socialMedia"); social != nil {
		input.SocialMedia = entities.SocialMediaText(*social)
	}
	if paid := optionalForm(c, "paymentConfirmed"); paid != nil {
		confirmed, err := strconv.ParseBool(*paid)
		if err != nil {
			return nil, domainerrors.Validation("paymentConfirmed must be a boolean")
		}
		input.PaymentConfirmed = &confirmed
	}
	return &input, nil
}

// DeleteCard removes a card by its internal key
// DELETE /api/cards/:id
func (h *CardHandler) DeleteCard(c *gin.Context) {
	ctx := c.Request.Context()
	key, ok := utils.ParseKey(c.Param("id"))
	if !ok {
		response.Error(c, domainerrors.NotFound("Card not found"))
		return
	}
	card, err := h.cardUsecase.GetByKey(ctx, key)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.canManage(c, card) {
		response.Error(c, domainerrors.Forbidden("You can only delete your own cards"))
		return
	}

	if _, err := h.cardUsecase.Delete(ctx, key.String()); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Card deleted")
}

func (h *CardHandler) canManage(c *gin.Context, card *entities.Card) bool {
	if middleware.IsAdmin(c) {
		return true
	}
	userID, ok := middleware.GetUserID(c)
	return ok && card.UserID == userID
}
