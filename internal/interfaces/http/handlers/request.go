package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
	"qrbook.backend/pkg/validation"
)

// ProfileImageField is the multipart field carrying the card photo.
const ProfileImageField = "profileImage"

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// decodeJSON reads the body without running binding validation; the
// usecases validate card input themselves.
func decodeJSON(c *gin.Context, dst interface{}) error {
	if err := json.NewDecoder(c.Request.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domainerrors.Validation("Request body is required")
		}
		return domainerrors.Validation("Invalid JSON body")
	}
	return nil
}

// bindJSON binds and validates the body using the binding tags.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domainerrors.Validation("Request body is required")
		}
		return domainerrors.Validation(validation.Message(err))
	}
	return nil
}

// readImageUpload returns the uploaded profile image, or nil when the
// request carries none. Reading stops one byte past maxBytes so the usecase
// can reject oversized uploads.
func readImageUpload(c *gin.Context, maxBytes int64) (*entities.ImageUpload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	header, err := c.FormFile(ProfileImageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, domainerrors.Validation("Invalid multipart form")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, domainerrors.Validation("Only images are allowed")
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &entities.ImageUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// optionalForm returns a pointer to the form value when the field was sent.
func optionalForm(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok {
		return &v
	}
	return nil
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
