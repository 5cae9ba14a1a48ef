package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"qrbook.backend/internal/domain/entities"
	domainerrors "qrbook.backend/internal/domain/errors"
	"qrbook.backend/internal/interfaces/http/response"
	"qrbook.backend/pkg/jwt"
	"qrbook.backend/pkg/logger"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens
	BearerPrefix = "Bearer "
	// UserIDKey is the context key for the caller's userId
	UserIDKey = "userId"
	// UserTypeKey is the context key for the caller's account type
	UserTypeKey = "userType"
)

// AuthMiddleware creates a new authentication middleware
func AuthMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			logger.Debug(c.Request.Context(), "Authorization header missing", zap.String("path", c.Request.URL.Path))
			abortWith(c, domainerrors.Unauthorized("Authorization header is required"))
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortWith(c, domainerrors.Unauthorized("Invalid authorization format. Use: Bearer <token>"))
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			logger.Debug(c.Request.Context(), "Token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			if errors.Is(err, jwt.ErrExpiredToken) {
				abortWith(c, domainerrors.Unauthorized("Token has expired"))
				return
			}
			abortWith(c, domainerrors.Unauthorized("Invalid token"))
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserTypeKey, claims.Type)

		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetUserID gets the authenticated userId from context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(UserIDKey)
	return userID, userID != ""
}

// GetUserType gets the authenticated account type from context
func GetUserType(c *gin.Context) (string, bool) {
	userType := c.GetString(UserTypeKey)
	return userType, userType != ""
}

// IsAdmin reports whether the caller authenticated as an administrator.
func IsAdmin(c *gin.Context) bool {
	userType, _ := GetUserType(c)
	return userType == string(entities.UserTypeAdmin)
}

// RequireAdmin rejects callers that are not administrators
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			abortWith(c, domainerrors.Unauthorized("Authentication required"))
			return
		}
		if !IsAdmin(c) {
			abortWith(c, domainerrors.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

// RequireSelfOrAdmin lets through administrators and callers whose userId
// equals the named path parameter.
func RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			abortWith(c, domainerrors.Unauthorized("Authentication required"))
			return
		}
		if IsAdmin(c) || c.Param(param) == userID {
			c.Next()
			return
		}
		abortWith(c, domainerrors.Forbidden("You can only access your own account"))
	}
}

func abortWith(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}
