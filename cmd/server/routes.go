package main

import (
	"github.com/gin-gonic/gin"
	"qrbook.backend/internal/interfaces/http/handlers"
	"qrbook.backend/internal/interfaces/http/middleware"
)

type routeDeps struct {
	cardHandler    *handlers.CardHandler
	userHandler    *handlers.UserHandler
	adminHandler   *handlers.AdminHandler
	authMiddleware gin.HandlerFunc
	idempotency    gin.HandlerFunc
}

func registerAPIRoutes(r *gin.Engine, d routeDeps) {
	requireAdmin := middleware.RequireAdmin()
	selfOrAdmin := middleware.RequireSelfOrAdmin("userId")

	// Stored profile images are referenced as /uploads/<name>
	r.GET("/uploads/:filename", d.cardHandler.GetImage)

	api := r.Group("/api")
	{
		// User routes
		users := api.Group("/users")
		{
			users.POST("/register", d.userHandler.Register)
			users.POST("/login", d.userHandler.Login)
			users.POST("/forgot-password", d.userHandler.ForgotPassword)
			users.POST("/reset-password", d.userHandler.ResetPassword)
			users.POST("/change-password", d.authMiddleware, d.userHandler.ChangePassword)

			users.GET("", d.authMiddleware, requireAdmin, d.userHandler.ListUsers)
			users.POST("/admin", d.authMiddleware, requireAdmin, d.adminHandler.CreateAdmin)
			users.GET("/admins", d.authMiddleware, requireAdmin, d.adminHandler.ListAdmins)
			users.GET("/all-admins", d.authMiddleware, requireAdmin, d.adminHandler.ListAllAdmins)
			users.PUT("/admins/:userId", d.authMiddleware, requireAdmin, d.adminHandler.UpdateAdmin)
			users.DELETE("/admins/:userId", d.authMiddleware, requireAdmin, d.adminHandler.DeleteAdmin)

			users.GET("/:userId", d.authMiddleware, selfOrAdmin, d.userHandler.GetUser)
			users.PUT("/:userId", d.authMiddleware, selfOrAdmin, d.userHandler.UpdateUser)
			users.DELETE("/:userId", d.authMiddleware, selfOrAdmin, d.userHandler.DeleteUser)
		}

		// Card routes; lookups are public so shared links resolve
		cards := api.Group("/cards")
		{
			cards.GET("", d.authMiddleware, requireAdmin, d.cardHandler.ListCards)
			cards.POST("", d.authMiddleware, d.idempotency, d.cardHandler.CreateCard)
			cards.GET("/encoded/:encodedPath", d.cardHandler.GetCardByEncodedPath)
			cards.GET("/user/:userId", d.authMiddleware, selfOrAdmin, d.cardHandler.ListUserCards)
			cards.GET("/image/:filename", d.cardHandler.GetImage)
			cards.GET("/:id", d.cardHandler.GetCard)
			cards.PUT("/:id", d.authMiddleware, d.cardHandler.UpdateCard)
			cards.DELETE("/:id", d.authMiddleware, d.cardHandler.DeleteCard)
		}

		// Admin card housekeeping
		admin := api.Group("/admin")
		admin.Use(d.authMiddleware, requireAdmin)
		{
			admin.PUT("/cards/:id/payment", d.adminHandler.ConfirmPayment)
			admin.POST("/cards/sweep", d.adminHandler.SweepExpiredCards)
		}
	}
}
