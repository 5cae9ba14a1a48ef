package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"qrbook.backend/internal/interfaces/http/middleware"
)

const (
	serviceName    = "qrbook-backend"
	serviceVersion = "1.0.0"
)

func applyCORSMiddleware(r *gin.Engine, origin string) {
	r.Use(middleware.CORSMiddleware(origin))
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
