// Package api exposes the knowledge base over HTTP.
package api

import (
	"github.com/gin-gonic/gin"

	"taxkb/pkg/logger"
)

// SetupRouter configures and returns a Gin engine serving the knowledge-base
// API.
func SetupRouter(h *Handler, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(log))

	r.GET("/healthz", h.Health)

	apiV1 := r.Group("/api/v1")
	{
		documents := apiV1.Group("/documents")
		{
			documents.POST("", h.IngestDocument)
			documents.POST("/batch", h.IngestBatch)
			documents.GET("", h.ListDocuments)
			documents.GET("/:id", h.GetDocument)
			documents.DELETE("/:id", h.DeleteDocument)
		}

		apiV1.GET("/search", h.Search)
		apiV1.POST("/query", h.Query)
	}

	return r
}
