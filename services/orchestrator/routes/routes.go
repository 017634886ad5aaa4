// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/agent"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/handlers"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/middleware"
)

// SetupRoutes registers the HTTP surface. Health and metrics stay open;
// everything under /api sits behind the optional shared API key.
func SetupRoutes(router *gin.Engine, orch *agent.Orchestrator, uploadDeps handlers.UploadDeps, apiKey string) {
	router.GET("/health", handlers.HealthCheck(uploadDeps))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.APIKeyAuth(apiKey))
	{
		api.POST("/upload", handlers.HandleUpload(uploadDeps))
		api.POST("/chat", handlers.HandleChat(orch))
		sessions := api.Group("/sessions")
		{
			sessions.GET("", handlers.ListSessions(orch))
			sessions.DELETE("/:sessionId", handlers.DeleteSession(orch))
		}
	}
}
