// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/agent"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/observability"
)

// ListSessions returns the live sessions: GET /api/sessions.
func ListSessions(orch *agent.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions := orch.Sessions()
		observability.DefaultMetrics.ActiveSessions.Set(float64(len(sessions)))
		c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
	}
}

// DeleteSession destroys one session: DELETE /api/sessions/:sessionId.
// History and the loop counter are gone; the dataset and its derived
// statistics survive.
func DeleteSession(orch *agent.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		if err := orch.Reset(sessionID); err != nil {
			if errors.Is(err, agent.ErrSessionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
				return
			}
			slog.Error("Failed to delete session", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "session_id": sessionID})
	}
}

// HealthCheck reports liveness and whether a corpus is loaded: GET /health.
func HealthCheck(deps UploadDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"data_ready": deps.Store.Ready(),
			"dataset_id": deps.Store.ID(),
			"rows":       deps.Store.Len(),
		})
	}
}
