// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

// Package handlers is the thin HTTP shell around the agent core. Handlers
// bind and validate requests, delegate, and translate results to JSON; no
// business logic lives here.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/agent"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/datatypes"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/observability"
)

var validate = validator.New()

// chatTurnTimeout bounds one full agent turn, including any model calls.
const chatTurnTimeout = 3 * time.Minute

// HandleChat runs one agent turn: POST /api/chat.
func HandleChat(orch *agent.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), chatTurnTimeout)
		defer cancel()

		slog.Info("Received chat request", "session_id", req.SessionID, "len", len(req.Message))
		resp, err := orch.HandleTurn(ctx, req.SessionID, req.Message)
		if err != nil {
			slog.Error("Chat turn failed", "error", err)
			observability.DefaultMetrics.RecordRequest("chat", false, time.Since(start).Seconds())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process the message"})
			return
		}

		observability.DefaultMetrics.RecordRequest("chat", true, time.Since(start).Seconds())
		c.JSON(http.StatusOK, resp)
	}
}
