// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/CarSurvey/services/survey/handlers"
)

func SetupRoutes(router *gin.Engine, h *handlers.Handlers) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.GET("/catalogs", handlers.HandleCatalogs)
		v1.POST("/evaluate", h.HandleEvaluate)

		// Form sessions
		surveys := v1.Group("/surveys")
		{
			surveys.POST("", h.HandleCreateSurvey)
			surveys.GET("/:id", h.HandleGetSurvey)
			surveys.PUT("/:id", h.HandleReplaceSurvey)
			surveys.DELETE("/:id", h.HandleDeleteSurvey)
			surveys.POST("/:id/brands/toggle", h.HandleToggleBrand)
			surveys.POST("/:id/colors/toggle", h.HandleToggleColor)
			surveys.PUT("/:id/transmission", h.HandleSetTransmission)
			surveys.POST("/:id/submit", h.HandleSubmit)
			surveys.POST("/:id/reset", h.HandleReset)
			surveys.GET("/:id/result", h.HandleGetResult)
		}
	}
}
