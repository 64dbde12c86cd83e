package controllers

import (
	"context"
	"time"

	"github.com/aurora-shield/aurora-shield/database"
	"github.com/aurora-shield/aurora-shield/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthController struct {
	store  database.Store
	logger *zap.Logger
}

func NewHealthController(store database.Store, logger *zap.Logger) *HealthController {
	return &HealthController{store: store, logger: logger}
}

// Check reports liveness and whether the database answers.
func (hc *HealthController) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := hc.store.Ping(ctx); err != nil {
		hc.logger.Error("health check failed", zap.Error(err))
		response.FailWithMessage(c, response.CodeInternal, "Database unavailable")
		return
	}
	response.OK(c, gin.H{})
}
