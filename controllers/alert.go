package controllers

import (
	"cmp"
	"net/http"

	"github.com/aurora-shield/aurora-shield/database"
	"github.com/aurora-shield/aurora-shield/models"
	"github.com/aurora-shield/aurora-shield/response"
	"github.com/aurora-shield/aurora-shield/validators"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	DefaultAlertName      = "Anonymous"
	DefaultAlertSituation = "Emergency"
)

type AlertController struct {
	store    database.Store
	logger   *zap.Logger
	security *zap.Logger
}

func NewAlertController(store database.Store, logger *zap.Logger) *AlertController {
	return &AlertController{
		store:    store,
		logger:   logger,
		security: logger.Named("security"),
	}
}

// Panic records an alert. No session is required.
func (ac *AlertController) Panic(c *gin.Context) {
	req, ok := validators.ValidatePanicRequest(c)
	if !ok {
		return
	}

	alert := &models.Alert{
		Name:      cmp.Or(req.Name, DefaultAlertName),
		Situation: cmp.Or(req.Situation, DefaultAlertSituation),
		Message:   req.Message,
		Lat:       string(req.Lat),
		Lng:       string(req.Lng),
	}
	if err := ac.store.CreateAlert(c.Request.Context(), alert); err != nil {
		ac.logger.Error("save alert failed", zap.Error(err))
		response.FailWithMessage(c, response.CodeInternal, "Failed to send alert")
		return
	}

	ac.security.Warn("panic alert",
		zap.Uint("alert_id", alert.ID),
		zap.String("situation", alert.Situation),
		zap.String("ip", c.ClientIP()),
	)

	response.OK(c, gin.H{"message": "Alert sent successfully!"})
}

// History returns the newest alerts as a bare array.
func (ac *AlertController) History(c *gin.Context) {
	alerts, err := ac.store.RecentAlerts(c.Request.Context(), database.MaxRecentAlerts)
	if err != nil {
		ac.logger.Error("load alerts failed", zap.Error(err))
		response.Fail(c, response.CodeInternal)
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	c.JSON(http.StatusOK, alerts)
}
