package controllers

import (
	"errors"

	"github.com/aurora-shield/aurora-shield/database"
	"github.com/aurora-shield/aurora-shield/response"
	"github.com/aurora-shield/aurora-shield/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserController struct {
	users  *services.UserService
	logger *zap.Logger
}

func NewUserController(users *services.UserService, logger *zap.Logger) *UserController {
	return &UserController{
		users:  users,
		logger: logger,
	}
}

func (uc *UserController) GetCurrentUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Fail(c, response.CodeUnauthorized)
		return
	}

	user, err := uc.users.Profile(c.Request.Context(), userID)
	if errors.Is(err, database.ErrNotFound) {
		response.Fail(c, response.CodeUnauthorized)
		return
	}
	if err != nil {
		uc.logger.Error("load profile failed", zap.Error(err))
		response.Fail(c, response.CodeInternal)
		return
	}

	sessionID, _ := c.Get(ctxSessionID)
	response.OK(c, gin.H{
		"user": gin.H{
			"id":         user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"phone":      user.Phone,
			"last_login": user.LastLogin,
		},
		"session_id": sessionID,
	})
}
