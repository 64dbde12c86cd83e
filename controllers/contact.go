package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aurora-shield/aurora-shield/database"
	"github.com/aurora-shield/aurora-shield/models"
	"github.com/aurora-shield/aurora-shield/response"
	"github.com/aurora-shield/aurora-shield/validators"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ContactController struct {
	store  database.Store
	logger *zap.Logger
}

func NewContactController(store database.Store, logger *zap.Logger) *ContactController {
	return &ContactController{
		store:  store,
		logger: logger,
	}
}

// List returns the caller's contacts
func (cc *ContactController) List(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		response.Fail(c, response.CodeUnauthorized)
		return
	}

	contacts, err := cc.store.ListContacts(c.Request.Context(), ownerID)
	if err != nil {
		cc.logger.Error("list contacts failed", zap.Uint("user_id", ownerID), zap.Error(err))
		response.Fail(c, response.CodeInternal)
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	c.JSON(http.StatusOK, contacts)
}

func (cc *ContactController) Create(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		response.Fail(c, response.CodeUnauthorized)
		return
	}
	req, ok := validators.ValidateContactRequest(c)
	if !ok {
		return
	}

	contact := contactFromRequest(ownerID, req)
	contact.ID = 0
	if err := cc.store.CreateContact(c.Request.Context(), contact); err != nil {
		cc.logger.Error("create contact failed", zap.Uint("user_id", ownerID), zap.Error(err))
		response.Fail(c, response.CodeInternal)
		return
	}

	response.OK(c, gin.H{
		"message": "Contact added successfully!",
		"id":      contact.ID,
	})
}

func (cc *ContactController) Update(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		response.Fail(c, response.CodeUnauthorized)
		return
	}
	req, ok := validators.ValidateContactRequest(c)
	if !ok {
		return
	}
	if req.ID == 0 {
		response.FailWithMessage(c, response.CodeValidation, "Contact id is required")
		return
	}

	err := cc.store.UpdateContact(c.Request.Context(), contactFromRequest(ownerID, req))
	if errors.Is(err, database.ErrNotFound) {
		response.FailWithMessage(c, response.CodeNotFound, "Contact not found")
		return
	}
	if err != nil {
		cc.logger.Error("update contact failed", zap.Uint("user_id", ownerID), zap.Error(err))
		response.Fail(c, response.CodeInternal)
		return
	}

	response.OK(c, gin.H{"message": "Contact updated successfully!"})
}

func (cc *ContactController) Delete(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		response.Fail(c, response.CodeUnauthorized)
		return
	}

	id, err := strconv.ParseUint(c.Query("id"), 10, 0)
	if err != nil || id == 0 {
		response.FailWithMessage(c, response.CodeValidation, "Contact id is required")
		return
	}

	err = cc.store.DeleteContact(c.Request.Context(), ownerID, uint(id))
	if errors.Is(err, database.ErrNotFound) {
		response.FailWithMessage(c, response.CodeNotFound, "Contact not found")
		return
	}
	if err != nil {
		cc.logger.Error("delete contact failed", zap.Uint("user_id", ownerID), zap.Error(err))
		response.Fail(c, response.CodeInternal)
		return
	}

	response.OK(c, gin.H{"message": "Contact removed successfully!"})
}

func contactFromRequest(ownerID uint, req *validators.ContactRequest) *models.Contact {
	return &models.Contact{
		ID:           req.ID,
		UserID:       ownerID,
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Relationship: req.Relationship,
	}
}
