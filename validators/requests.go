package validators

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aurora-shield/aurora-shield/response"
	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,strongpassword,max=72"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type PanicRequest struct {
	Name      string     `json:"name" validate:"max=120"`
	Situation string     `json:"situation" validate:"max=120"`
	Message   string     `json:"message" validate:"max=2000"`
	Lat       Coordinate `json:"lat" validate:"omitempty,latitude"`
	Lng       Coordinate `json:"lng" validate:"omitempty,longitude"`
}

type ContactRequest struct {
	ID           uint   `json:"id"`
	Name         string `json:"name" validate:"required,max=120"`
	Phone        string `json:"phone" validate:"required,max=40"`
	Email        string `json:"email" validate:"omitempty,email,max=254"`
	Relationship string `json:"relationship" validate:"max=60"`
}

// Coordinate is a decimal kept as text. Clients send it either as a JSON
// number or a string.
type Coordinate string

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Coordinate(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("coordinate must be a number or string: %w", err)
		}
		*c = Coordinate(n.String())
	}
	return nil
}

func ValidateRegisterRequest(c *gin.Context) (*RegisterRequest, bool) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return nil, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	if !check(c, req, func(e ValidationError) string {
		switch e.Field {
		case "Email":
			return "Invalid email format"
		case "Phone":
			return "Invalid phone format"
		case "Password":
			if e.Tag == "strongpassword" {
				return strings.Join(PasswordProblems(req.Password), ". ")
			}
		}
		return ""
	}) {
		return nil, false
	}
	return &req, true
}

func ValidateLoginRequest(c *gin.Context) (*LoginRequest, bool) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return nil, false
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if !check(c, req, func(ValidationError) string {
		return "Email and password are required"
	}) {
		return nil, false
	}
	return &req, true
}

// ValidatePanicRequest rejects a missing or empty body; every field is
// optional on its own.
func ValidatePanicRequest(c *gin.Context) (*PanicRequest, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		response.FailWithMessage(c, response.CodeValidation, "Invalid request payload")
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		response.FailWithMessage(c, response.CodeValidation, "No data provided")
		return nil, false
	}

	var req PanicRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		response.FailWithMessage(c, response.CodeValidation, "Invalid request payload")
		return nil, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Situation = strings.TrimSpace(req.Situation)

	if !check(c, req, func(e ValidationError) string {
		if e.Field == "Lat" || e.Field == "Lng" {
			return "Invalid coordinates"
		}
		return ""
	}) {
		return nil, false
	}
	return &req, true
}

func ValidateContactRequest(c *gin.Context) (*ContactRequest, bool) {
	var req ContactRequest
	if !bindJSON(c, &req) {
		return nil, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.Relationship = strings.TrimSpace(req.Relationship)

	if !check(c, req, func(e ValidationError) string {
		if e.Tag == "required" {
			return "Name and phone are required"
		}
		if e.Field == "Email" {
			return "Invalid email format"
		}
		return ""
	}) {
		return nil, false
	}
	return &req, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.FailWithMessage(c, response.CodeValidation, "Invalid request payload")
		return false
	}
	return true
}

// check runs struct validation and answers with the first error. describe
// may return "" to fall back to a generic per-field message.
func check(c *gin.Context, req interface{}, describe func(ValidationError) string) bool {
	errs := Validate(req)
	if len(errs) == 0 {
		return true
	}

	msg := describe(errs[0])
	if msg == "" {
		msg = fmt.Sprintf("Invalid value for %s", strings.ToLower(errs[0].Field))
	}
	response.FailWithMessage(c, response.CodeValidation, msg)
	return false
}
