package validators

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return len(PasswordProblems(fl.Field().String())) == 0
	})
	validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
}

type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

func Validate(data interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := validate.Struct(data)
	if err != nil {
		if errors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range errors {
				validationErrors = append(validationErrors, ValidationError{
					Field: e.Field(),
					Tag:   e.Tag(),
					Value: e.Param(),
				})
			}
		}
	}

	return validationErrors
}

const MinPasswordLength = 8

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?~` + "`" + `]`)
	nonDigit  = regexp.MustCompile(`\D`)
)

// PasswordProblems lists every strength rule password breaks.
func PasswordProblems(password string) []string {
	var problems []string

	if len(password) < MinPasswordLength {
		problems = append(problems, "Password must be at least 8 characters")
	}
	if !upperRe.MatchString(password) {
		problems = append(problems, "Password must contain an uppercase letter")
	}
	if !lowerRe.MatchString(password) {
		problems = append(problems, "Password must contain a lowercase letter")
	}
	if !digitRe.MatchString(password) {
		problems = append(problems, "Password must contain a number")
	}
	if !specialRe.MatchString(password) {
		problems = append(problems, "Password must contain a special character (!@#$%&*)")
	}

	return problems
}

// ValidPhone accepts an empty value or 10 to 11 digits once punctuation is
// stripped.
func ValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return true
	}
	digits := nonDigit.ReplaceAllString(phone, "")
	return len(digits) == 10 || len(digits) == 11
}
