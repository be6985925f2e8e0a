package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/BradenHooton/haulgate/internal/models"
	pkghttp "github.com/BradenHooton/haulgate/pkg/http"
)

// otpCodeLen is the number of digits in a login code.
const otpCodeLen = 6

// FieldError names one rejected request field by its JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every rejected field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// "numeric" would accept signs and decimals
	_ = v.RegisterValidation("otpcode", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != otpCodeLen {
			return false
		}
		for i := 0; i < len(s); i++ {
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		}
		return true
	})
	return v
}

// ValidateRequest validates a request struct and reports fields by their JSON names.
func ValidateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validation failed: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(ve))}
	for _, fe := range ve {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: formatValidationError(fe)})
	}
	return out
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "otpcode":
		return fmt.Sprintf("must be exactly %d digits", otpCodeLen)
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

func writeValidationError(w http.ResponseWriter, err error) {
	resp := pkghttp.ErrorResponse{
		Status:    http.StatusBadRequest,
		ErrorCode: models.CodeValidation,
		Message:   "Invalid request",
	}
	var ve *ValidationError
	if errors.As(err, &ve) && len(ve.Fields) > 0 {
		resp.Message = ve.Fields[0].Field + " " + ve.Fields[0].Message
		resp.Details = ve.Error()
	}
	pkghttp.WriteErrorResponse(w, resp)
}
