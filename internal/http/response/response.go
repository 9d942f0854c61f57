package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	types "github.com/yungbote/sparkquest-backend/internal/domain"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type FieldErrorsEnvelope struct {
	Errors []types.FieldError `json:"errors"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondFieldErrors(c *gin.Context, status int, fields []types.FieldError) {
	if fields == nil {
		fields = []types.FieldError{}
	}
	c.JSON(status, FieldErrorsEnvelope{Errors: fields})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func StatusForCode(code types.ErrorCode) int {
	switch code {
	case types.CodeValidation:
		return http.StatusBadRequest
	case types.CodeNotFound:
		return http.StatusNotFound
	case types.CodeConflict:
		return http.StatusConflict
	case types.CodeUnauthorized:
		return http.StatusUnauthorized
	case types.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondDomainError writes err using the envelope matching its code.
// Validation failures and fieldErrors-style endpoints get the field list.
func RespondDomainError(c *gin.Context, err error, fieldErrors bool) {
	code := types.CodeOf(err)
	if code == "" {
		code = types.CodeInternal
	}
	status := StatusForCode(code)
	if fields := types.FieldsOf(err); fieldErrors && len(fields) > 0 {
		RespondFieldErrors(c, status, fields)
		return
	}
	if fieldErrors && code == types.CodeValidation {
		RespondFieldErrors(c, status, []types.FieldError{{Path: "", Message: messageOf(err)}})
		return
	}
	if status == http.StatusInternalServerError || code == types.CodeStorage {
		RespondError(c, status, string(code), errors.New("internal server error"))
		return
	}
	RespondError(c, status, string(code), errors.New(messageOf(err)))
}

func messageOf(err error) string {
	var de *types.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

// BindingFieldErrors converts a gin binding failure into field errors keyed by
// the JSON field name.
func BindingFieldErrors(err error) []types.FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return []types.FieldError{{Path: typeErr.Field, Message: typeErr.Field + " must be of type " + typeErr.Type.String()}}
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []types.FieldError{{Path: "body", Message: "request body is not valid JSON"}}
	}
	out := make([]types.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, types.FieldError{Path: fe.Field(), Message: bindingMessage(fe)})
	}
	return out
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "email":
		return fe.Field() + " must be a valid email"
	default:
		return fe.Field() + " is invalid"
	}
}

var registerOnce sync.Once

// UseJSONFieldNames makes binding errors report json tag names.
func UseJSONFieldNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}
