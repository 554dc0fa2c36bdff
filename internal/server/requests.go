package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"bulletin/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Request fields are pointers so that "required" means present in the body.
// Empty strings and zero ids pass validation and are left to the service.

// ListBoardsRequest is the body of POST /list.
type ListBoardsRequest struct {
	PageNum     *int   `json:"pageNum" validate:"required,min=1"`
	RowsPerPage *int   `json:"rowsPerPage" validate:"required,min=1,max=100"`
	Search      string `json:"search,omitempty" validate:"max=200"`
}

// BoardIDRequest is the body of POST /detail.
type BoardIDRequest struct {
	ID *uint `json:"id" validate:"required"`
}

// InsertBoardRequest is the body of POST /insert. Title length is bounded by
// models.TitleMaxLength.
type InsertBoardRequest struct {
	Title    *string `json:"title" validate:"required,max=200"`
	Content  *string `json:"content" validate:"required"`
	Writer   *string `json:"writer" validate:"required,max=50"`
	Password *string `json:"password" validate:"required,max=100"`
}

// BoardPasswordRequest is the body of POST /checkPassword and POST /delete.
type BoardPasswordRequest struct {
	ID       *uint   `json:"id" validate:"required"`
	Password *string `json:"password" validate:"required,max=100"`
}

// UpdateBoardRequest is the body of POST /update.
type UpdateBoardRequest struct {
	ID       *uint   `json:"id" validate:"required"`
	Title    *string `json:"title" validate:"required,max=200"`
	Content  *string `json:"content" validate:"required"`
	Password *string `json:"password" validate:"required,max=100"`
}

// ListBoardsResponse is the body returned by POST /list.
type ListBoardsResponse struct {
	Result     []models.BoardSummary `json:"result"`
	TotalCount int64                 `json:"totalCount"`
	TotalPages int64                 `json:"totalPages"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindBody decodes the JSON body into dst and validates it. Every failure is
// returned as a 400 *models.AppError.
func bindBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return models.NewValidationError(decodeDetails(err), err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return models.NewValidationError(fieldErrors(verrs), err)
		}
		return models.NewValidationError(nil, err)
	}
	return nil
}

func decodeDetails(err error) []models.FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []models.FieldError{{
			Field:   typeErr.Field,
			Rule:    "type",
			Param:   typeErr.Type.String(),
			Message: fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type.String()),
		}}
	}
	return []models.FieldError{{
		Field:   "body",
		Rule:    "json",
		Message: "request body must be a valid JSON object",
	}}
}

func fieldErrors(verrs validator.ValidationErrors) []models.FieldError {
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: ruleMessage(fe),
		})
	}
	return out
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed the %s rule", fe.Field(), fe.Tag())
	}
}

func totalPages(total int64, rowsPerPage int) int64 {
	if rowsPerPage <= 0 {
		return 0
	}
	per := int64(rowsPerPage)
	return (total + per - 1) / per
}
