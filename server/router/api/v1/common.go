package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// FieldError describes a single invalid request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationErrorResponse is the body of every 400 response.
type ValidationErrorResponse struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

func validationError(c echo.Context, errs ...FieldError) error {
	return c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Message: "invalid request",
		Errors:  errs,
	})
}

// internalError hides failure detail from clients. The cause is logged at the
// call site.
func internalError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"message": "internal server error"})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, map[string]string{"message": message})
}
