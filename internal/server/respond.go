package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// FieldError is one rejected request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func (s *Server) internalError(c *gin.Context, err error, what string) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg(what)
	respondMessage(c, http.StatusInternalServerError, "Internal server error")
}

// bind decodes the JSON body into req and validates it. On failure the
// response has been written and false is returned.
func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.logger.Warn().Err(err).Msg("Invalid request body")
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return s.check(c, req)
}

// check validates an already decoded request
func (s *Server) check(c *gin.Context, req any) bool {
	err := s.validator.Struct(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		s.internalError(c, err, "Validator failed")
		return false
	}

	fields := make([]FieldError, 0, len(verrs))
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := jsonName(fe.Field())
		msg := fieldMessage(fe)
		fields = append(fields, FieldError{Field: name, Message: msg})
		parts = append(parts, name+" "+msg)
	}

	s.logger.Warn().Err(err).Msg("Request validation failed")
	c.JSON(http.StatusBadRequest, gin.H{
		"message": "Validation failed: " + strings.Join(parts, "; "),
		"errors":  fields,
	})
	return false
}

// jsonName lower-cases the first letter of a Go field name, which matches
// the camelCase JSON names of every request type
func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "hhmm":
		return "must be a time in HH:MM format"
	case "phone":
		return "must be a phone number of 10 to 15 digits"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
