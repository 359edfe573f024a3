// Package response defines the JSON envelope every HTTP reply uses: data
// on success, a coded error otherwise, never both.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the wire shape of every reply.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError is the machine-readable error half of the envelope. Code is a
// stable identifier clients can branch on; Message is for humans.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success replies 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created replies 201 with the created resource.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Body{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	})
}

// BadRequest replies 400: malformed or invalid input.
func BadRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// Unauthorized replies 401: missing or invalid credentials.
func Unauthorized(c *gin.Context, message string) {
	fail(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// Forbidden replies 403: authenticated but not allowed.
func Forbidden(c *gin.Context, message string) {
	fail(c, http.StatusForbidden, "FORBIDDEN", message)
}

// NotFound replies 404.
func NotFound(c *gin.Context, message string) {
	fail(c, http.StatusNotFound, "NOT_FOUND", message)
}

// Conflict replies 409: the request contradicts current state, such as a
// duplicate email or an existing friendship.
func Conflict(c *gin.Context, message string) {
	fail(c, http.StatusConflict, "CONFLICT", message)
}

// InternalError replies 500.
func InternalError(c *gin.Context, message string) {
	fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}
