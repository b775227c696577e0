// Package handler holds what the JSON API handlers share: the response
// envelope, the error handler and request parsing helpers.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-rbac-admin/go-rbac-admin/internal/apperror"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/paginate"
)

const (
	// APIPath is the prefix of every API route.
	APIPath = "/api"

	// RouterRootPath is the root path inside a route group.
	RouterRootPath = "/"

	// ErrNilACDFatalLogMsg is used if a handler dependency is nil.
	ErrNilACDFatalLogMsg = "app, guard or service is nil"

	internalErrorMessage = "internal server error"
)

// Response is the envelope of every successful response.
type Response struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorResponse is the envelope of every failed response.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// OK sends data with status 200.
func OK(c *fiber.Ctx, data any) error {
	return send(c, http.StatusOK, "success", data)
}

// Created sends data with status 201.
func Created(c *fiber.Ctx, data any) error {
	return send(c, http.StatusCreated, "created", data)
}

// Message sends a message without data.
func Message(c *fiber.Ctx, msg string) error {
	return send(c, http.StatusOK, msg, nil)
}

func send(c *fiber.Ctx, status int, msg string, data any) error {
	return c.Status(status).JSON(Response{
		Code:      status,
		Message:   msg,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// ErrorHandler renders err as ErrorResponse. Messages of internal errors
// are logged but never sent.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := apperror.Status(err)
	msg := err.Error()

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		msg = fe.Message
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")

		msg = internalErrorMessage
	}

	return c.Status(status).JSON(ErrorResponse{
		Success:   false,
		Code:      status,
		Message:   msg,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Bind parses the request body into out.
func Bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.Validation("malformed request body: %v", err)
	}

	return nil
}

// ID parses the positive integer route parameter name.
func ID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 0)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid %s %q", name, c.Params(name))
	}

	return uint(id), nil
}

// UserID parses the positive integer route parameter name as a user id.
func UserID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid %s %q", name, c.Params(name))
	}

	return id, nil
}

// Filter parses the list query of an admin table.
func Filter(c *fiber.Ctx) (paginate.Filter, error) {
	var f paginate.Filter
	if err := c.QueryParser(&f); err != nil {
		return f, apperror.Validation("malformed query: %v", err)
	}

	return f, nil
}
