package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"familytodo/internal/apperr"
)

// RequestContext is what an API handler sees of the request: the
// authenticated user, path parameters and the body.
type RequestContext struct {
	Request *http.Request
	UserID  string
}

// Context returns the request's context
func (rc *RequestContext) Context() context.Context {
	return rc.Request.Context()
}

// Param returns a path parameter by name
func (rc *RequestContext) Param(name string) string {
	return rc.Request.PathValue(name)
}

// Decode reads a JSON body into dst. An empty body leaves dst untouched.
func (rc *RequestContext) Decode(dst any) error {
	if err := json.NewDecoder(rc.Request.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Wrap(apperr.KindValidation, ErrBadRequest, err)
	}
	return nil
}

// Result is a successful response
type Result struct {
	Status int
	Body   any
}

// OK wraps body in a 200 result
func OK(body any) Result {
	return Result{Status: http.StatusOK, Body: body}
}

// Created wraps body in a 201 result
func Created(body any) Result {
	return Result{Status: http.StatusCreated, Body: body}
}

// HandlerFunc is an API handler. Returned errors are mapped to JSON
// error responses in one place.
type HandlerFunc func(*RequestContext) (Result, error)

// serve adapts h to net/http for an already identified user
func serve(h HandlerFunc, userID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := h(&RequestContext{Request: r, UserID: userID})
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		writeJSON(w, result.Status, result.Body)
	}
}

// Public adapts a handler that needs no authentication
func Public(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serve(h, "")(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
