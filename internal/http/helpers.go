package http

import (
	"errors"
	"net/http"
	"strings"

	"spendview/internal/api"
	"spendview/internal/core"
	"spendview/internal/viewmodel"
)

// requestToken returns the caller's API token from "Authorization: Token
// <t>" or "Authorization: Bearer <t>". Empty when absent.
func requestToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok {
		return ""
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// confirmed reports whether a destructive request carries explicit
// confirmation.
func confirmed(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("confirm"), "true") ||
		strings.EqualFold(r.Header.Get("X-Confirm"), "true")
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// classify maps an error onto the status and the one message the user
// sees for it.
func classify(err error) (int, string) {
	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized, "Your session is not valid, please log in again"
	case errors.Is(err, api.ErrNotFound), errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, "It already exists"
	case errors.Is(err, api.ErrValidation) && errors.As(err, &apiErr):
		msg := apiErr.Message
		if msg == "" {
			msg = "The request was rejected"
		}
		return http.StatusUnprocessableEntity, msg
	case core.IsValidation(err),
		errors.Is(err, errInvalidParam),
		errors.Is(err, viewmodel.ErrInvalidPeriod),
		errors.Is(err, viewmodel.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusBadGateway, "The expense service is unavailable, please try again later"
	}
}
