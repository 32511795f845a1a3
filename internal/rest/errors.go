// Copyright (c) 2026 VeilForms, Inc.
//
// This file is part of veilkey.
//
// veilkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@veilforms.com for commercial licensing options.

package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/veilforms/veilkey/pkg/disclosure"
	"github.com/veilforms/veilkey/pkg/keyring"
	"github.com/veilforms/veilkey/pkg/veilkey"
)

// Common errors
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrMissingUserID  = errors.New("missing user_id")
	ErrMissingToken   = errors.New("missing token parameter")
	ErrInvalidVersion = errors.New("invalid version parameter")
	ErrInternalError  = errors.New("internal server error")
)

// writeError writes an error response to the client.
func writeError(w http.ResponseWriter, err error, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error: err.Error(),
		Code:  statusCode,
	}

	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		log.Printf("Failed to encode error response: %v", encErr)
	}
}

// writeErrorWithMessage writes an error response with a custom message.
func writeErrorWithMessage(w http.ResponseWriter, err error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:   err.Error(),
		Message: message,
		Code:    statusCode,
	}

	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		log.Printf("Failed to encode error response: %v", encErr)
	}
}

// mapErrorToStatusCode maps errors to HTTP status codes. Expired tokens
// are Gone and consumed tokens are Conflict so a form owner retrying a
// used link gets an actionable failure, while unknown tokens stay an
// indistinct 404.
func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, disclosure.ErrTokenNotFound),
		errors.Is(err, keyring.ErrFormNotFound),
		errors.Is(err, keyring.ErrVersionNotFound):
		return http.StatusNotFound
	case errors.Is(err, disclosure.ErrTokenExpired):
		return http.StatusGone
	case errors.Is(err, disclosure.ErrTokenConsumed):
		return http.StatusConflict
	case errors.Is(err, keyring.ErrVersionExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrMissingUserID),
		errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrInvalidVersion),
		errors.Is(err, disclosure.ErrInvalidToken),
		errors.Is(err, veilkey.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleError maps the error to a status code and writes the response.
func handleError(w http.ResponseWriter, err error) {
	statusCode := mapErrorToStatusCode(err)
	writeError(w, err, statusCode)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
		writeError(w, err, http.StatusInternalServerError)
	}
}
