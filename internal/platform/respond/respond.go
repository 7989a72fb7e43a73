// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package respond renders every API response in one envelope vocabulary.

Handlers never touch [encoding/json] or status codes directly: single
resources ride in {"data": ...}, lists add a {"meta": ...} block, and
failures become {"error", "code", "details"} with the status taken from
the [apperr.AppError]. The web client parses exactly these three shapes.
*/
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/ctxkey"
	"github.com/LaMia-3/shelfmark/pkg/pagination"
)

// SuccessEnvelope wraps a single resource payload.
type SuccessEnvelope struct {
	Data interface{} `json:"data"`
}

// PaginatedEnvelope wraps a list payload with its pagination metadata.
type PaginatedEnvelope struct {
	Data interface{}     `json:"data"`
	Meta pagination.Meta `json:"meta"`
}

// ErrorEnvelope is the failure shape. Details carries field-level
// validation errors and is omitted otherwise.
type ErrorEnvelope struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// JSON writes payload with the given status. Encoding failures are
// ignored: the status line is already on the wire.
func JSON(writer http.ResponseWriter, status int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 with the data wrapped in a [SuccessEnvelope].
func OK(writer http.ResponseWriter, data interface{}) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Data: data})
}

// Created writes a 201 with the data wrapped in a [SuccessEnvelope].
func Created(writer http.ResponseWriter, data interface{}) {
	JSON(writer, http.StatusCreated, SuccessEnvelope{Data: data})
}

// Paginated writes a 200 with the list and its [pagination.Meta].
func Paginated(writer http.ResponseWriter, data interface{}, metadata pagination.Meta) {
	JSON(writer, http.StatusOK, PaginatedEnvelope{Data: data, Meta: metadata})
}

// NoContent writes a 204.
func NoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

/*
Error renders err as an [ErrorEnvelope].

Anything that is not an [apperr.AppError] is wrapped as an internal error
first, so raw error text never reaches the client. Server-side failures
(5xx) are logged here with their cause; client mistakes are visible in the
access log and get no extra line.
*/
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	failure := apperr.As(err)
	if failure == nil {
		failure = apperr.Internal(err)
	}

	if failure.HTTPStatus >= http.StatusInternalServerError {
		logger, requestID := requestScope(request)
		logger.ErrorContext(request.Context(), "request_failed",
			slog.String("code", failure.Code),
			slog.String("request_id", requestID),
			slog.Any("cause", failure.Cause),
		)
	}

	JSON(writer, failure.HTTPStatus, ErrorEnvelope{
		Error:   failure.Message,
		Code:    failure.Code,
		Details: failure.Details,
	})
}

// requestScope pulls the per-request logger and correlation id injected
// by the middleware chain, falling back to the process defaults.
func requestScope(request *http.Request) (*slog.Logger, string) {
	logger := slog.Default()
	if scoped, ok := request.Context().Value(ctxkey.KeyLogger).(*slog.Logger); ok && scoped != nil {
		logger = scoped
	}

	requestID, _ := request.Context().Value(ctxkey.KeyRequestID).(string)
	return logger, requestID
}
