// Package errors traduce errores de la aplicación al envelope HTTP
// { success: false, error: { global, fields? } }.
package errors

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

type errorBody struct {
	Global string            `json:"global"`
	Fields map[string]string `json:"fields,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// WriteError escribe el envelope de error. Los 5xx se loguean con la causa;
// el cliente sólo ve el mensaje genérico.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorCtx(context.Background(), w, err)
}

// WriteErrorCtx es WriteError con el logger del request.
func WriteErrorCtx(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := FromError(err)

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.From(ctx).Error("request failed",
			logger.Status(appErr.HTTPStatus),
			logger.Err(appErr.Err),
		)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}
	w.WriteHeader(appErr.HTTPStatus)

	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Success: false,
		Error:   errorBody{Global: appErr.Global, Fields: appErr.Fields},
	})
}
