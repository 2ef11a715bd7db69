// Package response writes the uniform JSON envelope returned by every API
// endpoint.
package response

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/status"
)

// SuccessBody is the envelope written by Success.
type SuccessBody struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// FailureBody is the envelope written by Failure.
type FailureBody struct {
	StatusCode int      `json:"statusCode"`
	Errors     []string `json:"errors"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
}

// Success writes data under the given status. The success flag is derived
// from the status code.
func Success(ctx context.Context, w http.ResponseWriter, statusCode int, data any, message string) {
	write(ctx, w, statusCode, SuccessBody{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    status.IsSuccess(statusCode),
	})
}

// Failure writes an error envelope.
func Failure(ctx context.Context, w http.ResponseWriter, statusCode int, errs []string, message string) {
	if errs == nil {
		errs = []string{}
	}
	write(ctx, w, statusCode, FailureBody{
		StatusCode: statusCode,
		Errors:     errs,
		Message:    message,
		Success:    status.IsSuccess(statusCode),
	})
}

// Error converts err into a failure envelope. The cause is logged, never
// returned to the client.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	apiErr := apierror.From(err)
	if apiErr == nil {
		apiErr = apierror.New(0, "")
	}
	if apiErr.Cause != nil {
		level := slog.LevelDebug
		if apiErr.StatusCode >= status.InternalServerError {
			level = slog.LevelError
		}
		logging.FromContext(ctx).Log(ctx, level, "request error cause", "status", apiErr.StatusCode, "error", apiErr.Cause)
	}
	Failure(ctx, w, apiErr.StatusCode, apiErr.ErrorList(), apiErr.Message)
}

func write(ctx context.Context, w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", statusCode, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case statusCode >= status.InternalServerError:
		logger.Error("request failed", "status", statusCode, "response", payload)
	case statusCode >= status.BadRequest:
		logger.Warn("request returned client error", "status", statusCode, "response", payload)
	}
}
