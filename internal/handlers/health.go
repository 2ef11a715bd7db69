package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/pipeline"
	"github.com/vidtube/backend/internal/status"
)

// HealthHandler responds with service health information.
type HealthHandler struct{}

// Check handles GET /health-check and echoes any JSON body back.
func (HealthHandler) Check(r *http.Request) (pipeline.Result, error) {
	var body any
	if err := pipeline.DecodeJSON(r, &body); err != nil {
		return pipeline.Result{}, err
	}
	if body == nil {
		body = map[string]string{"status": "ok"}
	}
	return pipeline.OK(body, "OK"), nil
}

// CheckCode handles GET /health-check/check-code and replies with the
// requested status code.
func (HealthHandler) CheckCode(r *http.Request) (pipeline.Result, error) {
	var body struct {
		StatusCode int `json:"statusCode"`
	}
	if err := pipeline.DecodeJSON(r, &body); err != nil {
		return pipeline.Result{}, err
	}

	code := body.StatusCode
	if code == 0 {
		if raw := strings.TrimSpace(r.URL.Query().Get("statusCode")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return pipeline.Result{}, apierror.BadRequest("statusCode must be a number")
			}
			code = parsed
		}
	}

	// 204 and 304 cannot carry the envelope.
	if code < status.OK || !status.Known(code) || code == status.NoContent || code == status.NotModified {
		return pipeline.Result{}, apierror.BadRequest("Invalid status code")
	}
	return pipeline.Result{Status: code, Data: map[string]int{"statusCode": code}, Message: status.Text(code)}, nil
}
