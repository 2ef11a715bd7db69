// Package pipeline runs every API route through the same ordered stages:
// authentication, identifier validation, the handler itself and finally a
// single response envelope.
package pipeline

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/response"
	"github.com/vidtube/backend/internal/status"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (*auth.Claims, error)
}

// UserLoader loads the principal named by a verified token.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Result is what a handler hands back for the success envelope.
type Result struct {
	Status  int
	Data    any
	Message string
	Cookies []*http.Cookie
}

// OK builds a 200 result.
func OK(data any, message string) Result {
	return Result{Status: status.OK, Data: data, Message: message}
}

// Created builds a 201 result.
func Created(data any, message string) Result {
	return Result{Status: status.Created, Data: data, Message: message}
}

// HandlerFunc performs the route's store operation. A returned error becomes
// the failure envelope.
type HandlerFunc func(r *http.Request) (Result, error)

// Stage validates or enriches a request before the handler runs. Returning an
// error stops the pipeline.
type Stage func(r *http.Request) (*http.Request, error)

// Config wires the pipeline's collaborators. Metrics may be nil.
type Config struct {
	Tokens         TokenVerifier
	Users          UserLoader
	Metrics        *metrics.Metrics
	BodyLimit      int64
	TrustedProxies []netip.Prefix
}

// Pipeline builds http.HandlerFuncs for API routes.
type Pipeline struct {
	tokens    TokenVerifier
	users     UserLoader
	metrics   *metrics.Metrics
	bodyLimit int64

	trustedProxies []netip.Prefix
}

// New constructs a Pipeline.
func New(cfg Config) *Pipeline {
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 16 << 10
	}
	return &Pipeline{
		tokens:    cfg.Tokens,
		users:     cfg.Users,
		metrics:   cfg.Metrics,
		bodyLimit: cfg.BodyLimit,

		trustedProxies: cfg.TrustedProxies,
	}
}

// Handle runs stages in order and then handler, writing exactly one envelope.
// name labels the route in logs and metrics.
func (p *Pipeline) Handle(name string, handler HandlerFunc, stages ...Stage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := logging.StartSpan(r.Context(), name)
		defer span.End()

		r = r.WithContext(context.WithValue(ctx, bodyLimitKey{}, p.bodyLimit))

		statusCode := p.run(w, r, handler, stages)

		span.SetAttr("status", statusCode)
		p.metrics.ObserveRequest(r.Method, name, statusCode, time.Since(start))
	}
}

func (p *Pipeline) run(w http.ResponseWriter, r *http.Request, handler HandlerFunc, stages []Stage) int {
	for _, stage := range stages {
		next, err := stage(r)
		if err != nil {
			return fail(w, r, err)
		}
		r = next
	}
	defer removeMultipartFiles(r)

	result, err := handler(r)
	if err != nil {
		return fail(w, r, err)
	}

	if result.Status == 0 {
		result.Status = status.OK
	}
	for _, cookie := range result.Cookies {
		http.SetCookie(w, cookie)
	}
	response.Success(r.Context(), w, result.Status, result.Data, result.Message)
	return result.Status
}

// removeMultipartFiles deletes the temp files behind a parsed multipart form.
// net/http only removes forms parsed on the request value it dispatched.
func removeMultipartFiles(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		logging.FromContext(r.Context()).Warn("remove multipart temp files", "error", err)
	}
}

func fail(w http.ResponseWriter, r *http.Request, err error) int {
	apiErr := apierror.From(err)
	response.Error(r.Context(), w, apiErr)
	return apiErr.StatusCode
}
