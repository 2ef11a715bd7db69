package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/status"
)

type (
	userKey      struct{}
	idKey        struct{ name string }
	bodyLimitKey struct{}
)

func withUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// CurrentUser returns the authenticated principal, if any.
func CurrentUser(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey{}).(models.User)
	return user, ok
}

// WithUser attaches user as the authenticated principal. Intended for tests
// and internal callers that authenticate by other means.
func WithUser(ctx context.Context, user models.User) context.Context {
	return withUser(ctx, user)
}

func withID(ctx context.Context, name, id string) context.Context {
	return context.WithValue(ctx, idKey{name: name}, id)
}

// ID returns the validated identifier attached under name.
func ID(ctx context.Context, name string) string {
	id, _ := ctx.Value(idKey{name: name}).(string)
	return id
}

func bodyLimit(ctx context.Context) int64 {
	if limit, ok := ctx.Value(bodyLimitKey{}).(int64); ok && limit > 0 {
		return limit
	}
	return 16 << 10
}

// DecodeJSON decodes the request body into dst. An empty body leaves dst
// untouched so field validation can report what is missing.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	limit := bodyLimit(r.Context())
	decoder := json.NewDecoder(io.LimitReader(r.Body, limit+1))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			return apierror.BadRequest("Invalid JSON body", fmt.Sprintf("%s has the wrong type", typeErr.Field))
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return apierror.BadRequest("Invalid JSON body")
		}
		return apierror.BadRequest("Invalid JSON body")
	}
	return nil
}

// Field pairs a payload field name with its submitted value.
type Field struct {
	Name  string
	Value string
}

// F is shorthand for constructing a Field.
func F(name, value string) Field {
	return Field{Name: name, Value: value}
}

// Require fails with BadRequest listing every field whose trimmed value is empty.
func Require(message string, fields ...Field) error {
	var missing []string
	for _, field := range fields {
		if strings.TrimSpace(field.Value) == "" {
			missing = append(missing, fmt.Sprintf("%s is required", field.Name))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if message == "" {
		message = "All fields are required"
	}
	return apierror.BadRequest(message, missing...)
}

// ParsePage reads page and limit from the query string. Missing values take
// the defaults, and limit is capped at maxLimit.
func ParsePage(r *http.Request, defaultLimit, maxLimit int) (models.PageRequest, error) {
	query := r.URL.Query()
	page, err := positiveInt(query.Get("page"), 1)
	if err != nil {
		return models.PageRequest{}, apierror.BadRequest("page must be a positive integer")
	}
	limit, err := positiveInt(query.Get("limit"), defaultLimit)
	if err != nil {
		return models.PageRequest{}, apierror.BadRequest("limit must be a positive integer")
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return models.PageRequest{Page: page, Limit: limit}, nil
}

func positiveInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}

// ParseMultipart parses a multipart form no larger than maxBytes.
func ParseMultipart(r *http.Request, maxBytes int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return apierror.New(status.UnsupportedMediaType, "Expected multipart/form-data")
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierror.New(status.PayloadTooLarge, "Upload too large")
		}
		return apierror.BadRequest("Invalid multipart form")
	}
	return nil
}
