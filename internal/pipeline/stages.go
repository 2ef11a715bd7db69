package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/status"
)

// AccessTokenCookie names the cookie carrying the access token.
const AccessTokenCookie = "accessToken"

// Authenticate requires a valid access token from the accessToken cookie or an
// Authorization bearer header, and attaches the token's user to the context.
func (p *Pipeline) Authenticate() Stage {
	return func(r *http.Request) (*http.Request, error) {
		token := bearerToken(r)
		if token == "" {
			return nil, apierror.Unauthorized("Unauthorized request")
		}

		if p.tokens == nil || p.users == nil {
			return nil, apierror.Internal(errors.New("pipeline: authentication not configured"), "")
		}

		claims, err := p.tokens.VerifyAccess(token)
		if err != nil {
			logging.FromContext(r.Context()).Debug("access token rejected", "error", err)
			return nil, apierror.Unauthorized("Invalid access token")
		}

		user, err := p.users.FindByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, apierror.Unauthorized("Invalid access token")
			}
			return nil, apierror.Internal(err, "")
		}
		user.Password = ""
		user.RefreshToken = ""

		ctx := withUser(r.Context(), user)
		ctx = logging.WithUserID(ctx, user.ID)
		return r.WithContext(ctx), nil
	}
}

func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token
		}
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

// PathID validates the named path parameter as an identifier.
func PathID(name string) Stage {
	return func(r *http.Request) (*http.Request, error) {
		return attachID(r, name, r.PathValue(name))
	}
}

// BodyID validates the named identifier from the JSON body, falling back to
// the query string. The body stays readable for the handler.
func BodyID(name string) Stage {
	return func(r *http.Request) (*http.Request, error) {
		raw, err := bodyField(r, name)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(raw) == "" {
			raw = r.URL.Query().Get(name)
		}
		return attachID(r, name, raw)
	}
}

// PathOrBodyID prefers the path parameter and falls back to BodyID.
func PathOrBodyID(name string) Stage {
	body := BodyID(name)
	return func(r *http.Request) (*http.Request, error) {
		if strings.TrimSpace(r.PathValue(name)) != "" {
			return attachID(r, name, r.PathValue(name))
		}
		return body(r)
	}
}

func attachID(r *http.Request, name, raw string) (*http.Request, error) {
	id, err := ParseID(name, raw)
	if err != nil {
		return nil, err
	}
	return r.WithContext(withID(r.Context(), name, id)), nil
}

// ParseID trims raw and checks it is a well-formed identifier.
func ParseID(name, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apierror.BadRequest(fmt.Sprintf("%s is required", name))
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", apierror.BadRequest(fmt.Sprintf("Invalid %s format", name))
	}
	return parsed.String(), nil
}

// bodyField reads one string field from a JSON body and restores the body.
func bodyField(r *http.Request, name string) (string, error) {
	body, err := bufferBody(r)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", apierror.BadRequest("Invalid JSON body")
	}

	var value string
	if raw, ok := fields[name]; ok {
		if err := json.Unmarshal(raw, &value); err != nil {
			return "", apierror.BadRequest(fmt.Sprintf("Invalid %s format", name))
		}
	}
	return value, nil
}

func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	limit := bodyLimit(r.Context())
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	_ = r.Body.Close()
	if err != nil {
		return nil, apierror.BadRequest("Unable to read request body")
	}
	if int64(len(body)) > limit {
		return nil, apierror.New(status.PayloadTooLarge, "Request body too large")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// RateLimit rejects callers that exceed limiter for scope. A nil limiter allows everything.
func (p *Pipeline) RateLimit(limiter Limiter, scope string) Stage {
	return func(r *http.Request) (*http.Request, error) {
		if !allowRequest(limiter, rateLimitKey(ClientIP(r, p.trustedProxies), scope)) {
			return nil, apierror.New(status.TooManyRequests, "Too many requests, please try again later")
		}
		return r, nil
	}
}
