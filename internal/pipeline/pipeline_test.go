package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type stubVerifier struct {
	tokens map[string]string
}

func (s stubVerifier) VerifyAccess(token string) (*auth.Claims, error) {
	userID, ok := s.tokens[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: userID}, nil
}

type stubUsers struct {
	users map[string]models.User
}

func (s stubUsers) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Errors     []string        `json:"errors"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newTestPipeline() (*Pipeline, models.User) {
	user := models.User{ID: uuid.NewString(), Username: "alice", Password: "hash", RefreshToken: "slot"}
	p := New(Config{
		Tokens: stubVerifier{tokens: map[string]string{"good": user.ID, "orphan": uuid.NewString()}},
		Users:  stubUsers{users: map[string]models.User{user.ID: user}},
	})
	return p, user
}

func TestHandleWritesSuccessEnvelope(t *testing.T) {
	p, _ := newTestPipeline()
	handler := p.Handle("test.ok", func(r *http.Request) (Result, error) {
		return Created(map[string]string{"hello": "world"}, "made"), nil
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "made", env.Message)
	assert.JSONEq(t, `{"hello":"world"}`, string(env.Data))
}

func TestHandleShortCircuitsOnFirstStageError(t *testing.T) {
	p, _ := newTestPipeline()
	var ran []string
	stage := func(name string, err error) Stage {
		return func(r *http.Request) (*http.Request, error) {
			ran = append(ran, name)
			return r, err
		}
	}
	handlerCalled := false
	handler := p.Handle("test.stages", func(r *http.Request) (Result, error) {
		handlerCalled = true
		return OK(nil, ""), nil
	}, stage("first", nil), stage("second", apierror.BadRequest("stop")), stage("third", nil))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second"}, ran)
	assert.False(t, handlerCalled)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "stop", env.Message)
	assert.NotNil(t, env.Errors)
}

func TestHandleHidesUntypedErrors(t *testing.T) {
	p, _ := newTestPipeline()
	handler := p.Handle("test.fail", func(r *http.Request) (Result, error) {
		return Result{}, errors.New("connection reset by peer")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.Equal(t, apierror.DefaultMessage, decodeEnvelope(t, rec).Message)
}

func TestHandleSetsCookies(t *testing.T) {
	p, _ := newTestPipeline()
	handler := p.Handle("test.cookie", func(r *http.Request) (Result, error) {
		res := OK(nil, "")
		res.Cookies = []*http.Cookie{{Name: "accessToken", Value: "abc", HttpOnly: true}}
		return res, nil
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc", cookies[0].Value)
}

func TestAuthenticate(t *testing.T) {
	p, user := newTestPipeline()
	var seen models.User
	handler := p.Handle("test.auth", func(r *http.Request) (Result, error) {
		seen, _ = CurrentUser(r.Context())
		return OK(nil, ""), nil
	}, p.Authenticate())

	cases := []struct {
		name    string
		prepare func(r *http.Request)
		code    int
		message string
	}{
		{name: "missing", prepare: func(*http.Request) {}, code: http.StatusUnauthorized, message: "Unauthorized request"},
		{name: "invalid", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, code: http.StatusUnauthorized, message: "Invalid access token"},
		{name: "deleted user", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer orphan") }, code: http.StatusUnauthorized, message: "Invalid access token"},
		{name: "header", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, code: http.StatusOK},
		{name: "cookie", prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "good"}) }, code: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = models.User{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.prepare(req)
			rec := httptest.NewRecorder()
			handler(rec, req)

			require.Equal(t, tc.code, rec.Code, rec.Body.String())
			if tc.code != http.StatusOK {
				assert.Equal(t, tc.message, decodeEnvelope(t, rec).Message)
				return
			}
			assert.Equal(t, user.ID, seen.ID)
			assert.Empty(t, seen.Password)
			assert.Empty(t, seen.RefreshToken)
		})
	}
}

func TestPathID(t *testing.T) {
	p, _ := newTestPipeline()
	mux := http.NewServeMux()
	var got string
	mux.HandleFunc("GET /videos/{videoId}", p.Handle("test.path", func(r *http.Request) (Result, error) {
		got = ID(r.Context(), "videoId")
		return OK(nil, ""), nil
	}, PathID("videoId")))

	id := uuid.NewString()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/videos/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, got)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/videos/not-an-id", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid videoId format", decodeEnvelope(t, rec).Message)
}

func TestBodyIDKeepsBodyReadable(t *testing.T) {
	p, _ := newTestPipeline()
	id := uuid.NewString()
	var (
		got  string
		body struct {
			VideoID string `json:"videoId"`
			Note    string `json:"note"`
		}
	)
	handler := p.Handle("test.body", func(r *http.Request) (Result, error) {
		got = ID(r.Context(), "videoId")
		return OK(nil, ""), DecodeJSON(r, &body)
	}, BodyID("videoId"))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"videoId":" `+id+` ","note":"hi"}`)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, id, got)
	assert.Equal(t, "hi", body.Note)
}

func TestBodyIDFallsBackToQuery(t *testing.T) {
	p, _ := newTestPipeline()
	id := uuid.NewString()
	var got string
	handler := p.Handle("test.query", func(r *http.Request) (Result, error) {
		got = ID(r.Context(), "channelId")
		return OK(nil, ""), nil
	}, BodyID("channelId"))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/?channelId="+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, got)

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "channelId is required", decodeEnvelope(t, rec).Message)
}

func TestBodyIDRejectsOversizedBody(t *testing.T) {
	p := New(Config{BodyLimit: 16})
	handler := p.Handle("test.large", func(r *http.Request) (Result, error) {
		return OK(nil, ""), nil
	}, BodyID("videoId"))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"videoId":"`+uuid.NewString()+`"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestPathOrBodyIDPrefersPath(t *testing.T) {
	p, _ := newTestPipeline()
	mux := http.NewServeMux()
	var got string
	mux.HandleFunc("PATCH /publish/{videoId}", p.Handle("test.either", func(r *http.Request) (Result, error) {
		got = ID(r.Context(), "videoId")
		return OK(nil, ""), nil
	}, PathOrBodyID("videoId")))
	mux.HandleFunc("PATCH /publish", p.Handle("test.either.body", func(r *http.Request) (Result, error) {
		got = ID(r.Context(), "videoId")
		return OK(nil, ""), nil
	}, PathOrBodyID("videoId")))

	pathID, bodyID := uuid.NewString(), uuid.NewString()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/publish/"+pathID, strings.NewReader(`{"videoId":"`+bodyID+`"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pathID, got)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/publish", strings.NewReader(`{"videoId":"`+bodyID+`"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bodyID, got)
}

func TestRequireListsEveryMissingField(t *testing.T) {
	err := Require("", F("username", "bob"), F("email", "  "), F("password", ""))
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, []string{"email is required", "password is required"}, apiErr.Errors)

	assert.NoError(t, Require("", F("username", "bob")))
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "x", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.NoError(t, DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	var apiErr *apierror.Error
	require.ErrorAs(t, DecodeJSON(req, &dst), &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage(httptest.NewRequest(http.MethodGet, "/", nil), 10, 100)
	require.NoError(t, err)
	assert.Equal(t, models.PageRequest{Page: 1, Limit: 10}, page)

	page, err = ParsePage(httptest.NewRequest(http.MethodGet, "/?page=3&limit=500", nil), 10, 100)
	require.NoError(t, err)
	assert.Equal(t, models.PageRequest{Page: 3, Limit: 100}, page)

	_, err = ParsePage(httptest.NewRequest(http.MethodGet, "/?page=0", nil), 10, 100)
	assert.Error(t, err)
	_, err = ParsePage(httptest.NewRequest(http.MethodGet, "/?limit=abc", nil), 10, 100)
	assert.Error(t, err)
}

type countingLimiter struct {
	keys  []string
	allow bool
}

func (c *countingLimiter) Allow(key string) bool {
	c.keys = append(c.keys, key)
	return c.allow
}

func TestRateLimitStage(t *testing.T) {
	p, _ := newTestPipeline()
	limiter := &countingLimiter{}
	handler := p.Handle("test.limit", func(r *http.Request) (Result, error) {
		return OK(nil, ""), nil
	}, p.RateLimit(limiter, "login"))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "198.51.100.7:4321"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, []string{"login:198.51.100.7"}, limiter.keys)

	limiter.allow = true
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitStageBehindTrustedProxy(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	p := New(Config{TrustedProxies: trusted})
	limiter := &countingLimiter{allow: true}
	handler := p.Handle("test.limit", func(r *http.Request) (Result, error) {
		return OK(nil, ""), nil
	}, p.RateLimit(limiter, "login"))

	for _, spoofed := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.2:5555"
		req.Header.Set("X-Forwarded-For", spoofed+", 203.0.113.5, 10.0.0.9")
		handler(httptest.NewRecorder(), req)
	}

	assert.Equal(t, []string{"login:203.0.113.5", "login:203.0.113.5"}, limiter.keys)
}

func TestClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.10"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		remote    string
		forwarded string
		trusted   bool
		want      string
	}{
		{name: "no proxies configured", remote: "10.0.0.1:80", forwarded: "203.0.113.5", want: "10.0.0.1"},
		{name: "untrusted peer", remote: "198.51.100.7:80", forwarded: "203.0.113.5", trusted: true, want: "198.51.100.7"},
		{name: "trusted cidr", remote: "10.1.2.3:80", forwarded: "203.0.113.5", trusted: true, want: "203.0.113.5"},
		{name: "trusted single ip", remote: "192.0.2.10:80", forwarded: "203.0.113.5", trusted: true, want: "203.0.113.5"},
		{name: "only proxies forwarded", remote: "10.1.2.3:80", forwarded: "10.0.0.4", trusted: true, want: "10.1.2.3"},
		{name: "no header", remote: "10.1.2.3:80", trusted: true, want: "10.1.2.3"},
		{name: "bare remote", remote: "198.51.100.7", want: "198.51.100.7"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			var prefixes []netip.Prefix
			if tc.trusted {
				prefixes = trusted
			}
			if got := ClientIP(req, prefixes); got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/8", "proxy.internal"})
	require.Error(t, err)

	prefixes, err := ParseTrustedProxies([]string{" ", "::ffff:10.0.0.1"})
	require.NoError(t, err)
	require.Len(t, prefixes, 1)
	assert.True(t, prefixes[0].Contains(netip.MustParseAddr("10.0.0.1")))
}

func TestParseMultipartRejectsOtherContentTypes(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("{}")))
	req.Header.Set("Content-Type", "application/json")
	var apiErr *apierror.Error
	require.ErrorAs(t, ParseMultipart(req, 1<<20), &apiErr)
	assert.Equal(t, http.StatusUnsupportedMediaType, apiErr.StatusCode)
}

func TestHandleRemovesMultipartTempFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("videoFile", "clip.mp4")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0x42}, 33<<20))
	require.NoError(t, err)
	require.NoError(t, form.Close())
	payload := body.Bytes()

	tests := []struct {
		name    string
		failure error
		want    int
	}{
		{name: "handler succeeds", want: http.StatusOK},
		{name: "handler fails", failure: apierror.BadRequest("Title is required"), want: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := New(Config{})
			srv := httptest.NewServer(p.Handle("upload", func(r *http.Request) (Result, error) {
				if err := ParseMultipart(r, 64<<20); err != nil {
					return Result{}, err
				}
				if len(r.MultipartForm.File["videoFile"]) != 1 {
					t.Errorf("expected the uploaded file part")
				}
				if tc.failure != nil {
					return Result{}, tc.failure
				}
				return OK(nil, "stored"), nil
			}))
			defer srv.Close()

			resp, err := http.Post(srv.URL, form.FormDataContentType(), bytes.NewReader(payload))
			require.NoError(t, err)
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			require.Equal(t, tc.want, resp.StatusCode)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			for _, entry := range entries {
				if strings.HasPrefix(entry.Name(), "multipart-") {
					t.Fatalf("temp file %s left behind", entry.Name())
				}
			}
		})
	}
}
