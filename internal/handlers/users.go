package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/pipeline"
	"github.com/vidtube/backend/internal/repositories"
)

const (
	refreshTokenCookie = "refreshToken"
	minPasswordLength  = 8
)

// UserHandler implements account, session and channel endpoints.
type UserHandler struct {
	Users          UserStore
	Sessions       SessionManager
	Media          MediaService
	CookieSecure   bool
	MaxUploadBytes int64
	NowFunc        func() time.Time
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	Fullname *string `json:"fullname"`
	Email    *string `json:"email"`
	Username *string `json:"username"`
}

type sessionResponse struct {
	User         *models.User `json:"user,omitempty"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// Register handles POST /users/register.
func (h UserHandler) Register(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := pipeline.ParseMultipart(r, h.MaxUploadBytes); err != nil {
		return pipeline.Result{}, err
	}

	fullname := strings.TrimSpace(r.FormValue("fullname"))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	password := r.FormValue("password")

	if err := pipeline.Require("All fields are required",
		pipeline.F("fullname", fullname),
		pipeline.F("email", email),
		pipeline.F("username", username),
		pipeline.F("password", password),
	); err != nil {
		return pipeline.Result{}, err
	}
	if err := validateEmail(email); err != nil {
		return pipeline.Result{}, err
	}
	if len(password) < minPasswordLength {
		return pipeline.Result{}, apierror.BadRequest("Password must be at least 8 characters")
	}

	if _, err := h.Users.FindByLogin(ctx, username, email); err == nil {
		logger.Warn("register existing account", "username", username)
		return pipeline.Result{}, apierror.Conflict("User with email or username already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return pipeline.Result{}, apierror.Internal(err, "Unable to verify existing accounts")
	}

	avatarFile := formFile(r, "avatar")
	if avatarFile == nil {
		return pipeline.Result{}, apierror.BadRequest("Avatar file is required")
	}

	avatar := h.Media.Upload(ctx, media.FolderAvatars, avatarFile)
	if avatar == nil {
		return pipeline.Result{}, apierror.Internal(errors.New("avatar upload returned no asset"), "Avatar upload failed")
	}

	var coverURL string
	if coverFile := formFile(r, "coverImage"); coverFile != nil {
		if cover := h.Media.Upload(ctx, media.FolderCovers, coverFile); cover != nil {
			coverURL = cover.URL
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.Media.Discard(ctx, avatar.URL, coverURL)
		return pipeline.Result{}, apierror.Internal(err, "Failed to secure password")
	}

	now := h.now()
	user := models.User{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      email,
		Fullname:   fullname,
		Avatar:     avatar.URL,
		CoverImage: coverURL,
		Password:   string(hashed),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		h.Media.Discard(ctx, avatar.URL, coverURL)
		if errors.Is(err, repositories.ErrConflict) {
			return pipeline.Result{}, apierror.Conflict("User with email or username already exists")
		}
		return pipeline.Result{}, apierror.Internal(err, "Something went wrong while registering the user")
	}

	logger.Info("user registered", "userId", user.ID)
	return pipeline.Created(user, "User registered successfully"), nil
}

// Login handles POST /users/login.
func (h UserHandler) Login(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	var req loginRequest
	if err := pipeline.DecodeJSON(r, &req); err != nil {
		return pipeline.Result{}, err
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" && req.Email == "" {
		return pipeline.Result{}, apierror.BadRequest("username or email is required")
	}
	if err := pipeline.Require("", pipeline.F("password", req.Password)); err != nil {
		return pipeline.Result{}, err
	}

	user, err := h.Users.FindByLogin(ctx, req.Username, req.Email)
	if err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "User does not exist")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logging.FromContext(ctx).Warn("login password mismatch", "userId", user.ID)
		return pipeline.Result{}, apierror.Unauthorized("Invalid user credentials")
	}

	tokens, err := h.Sessions.Issue(ctx, identityOf(user))
	if err != nil {
		return pipeline.Result{}, apierror.Internal(err, "Failed to create session")
	}

	result := pipeline.OK(sessionResponse{
		User:         &user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "User logged in successfully")
	result.Cookies = h.sessionCookies(tokens)
	return result, nil
}

// RefreshToken handles POST /users/refresh-token.
func (h UserHandler) RefreshToken(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	presented := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = strings.TrimSpace(cookie.Value)
	}
	if presented == "" {
		var req refreshRequest
		if err := pipeline.DecodeJSON(r, &req); err != nil {
			return pipeline.Result{}, err
		}
		presented = strings.TrimSpace(req.RefreshToken)
	}
	if presented == "" {
		return pipeline.Result{}, apierror.Unauthorized("Unauthorized request")
	}

	userID, err := h.Sessions.Refresh(ctx, presented)
	switch {
	case errors.Is(err, auth.ErrTokenSuperseded):
		return pipeline.Result{}, apierror.Unauthorized("Refresh token is expired or used")
	case errors.Is(err, auth.ErrInvalidToken):
		return pipeline.Result{}, apierror.Unauthorized("Invalid refresh token")
	case err != nil:
		return pipeline.Result{}, apierror.Internal(err, "")
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return pipeline.Result{}, apierror.Unauthorized("Invalid refresh token")
		}
		return pipeline.Result{}, apierror.Internal(err, "")
	}

	tokens, err := h.Sessions.Issue(ctx, identityOf(user))
	if err != nil {
		return pipeline.Result{}, apierror.Internal(err, "Failed to refresh session")
	}

	result := pipeline.OK(sessionResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "Access token refreshed")
	result.Cookies = h.sessionCookies(tokens)
	return result, nil
}

// Logout handles POST /users/logout.
func (h UserHandler) Logout(r *http.Request) (pipeline.Result, error) {
	if err := h.Sessions.Revoke(r.Context(), callerID(r.Context())); err != nil {
		return pipeline.Result{}, apierror.Internal(err, "")
	}

	result := pipeline.OK(struct{}{}, "User logged out")
	result.Cookies = []*http.Cookie{
		h.clearCookie(pipeline.AccessTokenCookie),
		h.clearCookie(refreshTokenCookie),
	}
	return result, nil
}

// ChangePassword handles POST /users/change-password.
func (h UserHandler) ChangePassword(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	var req changePasswordRequest
	if err := pipeline.DecodeJSON(r, &req); err != nil {
		return pipeline.Result{}, err
	}
	if err := pipeline.Require("", pipeline.F("oldPassword", req.OldPassword), pipeline.F("newPassword", req.NewPassword)); err != nil {
		return pipeline.Result{}, err
	}
	if req.OldPassword == req.NewPassword {
		return pipeline.Result{}, apierror.BadRequest("New password must differ from the old password")
	}
	if len(req.NewPassword) < minPasswordLength {
		return pipeline.Result{}, apierror.BadRequest("Password must be at least 8 characters")
	}

	// The context principal has its hash stripped; reload it.
	user, err := h.Users.FindByID(ctx, callerID(ctx))
	if err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "User does not exist")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return pipeline.Result{}, apierror.BadRequest("Invalid old password")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return pipeline.Result{}, apierror.Internal(err, "Failed to secure password")
	}
	if err := h.Users.UpdatePassword(ctx, user.ID, string(hashed), h.now()); err != nil {
		return pipeline.Result{}, apierror.From(err)
	}

	return pipeline.OK(struct{}{}, "Password changed successfully"), nil
}

// CurrentUser handles GET /users/current-user.
func (h UserHandler) CurrentUser(r *http.Request) (pipeline.Result, error) {
	user, _ := pipeline.CurrentUser(r.Context())
	return pipeline.OK(user, "User fetched successfully"), nil
}

// UpdateAccount handles PATCH /users/update-account-details.
func (h UserHandler) UpdateAccount(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	var req updateAccountRequest
	if err := pipeline.DecodeJSON(r, &req); err != nil {
		return pipeline.Result{}, err
	}

	update := models.AccountUpdate{
		Fullname: trimmed(req.Fullname, false),
		Email:    trimmed(req.Email, true),
		Username: trimmed(req.Username, true),
	}
	if update.Fullname == nil && update.Email == nil && update.Username == nil {
		return pipeline.Result{}, apierror.BadRequest("At least one of fullname, email or username is required")
	}
	if update.Email != nil {
		if err := validateEmail(*update.Email); err != nil {
			return pipeline.Result{}, err
		}
	}

	user, err := h.Users.UpdateAccount(ctx, callerID(ctx), update, h.now())
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return pipeline.Result{}, apierror.Conflict("Email or username already in use")
		}
		return pipeline.Result{}, apierror.FromStore(err, "User does not exist")
	}
	return pipeline.OK(user, "Account details updated successfully"), nil
}

// UpdateAvatar handles PATCH /users/update-avatar.
func (h UserHandler) UpdateAvatar(r *http.Request) (pipeline.Result, error) {
	return h.replaceImage(r, "avatar", media.FolderAvatars, func(u models.User) string { return u.Avatar }, h.Users.UpdateAvatar, "Avatar updated successfully")
}

// UpdateCoverImage handles PATCH /users/update-cover-image.
func (h UserHandler) UpdateCoverImage(r *http.Request) (pipeline.Result, error) {
	return h.replaceImage(r, "coverImage", media.FolderCovers, func(u models.User) string { return u.CoverImage }, h.Users.UpdateCoverImage, "Cover image updated successfully")
}

func (h UserHandler) replaceImage(
	r *http.Request,
	field string,
	folder media.Folder,
	current func(models.User) string,
	save func(ctx context.Context, id, url string, at time.Time) (models.User, error),
	message string,
) (pipeline.Result, error) {
	ctx := r.Context()

	if err := pipeline.ParseMultipart(r, h.MaxUploadBytes); err != nil {
		return pipeline.Result{}, err
	}
	file := formFile(r, field)
	if file == nil {
		return pipeline.Result{}, apierror.BadRequest(field + " file is missing")
	}

	asset := h.Media.Upload(ctx, folder, file)
	if asset == nil {
		return pipeline.Result{}, apierror.Internal(errors.New(field+" upload returned no asset"), "Error while uploading "+field)
	}

	before, _ := pipeline.CurrentUser(ctx)
	user, err := save(ctx, before.ID, asset.URL, h.now())
	if err != nil {
		h.Media.Discard(ctx, asset.URL)
		return pipeline.Result{}, apierror.FromStore(err, "User does not exist")
	}

	h.Media.Discard(ctx, current(before))
	return pipeline.OK(user, message), nil
}

// Channel handles GET /users/channel/{username}.
func (h UserHandler) Channel(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	username := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	if username == "" {
		return pipeline.Result{}, apierror.BadRequest("username is missing")
	}

	profile, err := h.Users.ChannelProfile(ctx, username, callerID(ctx))
	if err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Channel does not exist")
	}
	return pipeline.OK(profile, "User channel fetched successfully"), nil
}

// WatchHistory handles GET /users/watch-history.
func (h UserHandler) WatchHistory(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	videos, err := h.Users.WatchHistory(ctx, callerID(ctx))
	if err != nil {
		return pipeline.Result{}, apierror.From(err)
	}
	if videos == nil {
		videos = []models.Video{}
	}
	return pipeline.OK(videos, "Watch history fetched successfully"), nil
}

func (h UserHandler) sessionCookies(tokens models.SessionTokens) []*http.Cookie {
	return []*http.Cookie{
		h.cookie(pipeline.AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt),
		h.cookie(refreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt),
	}
}

func (h UserHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	maxAge := int(expires.Sub(h.now()).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h UserHandler) clearCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h UserHandler) now() time.Time {
	return clock(h.NowFunc)
}

func identityOf(user models.User) auth.Identity {
	return auth.Identity{UserID: user.ID, Username: user.Username, Email: user.Email}
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apierror.BadRequest("Invalid email address")
	}
	return nil
}

// trimmed returns nil for absent or blank values.
func trimmed(value *string, lowercase bool) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	if lowercase {
		v = strings.ToLower(v)
	}
	return &v
}

func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

func clock(fn func() time.Time) time.Time {
	if fn != nil {
		return fn().UTC()
	}
	return time.Now().UTC()
}
