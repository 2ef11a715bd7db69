package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidToken indicates a token failed signature, expiry or type checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenSuperseded indicates a refresh token no longer matches the user's active slot.
	ErrTokenSuperseded = errors.New("refresh token expired or used")
	// ErrSlotNotFound indicates the user owning a refresh slot does not exist.
	ErrSlotNotFound = errors.New("refresh slot not found")
)

// SlotStore persists the single active refresh token of each user. Saving a
// token replaces whatever was stored before.
type SlotStore interface {
	SaveRefreshToken(ctx context.Context, userID, token string) error
	RefreshToken(ctx context.Context, userID string) (string, error)
	ClearRefreshToken(ctx context.Context, userID string) error
}

// Claims are embedded in every token the manager signs.
type Claims struct {
	UserID    string `json:"_id"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Identity describes the user a token pair is minted for.
type Identity struct {
	UserID   string
	Username string
	Email    string
}

// Config holds the signing secrets and lifetimes for issued tokens.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Manager signs access and refresh tokens and keeps the refresh slot in sync.
type Manager struct {
	cfg   Config
	store SlotStore
	now   func() time.Time
}

// NewManager constructs a Manager backed by the provided slot store.
func NewManager(cfg Config, store SlotStore) *Manager {
	if store == nil {
		panic("auth: slot store must not be nil")
	}
	return &Manager{cfg: cfg, store: store, now: time.Now}
}

// Issue mints a new token pair and stores the refresh token in the user's slot,
// invalidating any previously issued refresh token.
func (m *Manager) Issue(ctx context.Context, id Identity) (models.SessionTokens, error) {
	if id.UserID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now().UTC()
	accessExpires := now.Add(m.cfg.AccessTTL)
	accessToken, err := m.sign(Claims{
		UserID:    id.UserID,
		Username:  id.Username,
		Email:     id.Email,
		TokenType: tokenTypeAccess,
	}, now, accessExpires, m.cfg.AccessSecret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshExpires := now.Add(m.cfg.RefreshTTL)
	refreshToken, err := m.sign(Claims{
		UserID:    id.UserID,
		TokenType: tokenTypeRefresh,
	}, now, refreshExpires, m.cfg.RefreshSecret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := m.store.SaveRefreshToken(ctx, id.UserID, refreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("save refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

// Refresh validates the presented refresh token against the user's slot and
// returns the user id it belongs to. The caller issues the new pair once it
// has reloaded the user.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := m.parse(refreshToken, m.cfg.RefreshSecret, tokenTypeRefresh)
	if err != nil {
		return "", err
	}

	stored, err := m.store.RefreshToken(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("load refresh token: %w", err)
	}

	if stored == "" || stored != refreshToken {
		return "", ErrTokenSuperseded
	}

	return claims.UserID, nil
}

// Revoke clears the user's refresh slot.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if err := m.store.ClearRefreshToken(ctx, userID); err != nil && !errors.Is(err, ErrSlotNotFound) {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// VerifyAccess validates an access token and returns its claims.
func (m *Manager) VerifyAccess(token string) (*Claims, error) {
	return m.parse(token, m.cfg.AccessSecret, tokenTypeAccess)
}

func (m *Manager) sign(claims Claims, issued, expires time.Time, secret string) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(issued),
		NotBefore: jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (m *Manager) parse(raw, secret, tokenType string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.TokenType != tokenType || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
