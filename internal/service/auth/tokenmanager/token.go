package tokenmanager

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/bookstore/internal/apperrors"
	"github.com/nkiryanov/bookstore/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 24 * time.Hour
)

// Token class; every kind is signed with its own key
type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

type Claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Token manager with sensible default
type Config struct {
	// Secrets to sign access and refresh tokens
	// Required to be set and must differ
	AccessSecret  string
	RefreshSecret string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager signs and verifies tokens
// Holds no mutable state: safe for concurrent use
type TokenManager struct {
	keys map[Kind][]byte

	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration

	now func() time.Time
}

func New(cfg Config) (*TokenManager, error) {
	switch {
	case cfg.AccessSecret == "" || cfg.RefreshSecret == "":
		return nil, errors.New("access and refresh secrets must not be empty")
	case cfg.AccessSecret == cfg.RefreshSecret:
		return nil, errors.New("access and refresh secrets must differ")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg, ok := jwt.GetSigningMethod(cfg.Alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("signing method %q is not supported, use one of HS256, HS384, HS512", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	if cfg.AccessTTL < 0 || cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, fmt.Errorf("refresh ttl (%s) must be greater than access ttl (%s)", cfg.RefreshTTL, cfg.AccessTTL)
	}

	return &TokenManager{
		keys: map[Kind][]byte{
			KindAccess:  []byte(cfg.AccessSecret),
			KindRefresh: []byte(cfg.RefreshSecret),
		},
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

func (m *TokenManager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// MintAccess signs access token for the persisted record
// expiresAt should be the record expiration; zero means now + access ttl
func (m *TokenManager) MintAccess(recordID uuid.UUID, user models.User, expiresAt time.Time) (models.IssuedToken, error) {
	claims := m.registered(recordID, user.ID, expiresAt, m.accessTTL)

	return m.sign(KindAccess, Claims{
		RegisteredClaims: claims,
		Role:             user.Role.String(),
		Username:         user.Username,
		Email:            user.Email,
	})
}

// MintRefresh signs refresh token for the persisted record
func (m *TokenManager) MintRefresh(recordID uuid.UUID, userID int64, expiresAt time.Time) (models.IssuedToken, error) {
	return m.sign(KindRefresh, Claims{
		RegisteredClaims: m.registered(recordID, userID, expiresAt, m.refreshTTL),
	})
}

func (m *TokenManager) registered(recordID uuid.UUID, userID int64, expiresAt time.Time, ttl time.Duration) jwt.RegisteredClaims {
	now := m.now()
	if expiresAt.IsZero() {
		expiresAt = now.Add(ttl)
	}

	return jwt.RegisteredClaims{
		ID:        recordID.String(),
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (m *TokenManager) sign(kind Kind, claims Claims) (models.IssuedToken, error) {
	value, err := jwt.NewWithClaims(m.alg, claims).SignedString(m.keys[kind])
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing %s token. Err: %w", kind, err)
	}

	return models.IssuedToken{Value: value, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Parse verifies signature with the key of the kind, algorithm and expiry
// Any failure wraps apperrors.ErrTokenInvalid; the jwt error is kept in chain for logs
func (m *TokenManager) Parse(kind Kind, token string) (models.TokenClaims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (any, error) {
			return m.keys[kind], nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return models.TokenClaims{}, fmt.Errorf("%w: %s token: %w", apperrors.ErrTokenInvalid, kind, err)
	}

	return toModel(claims)
}

func toModel(c Claims) (models.TokenClaims, error) {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return models.TokenClaims{}, fmt.Errorf("%w: bad jti: %w", apperrors.ErrTokenInvalid, err)
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return models.TokenClaims{}, fmt.Errorf("%w: bad sub: %w", apperrors.ErrTokenInvalid, err)
	}

	res := models.TokenClaims{
		ID:       id,
		UserID:   userID,
		Role:     c.Role,
		Username: c.Username,
		Email:    c.Email,
	}
	if c.IssuedAt != nil {
		res.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		res.ExpiresAt = c.ExpiresAt.Time
	}

	return res, nil
}
