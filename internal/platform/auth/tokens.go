package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domain "github.com/marketloop/api/internal/domain"
)

const defaultTokenTTL = 30 * time.Minute

var (
	// ErrTokenExpired signals that the provided bearer token has expired.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid signals that the provided bearer token is invalid for other reasons.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Claims is the JWT payload issued for authenticated accounts. The subject
// carries the numeric user id.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HMAC-signed bearer tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  func() time.Time
}

// TokenOption customises TokenManager behaviour.
type TokenOption func(*TokenManager)

// WithTokenTTL overrides the token lifetime.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithIssuer sets the issuer claim stamped on every token.
func WithIssuer(issuer string) TokenOption {
	return func(m *TokenManager) {
		issuer = strings.TrimSpace(issuer)
		if issuer != "" {
			m.issuer = issuer
		}
	}
}

// WithTokenClock overrides the time source, primarily for testing.
func WithTokenClock(clock func() time.Time) TokenOption {
	return func(m *TokenManager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewTokenManager constructs a TokenManager signing with the shared secret.
func NewTokenManager(secret []byte, opts ...TokenOption) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}

	m := &TokenManager{
		secret: secret,
		issuer: "marketloop",
		ttl:    defaultTokenTTL,
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Issue mints a signed token for the user.
func (m *TokenManager) Issue(user domain.User) (string, error) {
	now := m.clock().UTC()
	claims := Claims{
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify validates the token signature and expiry and returns the embedded
// identity.
func (m *TokenManager) Verify(tokenStr string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrTokenInvalid, token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.clock))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: malformed subject", ErrTokenInvalid)
	}
	role, ok := domain.ParseUserRole(claims.Role)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role", ErrTokenInvalid)
	}

	return &Identity{
		UserID:   userID,
		Username: strings.TrimSpace(claims.Username),
		Role:     role,
	}, nil
}
