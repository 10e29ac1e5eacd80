package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig holds signing parameters for register tokens.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims is the JWT payload issued to registers and back-office users.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens carrying a role claim.
type TokenManager struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenManager returns a TokenManager. An empty secret is rejected since
// every token would then be forgeable.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	return &TokenManager{cfg: cfg, now: time.Now}, nil
}

// Issue signs a token for subject with the given role.
func (m *TokenManager) Issue(subject string, role Role) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return "", err
	}

	now := m.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if m.cfg.TTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.cfg.TTL))
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return token, nil
}

// Verify parses and validates a token and returns the principal it carries.
// Any failure is reported as ErrUnauthorized.
func (m *TokenManager) Verify(token string) (Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(m.cfg.Secret), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Principal{}, errors.Wrap(ErrUnauthorized, "verify token")
	}

	role, err := ParseRole(string(claims.Role))
	if err != nil || claims.Subject == "" {
		return Principal{}, errors.Wrap(ErrUnauthorized, "token claims")
	}
	return Principal{Subject: claims.Subject, Role: role}, nil
}
