package rpc

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const defaultClockSkew = 2 * time.Minute

// AuthConfig configures HMAC-signed bearer tokens for mutating methods.
type AuthConfig struct {
	Disabled  bool
	Secret    string
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

type authenticator struct {
	cfg    AuthConfig
	secret []byte
}

func newAuthenticator(cfg AuthConfig) (*authenticator, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if !cfg.Disabled && secret == "" {
		return nil, errors.New("rpc: auth secret required unless auth is disabled")
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = defaultClockSkew
	}
	return &authenticator{cfg: cfg, secret: []byte(secret)}, nil
}

func (a *authenticator) verify(r *http.Request) *RPCError {
	if a == nil || a.cfg.Disabled {
		return nil
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tokenString == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

// SignToken issues an HS256 bearer token accepted by a server configured with
// the same secret, issuer and audience.
func SignToken(secret, issuer, audience, subject string, ttl time.Duration, now time.Time) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", errors.New("rpc: secret required")
	}
	if ttl <= 0 {
		return "", errors.New("rpc: token ttl must be positive")
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if issuer != "" {
		claims.Issuer = issuer
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
