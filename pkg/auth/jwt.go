package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// JWTAuthenticator validates HMAC-signed bearer JWTs against a shared
// secret. The token's subject claim becomes the identity subject.
type JWTAuthenticator struct {
	secret    []byte
	issuer    string
	userClaim string
}

// JWTConfig holds the JWT authenticator configuration.
type JWTConfig struct {
	// Secret is the HS256 signing secret (required).
	Secret string

	// Issuer is the expected iss claim. If empty, issuer is not validated.
	Issuer string

	// UserClaim is the claim used as the identity subject. Default: "sub".
	UserClaim string
}

// NewJWTAuthenticator creates a JWT authenticator with the given configuration.
func NewJWTAuthenticator(cfg JWTConfig) *JWTAuthenticator {
	if cfg.UserClaim == "" {
		cfg.UserClaim = "sub"
	}
	return &JWTAuthenticator{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		userClaim: cfg.UserClaim,
	}
}

// Authenticate extracts a bearer token from the Authorization header and
// validates it as an HS256 JWT.
//
// Decision outcomes:
//   - Abstain: no Authorization header or not a Bearer scheme
//   - No: bearer token present but invalid (expired, wrong issuer, bad signature)
//   - Yes: valid JWT with populated Identity
func (a *JWTAuthenticator) Authenticate(_ context.Context, r *http.Request) Result {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Result{Decision: Abstain}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return Result{Decision: Abstain}
	}

	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == "" {
		return Result{Decision: No, Err: fmt.Errorf("empty bearer token")}
	}

	var opts []jwtlib.ParserOption
	opts = append(opts, jwtlib.WithValidMethods([]string{"HS256"}))
	if a.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(a.issuer))
	}

	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(tokenStr, claims, func(*jwtlib.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return Result{Decision: No, Err: fmt.Errorf("invalid token: %w", err)}
	}

	subject, _ := claims[a.userClaim].(string)
	if subject == "" {
		return Result{Decision: No, Err: fmt.Errorf("token missing %q claim", a.userClaim)}
	}

	return Result{Decision: Yes, Identity: &Identity{Subject: subject}}
}
