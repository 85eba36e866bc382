package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// staticAuthenticator returns a fixed result.
type staticAuthenticator struct {
	result Result
	calls  int
}

func (s *staticAuthenticator) Authenticate(ctx context.Context, r *http.Request) Result {
	s.calls++
	return s.result
}

func TestChainStopsOnFirstDecision(t *testing.T) {
	abstainer := &staticAuthenticator{result: Result{Decision: Abstain}}
	yes := &staticAuthenticator{result: Result{Decision: Yes, Identity: &Identity{Subject: "alice"}}}
	never := &staticAuthenticator{result: Result{Decision: No, Err: ErrUnauthenticated}}

	chain := &Chain{Authenticators: []Authenticator{abstainer, yes, never}, DefaultDecision: No}
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)

	result := chain.Authenticate(context.Background(), req)
	if result.Decision != Yes || result.Identity.Subject != "alice" {
		t.Errorf("result = %+v", result)
	}
	if abstainer.calls != 1 || yes.calls != 1 {
		t.Error("chain did not evaluate in order")
	}
	if never.calls != 0 {
		t.Error("chain continued past a decisive vote")
	}
}

func TestChainDefaultDecision(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)

	open := &Chain{DefaultDecision: Yes}
	result := open.Authenticate(context.Background(), req)
	if result.Decision != Yes || result.Identity == nil || result.Identity.Subject != "anonymous" {
		t.Errorf("open chain result = %+v", result)
	}

	closed := &Chain{DefaultDecision: No}
	result = closed.Authenticate(context.Background(), req)
	if result.Decision != No {
		t.Errorf("closed chain decision = %v, want No", result.Decision)
	}
}

func TestAPIKeyAuthenticator(t *testing.T) {
	a := NewAPIKeyAuthenticator([]RawKeyEntry{
		{Key: "sk-valid-key", Subject: "alice"},
		{Key: "sk-other-key", Subject: "bob"},
	})

	tests := []struct {
		name     string
		header   string
		want     Decision
		wantSubj string
	}{
		{"valid key", "Bearer sk-valid-key", Yes, "alice"},
		{"second key", "Bearer sk-other-key", Yes, "bob"},
		{"unknown key", "Bearer sk-wrong", No, ""},
		{"empty bearer", "Bearer ", No, ""},
		{"no header", "", Abstain, ""},
		{"basic scheme", "Basic dXNlcjpwYXNz", Abstain, ""},
		{"jupyter token scheme", "token abc", Abstain, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			result := a.Authenticate(context.Background(), req)
			if result.Decision != tt.want {
				t.Fatalf("decision = %v, want %v", result.Decision, tt.want)
			}
			if tt.wantSubj != "" && result.Identity.Subject != tt.wantSubj {
				t.Errorf("subject = %q, want %q", result.Identity.Subject, tt.wantSubj)
			}
		})
	}
}

func signToken(t *testing.T, secret string, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestJWTAuthenticator(t *testing.T) {
	const secret = "test-secret"
	now := time.Now()

	tests := []struct {
		name     string
		cfg      JWTConfig
		token    string
		want     Decision
		wantSubj string
	}{
		{
			name: "valid token",
			cfg:  JWTConfig{Secret: secret},
			token: signToken(t, secret, jwtlib.MapClaims{
				"sub": "alice", "exp": now.Add(time.Hour).Unix(),
			}),
			want: Yes, wantSubj: "alice",
		},
		{
			name: "wrong secret",
			cfg:  JWTConfig{Secret: secret},
			token: signToken(t, "other-secret", jwtlib.MapClaims{
				"sub": "alice", "exp": now.Add(time.Hour).Unix(),
			}),
			want: No,
		},
		{
			name: "expired",
			cfg:  JWTConfig{Secret: secret},
			token: signToken(t, secret, jwtlib.MapClaims{
				"sub": "alice", "exp": now.Add(-time.Hour).Unix(),
			}),
			want: No,
		},
		{
			name: "issuer mismatch",
			cfg:  JWTConfig{Secret: secret, Issuer: "nbgate"},
			token: signToken(t, secret, jwtlib.MapClaims{
				"sub": "alice", "iss": "someone-else", "exp": now.Add(time.Hour).Unix(),
			}),
			want: No,
		},
		{
			name: "issuer match",
			cfg:  JWTConfig{Secret: secret, Issuer: "nbgate"},
			token: signToken(t, secret, jwtlib.MapClaims{
				"sub": "alice", "iss": "nbgate", "exp": now.Add(time.Hour).Unix(),
			}),
			want: Yes, wantSubj: "alice",
		},
		{
			name: "missing subject claim",
			cfg:  JWTConfig{Secret: secret},
			token: signToken(t, secret, jwtlib.MapClaims{
				"exp": now.Add(time.Hour).Unix(),
			}),
			want: No,
		},
		{
			name: "custom user claim",
			cfg:  JWTConfig{Secret: secret, UserClaim: "email"},
			token: signToken(t, secret, jwtlib.MapClaims{
				"email": "alice@example.com", "exp": now.Add(time.Hour).Unix(),
			}),
			want: Yes, wantSubj: "alice@example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewJWTAuthenticator(tt.cfg)
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)

			result := a.Authenticate(context.Background(), req)
			if result.Decision != tt.want {
				t.Fatalf("decision = %v, want %v (err=%v)", result.Decision, tt.want, result.Err)
			}
			if tt.wantSubj != "" && result.Identity.Subject != tt.wantSubj {
				t.Errorf("subject = %q, want %q", result.Identity.Subject, tt.wantSubj)
			}
		})
	}
}

func TestJWTAuthenticatorAbstains(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{Secret: "s"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)

	if result := a.Authenticate(context.Background(), req); result.Decision != Abstain {
		t.Errorf("decision = %v, want Abstain without Authorization header", result.Decision)
	}
}

func TestIdentityContextRoundTrip(t *testing.T) {
	if got := IdentityFromContext(context.Background()); got != nil {
		t.Errorf("IdentityFromContext(bare) = %v, want nil", got)
	}

	id := &Identity{Subject: "alice"}
	ctx := SetIdentity(context.Background(), id)
	if got := IdentityFromContext(ctx); got != id {
		t.Error("identity did not round trip through context")
	}
}
