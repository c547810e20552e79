// Package auth verifies bearer tokens on the provisioning endpoints.
// The service is deployed behind an SSO-fronted portal; when OIDC is
// configured, every generation or download request must carry an ID
// token issued to the portal client.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	ModeNone = "none"
	ModeOIDC = "oidc"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Config struct {
	Mode      string `yaml:"mode"`
	IssuerURL string `yaml:"issuer_url"`
	ClientID  string `yaml:"client_id"`
}

func (c Config) Validate() error {
	switch c.Mode {
	case "", ModeNone:
		return nil
	case ModeOIDC:
		if strings.TrimSpace(c.IssuerURL) == "" {
			return errors.New("issuer_url is required in oidc mode")
		}
		if strings.TrimSpace(c.ClientID) == "" {
			return errors.New("client_id is required in oidc mode")
		}
		return nil
	default:
		return fmt.Errorf("unsupported auth mode %q", c.Mode)
	}
}

type Identity struct {
	Subject string
	Email   string
}

type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (Identity, error)
}

type OIDCAuthenticator struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCAuthenticator(ctx context.Context, cfg Config) (*OIDCAuthenticator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode != ModeOIDC {
		return nil, fmt.Errorf("auth mode must be oidc (got %q)", cfg.Mode)
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	return &OIDCAuthenticator{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (a *OIDCAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	raw := bearerToken(r)
	if raw == "" {
		return Identity{}, ErrUnauthenticated
	}
	token, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		return Identity{}, fmt.Errorf("verify token: %w", err)
	}
	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("decode claims: %w", err)
	}
	return Identity{Subject: token.Subject, Email: claims.Email}, nil
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type ctxKeyIdentity struct{}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return v, ok
}

// Middleware rejects requests the authenticator cannot verify. Paths
// under a skip prefix (health probes) pass through untouched.
type Middleware struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	SkipPrefixes  []string
}

func (m Middleware) Wrap(next http.Handler) http.Handler {
	if m.Authenticator == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range m.SkipPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		identity, err := m.Authenticator.Authenticate(r.Context(), r)
		if err != nil {
			code := "invalid_token"
			if errors.Is(err, ErrUnauthenticated) {
				code = "unauthorized"
			}
			if m.Logger != nil {
				m.Logger.Warn("auth denied",
					"request_id", r.Header.Get("X-Request-Id"),
					"method", r.Method,
					"path", r.URL.Path,
					"reason", code,
					"error", err)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":      code,
				"request_id": r.Header.Get("X-Request-Id"),
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyIdentity{}, identity)))
	})
}
