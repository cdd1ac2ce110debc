package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/arawak/toolshelf/internal/config"
)

type principalKeyType struct{}

var principalKey = principalKeyType{}

const apiKeyHeader = "X-Api-Key"

const (
	PermCanCreateTags = "can_create_tags"
)

var knownPermissions = map[string]struct{}{
	PermCanCreateTags: {},
}

type Principal struct {
	ID          string
	Permissions map[string]struct{}
	Source      string
}

func newPrincipalFromAPIKey(key *APIKey) *Principal {
	perms := make(map[string]struct{}, len(key.Permissions))
	for _, p := range key.Permissions {
		perms[p] = struct{}{}
	}
	return &Principal{
		ID:          key.ID,
		Permissions: perms,
		Source:      "apikey",
	}
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

func (p *Principal) HasPermission(perm string) bool {
	if p == nil {
		return false
	}
	_, ok := p.Permissions[perm]
	return ok
}

// authMiddleware resolves the caller's API key into a Principal. With auth
// disabled every request passes through anonymously.
func (s *Server) authMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.cfg.AuthMode == config.AuthNone {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(apiKeyHeader)
			if key == "" {
				key = bearerToken(r.Header.Get("Authorization"))
			}
			entry, ok := s.apiKeys.Lookup(key)
			if key == "" || !ok {
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), newPrincipalFromAPIKey(entry))))
		})
	}
}

func (s *Server) requirePermissions(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.cfg.AuthMode == config.AuthNone {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			for _, perm := range perms {
				if !p.HasPermission(perm) {
					writeMessage(w, http.StatusForbidden, "Forbidden")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func principalID(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return p.ID
	}
	return "anonymous"
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
