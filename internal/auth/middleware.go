package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dataspeak/dataspeak/internal/observability"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}

type rejection struct {
	status  int
	code    string
	message string
	reason  string
}

// Middleware authenticates the caller by API key and requires role. An
// empty role only checks the key.
func Middleware(logger *slog.Logger, validator APIKeyValidator, role string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, rejected := authenticate(r, validator, role)
			if rejected != nil {
				observability.IncrementAuthRejection(rejected.reason)
				logger.WarnContext(r.Context(), "request rejected by auth",
					slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
					slog.String("reason", rejected.reason),
					slog.String("client_id", identity.ClientID),
					slog.String("path", r.URL.Path),
				)
				writeRejection(w, r, rejected)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func authenticate(r *http.Request, validator APIKeyValidator, role string) (Identity, *rejection) {
	apiKey := extractAPIKey(r)
	if apiKey == "" {
		return Identity{}, &rejection{http.StatusUnauthorized, "UNAUTHORIZED", "missing API key", "missing_key"}
	}
	identity, ok := validator.Validate(r.Context(), apiKey)
	if !ok {
		return Identity{}, &rejection{http.StatusUnauthorized, "UNAUTHORIZED", "invalid API key", "invalid_key"}
	}
	if role != "" && !identity.HasRole(role) {
		return identity, &rejection{http.StatusForbidden, "FORBIDDEN", "missing role " + role, "missing_role"}
	}
	return identity, nil
}

// extractAPIKey accepts X-API-Key or an Authorization bearer token.
func extractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeRejection(w http.ResponseWriter, r *http.Request, rejected *rejection) {
	if rejected.status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="dataspeak"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rejected.status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error_code": rejected.code,
		"message":    rejected.message,
		"retryable":  false,
		"trace_id":   observability.TraceIDFromContext(r.Context()),
	})
}
