package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/opensandbox/control-plane/internal/authstore"
	"github.com/opensandbox/control-plane/internal/sandboxerr"
)

const apiKeyHeader = "OPEN-SANDBOX-API-KEY"

// AuthMiddleware authenticates requests against the OPEN-SANDBOX-API-KEY
// header. Unlike the teacher's dual Authorization/X-API-Key extraction
// plus per-route permission scheme, this is a single header and a
// binary active/inactive check — the model this spec describes has no
// permission concept.
type AuthMiddleware struct {
	store *authstore.Store
}

func NewAuthMiddleware(store *authstore.Store) *AuthMiddleware {
	return &AuthMiddleware{store: store}
}

// Authenticate requires a valid, active OPEN-SANDBOX-API-KEY header.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get(apiKeyHeader)
		if apiKey == "" {
			writeError(w, sandboxerr.New(sandboxerr.MissingAPIKey, "missing %s header", apiKeyHeader))
			return
		}

		client, err := m.store.GetClientByAPIKey(r.Context(), apiKey)
		if err != nil {
			slog.Error("failed to look up api client", "error", err, "key_prefix", maskKey(apiKey))
			writeError(w, sandboxerr.Wrap(sandboxerr.UnknownError, err, "authentication lookup failed"))
			return
		}
		if client == nil || !client.IsActive {
			slog.Warn("rejected api key", "key_prefix", maskKey(apiKey), "remote_addr", r.RemoteAddr)
			writeError(w, sandboxerr.New(sandboxerr.MissingAPIKey, "the provided api key is not valid"))
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.store.UpdateLastUsed(ctx, apiKey); err != nil {
				slog.Error("failed to update client last_used_at", "error", err, "client", client.Name)
			}
		}()

		ctx := ContextWithClient(r.Context(), client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func maskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:8] + "..."
}
