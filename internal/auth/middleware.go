package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/scoreline/scoreline/internal/platform/httpx"
	"github.com/scoreline/scoreline/internal/shared"
)

// Authenticator resolves the bearer token into a caller identity.
type Authenticator struct {
	Issuer   *TokenIssuer
	Denylist *Denylist
	Logger   *slog.Logger
}

// Middleware rejects requests without a valid, unrevoked bearer token
// and stores the caller identity in the request context.
func (a Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}

		claims, err := a.Issuer.Parse(token)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}

		if a.Denylist != nil {
			revoked, err := a.Denylist.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				a.Logger.Error("revocation check failed", slog.Any("error", err))
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "token verification unavailable")
				return
			}
			if revoked {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "token revoked")
				return
			}
		}

		userID, err := claims.UserID()
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid token subject")
			return
		}

		ctx := shared.ContextWithIdentity(r.Context(), shared.Identity{
			UserID: userID,
			Role:   claims.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
