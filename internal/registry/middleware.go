package registry

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rxledger/dlt-rx/pkg/config"
	"github.com/rxledger/dlt-rx/pkg/fabric"
	"github.com/rxledger/dlt-rx/pkg/logger"
	"github.com/rxledger/dlt-rx/pkg/monitoring"
)

// UserClaims are the JWT claims the registry accepts. Subject is the Fabric
// enrollment identity transactions are submitted as.
type UserClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type contextKey string

const claimsKey contextKey = "user_claims"

// ClaimsFromContext extracts the authenticated user claims
func ClaimsFromContext(ctx context.Context) *UserClaims {
	if claims, ok := ctx.Value(claimsKey).(*UserClaims); ok {
		return claims
	}
	return nil
}

// AuthMiddleware validates bearer tokens and threads the caller identity
// onto the request context for downstream ledger submission.
func AuthMiddleware(cfg *config.JWTConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				monitoring.RecordAuthAttempt("missing_token")
				writeError(w, http.StatusUnauthorized, "unauthorized", "Missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				monitoring.RecordAuthAttempt("malformed_header")
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid authorization header format")
				return
			}

			claims, err := validateToken(parts[1], cfg)
			if err != nil {
				monitoring.RecordAuthAttempt("invalid_token")
				log.Security("token_validation_failed", "", map[string]interface{}{
					"error": err.Error(),
				})
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
				return
			}

			monitoring.RecordAuthAttempt("success")

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = fabric.WithCaller(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a handler on the authenticated user's role claim. The
// ledger enforces its own authorization regardless; this only keeps
// obviously unauthorized traffic off the network.
func RequireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil || claims.Role != role {
			writeError(w, http.StatusForbidden, "forbidden", fmt.Sprintf("Requires %s role", role))
			return
		}
		next.ServeHTTP(w, r)
	}
}

// RequireRoleMiddleware applies RequireRole to every route on a subrouter
func RequireRoleMiddleware(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireRole(role, next.ServeHTTP)
	}
}

func validateToken(tokenString string, cfg *config.JWTConfig) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.SecretKey), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithAudience(cfg.Audience))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}
