package middleware

import (
	"context"
	"net/http"
	"strings"

	"clinic-scheduling/internal/domain/access"
	"clinic-scheduling/internal/service"
	"clinic-scheduling/pkg/jwt"
	"clinic-scheduling/pkg/response"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	PrincipalKey contextKey = "principal"
	TokenIDKey   contextKey = "token_id"
)

type AuthMiddleware struct {
	jwtService *jwt.JWTService
	tokenStore service.TokenStore
	log        *logrus.Logger
}

func NewAuthMiddleware(jwtService *jwt.JWTService, tokenStore service.TokenStore, log *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		tokenStore: tokenStore,
		log:        log,
	}
}

// Authenticate accepts a Bearer access token that is still present in the
// token store and puts the caller's Principal into the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		if claims.TokenType != jwt.AccessToken {
			response.Unauthorized(w, "Invalid token type")
			return
		}

		exists, err := m.tokenStore.Exists(r.Context(), jwt.AccessToken, claims.UserID, claims.TokenID)
		if err != nil {
			response.InternalServerError(w, "Failed to validate token")
			return
		}
		if !exists {
			response.Unauthorized(w, "Token has been revoked")
			return
		}

		role, err := access.RoleFromID(claims.RoleID)
		if err != nil {
			m.log.Warnf("Token of user %s carries unknown role id %d", claims.UserID, claims.RoleID)
			response.Unauthorized(w, "Invalid token")
			return
		}

		ctx := WithPrincipal(r.Context(), access.Principal{UserID: claims.UserID, Role: role})
		ctx = context.WithValue(ctx, TokenIDKey, claims.TokenID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithPrincipal stores the authenticated actor in ctx.
func WithPrincipal(ctx context.Context, principal access.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// PrincipalFromContext extracts the authenticated actor from context
func PrincipalFromContext(ctx context.Context) (access.Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(access.Principal)
	return principal, ok
}

// GetTokenIDFromContext extracts token ID from context
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(TokenIDKey).(string)
	return tokenID, ok
}
