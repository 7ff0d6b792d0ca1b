package middleware

import (
	"context"
	"net/http"
	"strings"

	"wanderwise/services"
	apierrors "wanderwise/utils/errors"
)

type claimsKey struct{}

// ClaimsFrom returns the verified access token claims of the request.
func ClaimsFrom(ctx context.Context) (*services.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*services.Claims)
	return c, ok
}

// JWTMiddleware requires a valid bearer access token.
func JWTMiddleware(tokens *services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				WriteError(w, r, apierrors.ErrUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := tokens.VerifyAccess(tokenString)
			if err != nil {
				WriteError(w, r, apierrors.NewAPIError(apierrors.ErrForbidden.Code, "Invalid or expired token", http.StatusForbidden))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireEmail checks that the authenticated user is the one named in the
// request.
func RequireEmail(r *http.Request, email string) error {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		return apierrors.ErrUnauthorized
	}
	if !strings.EqualFold(strings.TrimSpace(email), claims.Email) {
		return apierrors.ErrForbidden
	}
	return nil
}
