package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

// Identity is the authenticated caller extracted from the bearer token.
type Identity struct {
	UserID int64
	Email  string
	Role   string
}

func (id Identity) IsAdmin() bool {
	return id.Role == "admin"
}

type identityKey struct{}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// IssueToken signs an HS256 token for the identity. Tokens are minted
// out-of-band; this service only verifies them.
func IssueToken(secret string, expiry time.Duration, id Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": id.UserID,
		"email":   id.Email,
		"role":    id.Role,
		"exp":     now.Add(expiry).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Authenticator verifies the Authorization bearer token and stores the
// caller identity on the request context.
func Authenticator(secret string, l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				http.Error(w, `{"error":"missing bearer token","code":401}`, http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				l.Warnf(r.Context(), "delivery.http.Authenticator: invalid token: %v", err)
				http.Error(w, `{"error":"invalid token","code":401}`, http.StatusUnauthorized)
				return
			}

			userID, ok := claims["user_id"].(float64)
			if !ok || userID <= 0 {
				http.Error(w, `{"error":"invalid token claims","code":401}`, http.StatusUnauthorized)
				return
			}
			email, _ := claims["email"].(string)
			role, _ := claims["role"].(string)

			id := Identity{UserID: int64(userID), Email: email, Role: role}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
		})
	}
}

// RequireAdmin gates admin-only routes. It assumes Authenticator already ran.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok || !id.IsAdmin() {
			http.Error(w, `{"error":"admin role required","code":403}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
