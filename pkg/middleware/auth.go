package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"thittam1hub-backend/pkg/config"
	"thittam1hub-backend/pkg/models"
	"thittam1hub-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is the key type for request-scoped values.
type ContextKey string

const (
	UserContextKey ContextKey = "user"
)

// AuthMiddleware validates the Bearer token and stores the user in context.
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				fmt.Printf("❌ Auth middleware: Missing authorization header\n")
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				fmt.Printf("❌ Auth middleware: Invalid authorization header format\n")
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			})

			if err != nil {
				fmt.Printf("❌ Auth middleware: Token parsing failed: %v\n", err)
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
				return
			}

			if !token.Valid {
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			claims, ok := token.Claims.(*models.TokenClaims)
			if !ok {
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid token claims")
				return
			}

			// Only access tokens get past the middleware
			if claims.Type != "access" {
				fmt.Printf("❌ Auth middleware: Invalid token type: %s\n", claims.Type)
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid token type")
				return
			}

			if time.Now().Unix() > claims.Exp {
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Token expired")
				return
			}

			user := &models.User{
				ID:    claims.UserID,
				Email: claims.Email,
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches the user when a valid token is present but
// never rejects the request.
func OptionalAuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				next.ServeHTTP(w, r)
				return
			}

			token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			})

			if err == nil && token.Valid {
				if claims, ok := token.Claims.(*models.TokenClaims); ok {
					if claims.Type == "access" && time.Now().Unix() <= claims.Exp {
						user := &models.User{
							ID:    claims.UserID,
							Email: claims.Email,
						}
						ctx := context.WithValue(r.Context(), UserContextKey, user)
						next.ServeHTTP(w, r.WithContext(ctx))
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext retrieves the authenticated user, if any.
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// RequireUser returns the authenticated user or an error.
func RequireUser(ctx context.Context) (*models.User, error) {
	user, ok := GetUserFromContext(ctx)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not authenticated")
	}
	return user, nil
}
