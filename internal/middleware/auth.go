package middleware

import (
	"errors"
	"fmt"
	"strings"

	"dario/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cast"
)

// ContextUserID is the gin context key holding the authenticated user id
const ContextUserID = "user_id"

var errNoSubject = errors.New("token has no subject")

// Authenticator verifies HMAC signed bearer tokens issued by the accounts service
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an authenticator for the shared secret
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// ParseToken validates tokenString and returns the user id it was issued for.
// The id is read from "sub", then from the legacy "id" and "userId" claims.
func (a *Authenticator) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	if sub, _ := claims.GetSubject(); sub != "" {
		return sub, nil
	}
	for _, key := range []string{"id", "userId"} {
		if id := cast.ToString(claims[key]); id != "" {
			return id, nil
		}
	}
	return "", errNoSubject
}

// AuthRequired rejects requests without a valid token. Browsers cannot set
// headers on websocket upgrades, so a "token" query parameter is accepted too.
func (a *Authenticator) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.Error(c, response.NewUnauthorized("authorization required"))
			return
		}

		userID, err := a.ParseToken(tokenString)
		if err != nil {
			response.Error(c, response.NewUnauthorized("invalid or expired token"))
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
