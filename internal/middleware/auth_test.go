package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	auth := NewAuthenticator(testSecret)
	r.GET("/me", auth.AuthRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"missing header", "", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not-a-jwt", "", http.StatusUnauthorized, ""},
		{"valid sub", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "u1", "exp": future}), "", http.StatusOK, "u1"},
		{"HS512 legacy id claim", "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, jwt.MapClaims{"id": "u2", "exp": future}), "", http.StatusOK, "u2"},
		{"query token", "", signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "u3"}), http.StatusOK, "u3"},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, "other", jwt.MapClaims{"sub": "u1"}), "", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()}), "", http.StatusUnauthorized, ""},
		{"no subject", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"role": "user"}), "", http.StatusUnauthorized, ""},
	}

	r := newAuthRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewAuthenticator(testSecret).ParseToken(token)
	assert.Error(t, err)
}
