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

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(userID string, role models.UserRole) models.JWTClaims {
	return models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func protectedRouter(verifier *TokenVerifier) *gin.Engine {
	r := gin.New()
	r.GET("/protected", JWT(verifier), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.UserID)
	})
	return r
}

func TestJWTAcceptsValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := protectedRouter(NewTokenVerifier(testSecret))
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("teacher-1", models.RoleTeacher))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "teacher-1", w.Body.String())
}

func TestJWTRejectsInvalidRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := protectedRouter(NewTokenVerifier(testSecret))

	expired := validClaims("teacher-1", models.RoleTeacher)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"wrong secret":   "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims("teacher-1", models.RoleTeacher)),
		"expired":        "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired),
		"wrong method":   "Bearer " + signToken(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims("teacher-1", models.RoleTeacher)),
		"no user id":     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("", models.RoleTeacher)),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
