package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

func rbacRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	})
	r.GET("/students/:studentId/annual", RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRBAC(t *testing.T) {
	gin.SetMode(gin.TestMode)
	allowed := []string{string(models.RoleAdmin), string(models.RoleTeacher), "SELF"}

	cases := []struct {
		name   string
		claims *models.JWTClaims
		path   string
		want   int
	}{
		{"teacher allowed", &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}, "/students/s1/annual", http.StatusOK},
		{"student reading own", &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}, "/students/s1/annual", http.StatusOK},
		{"student reading other", &models.JWTClaims{UserID: "s2", Role: models.RoleStudent}, "/students/s1/annual", http.StatusForbidden},
		{"no claims", nil, "/students/s1/annual", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tc.path, nil)
			rbacRouter(tc.claims, allowed...).ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRequireRolesRejectsStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
		c.Next()
	})
	r.GET("/students/:studentId/generate", RequireRoles(models.RoleAdmin, models.RoleTeacher), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/students/s1/generate", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
