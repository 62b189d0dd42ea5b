package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var fromGin, fromCtx string
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		fromGin = Value(c)
		fromCtx = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(Header, header)
	}
	r.ServeHTTP(w, req)
	return w, fromGin, fromCtx
}

func TestMiddlewareKeepsInboundID(t *testing.T) {
	w, fromGin, fromCtx := serve(t, "upstream-42")
	assert.Equal(t, "upstream-42", w.Header().Get(Header))
	assert.Equal(t, "upstream-42", fromGin)
	assert.Equal(t, "upstream-42", fromCtx)
}

func TestMiddlewareReplacesUnsafeID(t *testing.T) {
	w, fromGin, fromCtx := serve(t, "bad id\nwith newline")
	id := w.Header().Get(Header)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, fromGin)
	assert.Equal(t, id, fromCtx)
}
