package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newCtx(target string, headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestExtractToken(t *testing.T) {
	assert.Equal(t, "q", ExtractToken(newCtx("/ws?token=q", nil), nil))
	assert.Equal(t, "h", ExtractToken(newCtx("/ws", map[string]string{"authorization": "h"}), nil))
	assert.Equal(t, "b", ExtractToken(newCtx("/ws", map[string]string{"Authorization": "Bearer b"}), nil))
	assert.Equal(t, "", ExtractToken(newCtx("/ws", nil), nil))
}

func TestMiddlewareRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", Middleware(&Options{QueryToken: "token", Required: true}), func(c *gin.Context) {
		c.String(http.StatusOK, TokenFrom(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?token=abc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", w.Body.String())
}
