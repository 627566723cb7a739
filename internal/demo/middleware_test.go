package demo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(enabled bool) *gin.Engine {
	router := gin.New()
	router.Use(NewMiddleware(enabled).Handler())
	ok := func(c *gin.Context) { c.String(http.StatusOK, "OK") }
	router.GET("/books", ok)
	router.POST("/books/1/rating", ok)
	router.DELETE("/books/1", ok)
	return router
}

func TestNewMiddleware(t *testing.T) {
	assert.True(t, NewMiddleware(true).IsEnabled())
	assert.False(t, NewMiddleware(false).IsEnabled())
}

func TestMiddleware_AllowsReads(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(true).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestMiddleware_BlocksWrites(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodDelete} {
		target := "/books/1/rating"
		if method == http.MethodDelete {
			target = "/books/1"
		}

		w := httptest.NewRecorder()
		newRouter(true).ServeHTTP(w, httptest.NewRequest(method, target, nil))
		assert.Equal(t, http.StatusForbidden, w.Code, method)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "read_only", body["code"])
		assert.Equal(t, true, body["demo_mode"])
	}
}

func TestMiddleware_DisabledPassesWrites(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(false).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/books/1/rating", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
