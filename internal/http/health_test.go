package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthController_Status(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns healthy when catalog answers", func(t *testing.T) {
		router := gin.New()
		router.GET("/health", NewHealthController(stubPinger{}, "document").Status)

		w := serve(router, "GET", "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "document", response.Backend)
		assert.Equal(t, "ok", response.Checks["catalog"])
		assert.NotEmpty(t, response.Time)
	})

	t.Run("returns unhealthy when ping fails", func(t *testing.T) {
		router := gin.New()
		router.GET("/health", NewHealthController(stubPinger{err: errors.New("no route")}, "relational").Status)

		w := serve(router, "GET", "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["catalog"], "no route")
	})

	t.Run("returns unhealthy without a catalog", func(t *testing.T) {
		router := gin.New()
		router.GET("/health", NewHealthController(nil, "").Status)

		w := serve(router, "GET", "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRouter_Ping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterConfig{})

	w := serve(router, "GET", "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestRouter_ReadOnlyRejectsRating(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterConfig{ReadOnly: true})

	w := serve(router, "POST", "/books/1/rating", `{"userId": 1, "rating": 3}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
