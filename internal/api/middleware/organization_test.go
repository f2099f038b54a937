package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOrganizationScopeMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(captured *uuid.UUID) *gin.Engine {
		router := gin.New()
		router.Use(OrganizationScope())
		router.GET("/test", func(c *gin.Context) {
			*captured = GetOrganizationID(c)
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("AcceptsValidOrganizationHeader", func(t *testing.T) {
		var captured uuid.UUID
		router := newRouter(&captured)

		orgID := uuid.New()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(OrganizationIDHeader, orgID.String())

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, orgID, captured)
	})

	t.Run("RejectsMissingHeader", func(t *testing.T) {
		var captured uuid.UUID
		router := newRouter(&captured)

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, uuid.Nil, captured)
	})

	t.Run("RejectsMalformedHeader", func(t *testing.T) {
		var captured uuid.UUID
		router := newRouter(&captured)

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(OrganizationIDHeader, "not-a-uuid")

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, uuid.Nil, captured)
	})
}

func TestGetOrganizationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("ReturnsNilUUIDWhenUnset", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.Equal(t, uuid.Nil, GetOrganizationID(c))
	})

	t.Run("ReturnsNilUUIDWhenWrongType", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(OrganizationIDKey, "string-not-uuid")
		assert.Equal(t, uuid.Nil, GetOrganizationID(c))
	})
}
