package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// OrganizationIDHeader carries the caller's organization scope. The value
	// is trusted; authentication happens upstream.
	OrganizationIDHeader = "X-Organization-ID"

	// OrganizationIDKey is the key used to store the organization ID in the context
	OrganizationIDKey = "organization_id"
)

// OrganizationScope middleware requires a valid organization ID on every
// request and stores it for handlers. Every query downstream is scoped to it.
func OrganizationScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(OrganizationIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "MISSING_ORGANIZATION",
					"message": "X-Organization-ID header is required",
				},
			})
			return
		}

		orgID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "INVALID_ORGANIZATION",
					"message": "X-Organization-ID must be a UUID",
				},
			})
			return
		}

		c.Set(OrganizationIDKey, orgID)
		c.Next()
	}
}

// GetOrganizationID retrieves the organization ID set by OrganizationScope.
func GetOrganizationID(c *gin.Context) uuid.UUID {
	if id, exists := c.Get(OrganizationIDKey); exists {
		if orgID, ok := id.(uuid.UUID); ok {
			return orgID
		}
	}
	return uuid.Nil
}
