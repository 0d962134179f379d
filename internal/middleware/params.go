package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
)

const contextKeyPathID = "path_id"

// RequireUUIDParam parses the named path parameter as a UUID and rejects the
// request with 400 when it is malformed.
func RequireUUIDParam(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param(name))
		if err != nil {
			apierrors.BadRequest(c, "Invalid "+name)
			c.Abort()
			return
		}
		c.Set(contextKeyPathID, id)
		c.Next()
	}
}

// GetPathID retrieves the ID parsed by RequireUUIDParam.
func GetPathID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(contextKeyPathID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
