package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
)

// RequireAuth resolves the caller's principal from a bearer token, falling
// back to the login session when no Authorization header is sent.
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			principal auth.Principal
			ok        bool
		)

		if header := c.GetHeader("Authorization"); header != "" {
			principal, ok = principalFromToken(tokens, header)
		} else {
			principal, ok = principalFromSession(c)
		}

		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyPrincipal, principal)
		c.Set(constants.ContextKeyUserID, principal.UserID)
		c.Next()
	}
}

// RequireGlobalRole rejects callers whose principal lacks role.
// It must run after RequireAuth.
func RequireGlobalRole(role models.GlobalRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		if principal.Role != role {
			apierrors.Forbidden(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetPrincipal retrieves the verified principal from context
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, exists := c.Get(constants.ContextKeyPrincipal)
	if !exists {
		return auth.Principal{}, false
	}
	principal, ok := v.(auth.Principal)
	return principal, ok
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	principal, ok := GetPrincipal(c)
	if !ok {
		return uuid.Nil, false
	}
	return principal.UserID, true
}

// SaveSession stores the principal of a logged in user in the session.
func SaveSession(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID.String())
	session.Set(constants.SessionKeyEmail, user.Email)
	session.Set(constants.SessionKeyRole, string(user.Role))
	return session.Save()
}

// ClearSession removes the authentication session.
func ClearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

func principalFromToken(tokens *auth.TokenManager, header string) (auth.Principal, bool) {
	if tokens == nil {
		return auth.Principal{}, false
	}
	raw, err := auth.ExtractToken(header)
	if err != nil {
		return auth.Principal{}, false
	}
	claims, err := tokens.Verify(raw)
	if err != nil {
		return auth.Principal{}, false
	}
	principal, err := claims.Principal()
	if err != nil {
		return auth.Principal{}, false
	}
	return principal, true
}

func principalFromSession(c *gin.Context) (auth.Principal, bool) {
	session := sessions.Default(c)

	rawID, _ := session.Get(constants.ContextKeyUserID).(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return auth.Principal{}, false
	}
	role := models.GlobalRole(stringValue(session.Get(constants.SessionKeyRole)))
	if !role.IsValid() {
		return auth.Principal{}, false
	}

	return auth.Principal{
		UserID: userID,
		Email:  stringValue(session.Get(constants.SessionKeyEmail)),
		Role:   role,
	}, true
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}
