package constants

const (
	// ContextKeyUserID is the session and gin context key holding the caller's user ID.
	ContextKeyUserID = "user_id"
	// ContextKeyPrincipal is the gin context key holding the verified *auth.Principal.
	ContextKeyPrincipal = "principal"
	// SessionKeyRole is the session key holding the caller's global role.
	SessionKeyRole = "role"
	// SessionKeyEmail is the session key holding the caller's email.
	SessionKeyEmail = "email"

	SessionCookieName = "task_session"
)

const (
	MinPasswordLength    = 8
	BcryptCost           = 12
	MaxNameLength        = 100
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)
