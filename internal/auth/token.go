package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/models"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidTokenClaims = errors.New("invalid token claims")
	ErrMissingToken       = errors.New("missing bearer token")
)

const unknownName = "Unknown"

// Principal is the verified identity attached to a request.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   models.GlobalRole
}

// IsSuperAdmin reports whether the principal carries the SuperAdmin role.
func (p Principal) IsSuperAdmin() bool {
	return p.Role == models.RoleSuperAdmin
}

// Claims represents JWT token claims. The subject is the user ID.
type Claims struct {
	jwt.RegisteredClaims
	Email      string            `json:"email"`
	GivenName  string            `json:"given_name"`
	FamilyName string            `json:"family_name"`
	Role       models.GlobalRole `json:"role"`
}

// Principal converts verified claims into a Principal.
func (c *Claims) Principal() (Principal, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: subject: %v", ErrInvalidTokenClaims, err)
	}
	if !c.Role.IsValid() {
		return Principal{}, fmt.Errorf("%w: role %q", ErrInvalidTokenClaims, c.Role)
	}
	return Principal{UserID: id, Email: c.Email, Role: c.Role}, nil
}

// BuildClaims assembles the claim set for a user. Empty name parts are
// reported as "Unknown".
func BuildClaims(user *models.User, issuer, audience string, now time.Time, ttl time.Duration) *Claims {
	given := user.FirstName
	if strings.TrimSpace(given) == "" {
		given = unknownName
	}
	family := user.LastName
	if strings.TrimSpace(family) == "" {
		family = unknownName
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Email:      user.Email,
		GivenName:  given,
		FamilyName: family,
		Role:       user.Role,
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return claims
}

// TokenConfig holds token signing configuration.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// TokenManager issues and verifies signed tokens.
type TokenManager struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(config TokenConfig) *TokenManager {
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	return &TokenManager{config: config, now: time.Now}
}

// Issue signs an HS256 token for user and returns it with its expiry.
func (m *TokenManager) Issue(user *models.User) (string, time.Time, error) {
	claims := BuildClaims(user, m.config.Issuer, m.config.Audience, m.now(), m.config.TTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify validates a token and returns its claims.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(m.config.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidTokenClaims
	}
	return claims, nil
}

// ExtractToken returns the token of a "Bearer <token>" header value.
func ExtractToken(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMissingToken
	}
	return parts[1], nil
}
