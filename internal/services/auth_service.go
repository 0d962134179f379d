package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/logger"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = apierrors.New(apierrors.ErrConflict, "email is already registered")
	ErrNameRequired       = apierrors.New(apierrors.ErrValidation, "first name and last name are required")
	ErrNameTooLong        = apierrors.New(apierrors.ErrValidation, "name is too long")
	ErrInvalidRole        = apierrors.New(apierrors.ErrValidation, "role must be SuperAdmin or User")
	ErrUserNotFound       = apierrors.New(apierrors.ErrNotFound, "user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// AuthService handles user registration and credential checks.
type AuthService struct {
	users    repository.UserRepository
	emails   *EmailValidator
	hashCost int
	log      *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users repository.UserRepository, emails *EmailValidator, log *zap.Logger) *AuthService {
	if emails == nil {
		emails = NewEmailValidator(nil)
	}
	return &AuthService{
		users:    users,
		emails:   emails,
		hashCost: constants.BcryptCost,
		log:      logger.OrNop(log),
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Email           string
	FirstName       string
	LastName        string
	Password        string
	ConfirmPassword string
	Role            models.GlobalRole
}

// RegisterUser validates input and creates a user with the requested global
// role. An empty role registers a regular user.
func (s *AuthService) RegisterUser(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	if err := s.emails.Validate(email); err != nil {
		return nil, err
	}

	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" || lastName == "" {
		return nil, ErrNameRequired
	}
	if tooLong(firstName, constants.MaxNameLength) || tooLong(lastName, constants.MaxNameLength) {
		return nil, ErrNameTooLong
	}

	if err := ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if input.Password != input.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierrors.Store("check email", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, apierrors.Store("hash password", err)
	}

	user := &models.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hashed),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apierrors.Store("create user", err)
	}

	s.log.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	if err := s.emails.Validate(email); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("login for unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, apierrors.Store("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.log.Warn("login with wrong password", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apierrors.Store("find user", err)
	}
	return user, nil
}

// EnsureSuperAdmin creates the configured bootstrap SuperAdmin unless one
// already exists. It reports whether an account was created.
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, admin config.BootstrapAdmin) (bool, error) {
	if strings.TrimSpace(admin.Email) == "" {
		return false, nil
	}

	exists, err := s.users.ExistsWithRole(ctx, models.RoleSuperAdmin)
	if err != nil {
		return false, apierrors.Store("check super admin", err)
	}
	if exists {
		return false, nil
	}

	user, err := s.RegisterUser(ctx, RegisterInput{
		Email:           admin.Email,
		FirstName:       admin.FirstName,
		LastName:        admin.LastName,
		Password:        admin.Password,
		ConfirmPassword: admin.Password,
		Role:            models.RoleSuperAdmin,
	})
	if err != nil {
		return false, err
	}

	s.log.Info("bootstrap super admin created", zap.String("user_id", user.ID.String()))
	return true, nil
}
