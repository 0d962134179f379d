package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
)

var (
	ErrInvalidEmail     = apierrors.New(apierrors.ErrValidation, "email address is not allowed")
	ErrWeakPassword     = apierrors.New(apierrors.ErrValidation, fmt.Sprintf("password must be at least %d characters and contain an uppercase letter, a lowercase letter, a digit and one of !@#$%%^&*()<>|{}", constants.MinPasswordLength))
	ErrPasswordMismatch = apierrors.New(apierrors.ErrValidation, "passwords do not match")
)

var (
	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordDigit   = regexp.MustCompile(`\d`)
	passwordSpecial = regexp.MustCompile(`[!@#$%^&*()<>|{}]`)
)

// DefaultEmailDomains are the mail providers accepted when none are configured.
var DefaultEmailDomains = []string{"gmail.com", "yahoo.com", "outlook.com", "system.com", "hotmail.com"}

// EmailValidator checks addresses against a fixed list of mail domains.
type EmailValidator struct {
	pattern *regexp.Regexp
}

// NewEmailValidator builds a validator accepting the given domains.
func NewEmailValidator(domains []string) *EmailValidator {
	if len(domains) == 0 {
		domains = DefaultEmailDomains
	}
	quoted := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			quoted = append(quoted, regexp.QuoteMeta(d))
		}
	}
	pattern := `^[a-zA-Z0-9._%+-]+@(` + strings.Join(quoted, "|") + `)$`
	return &EmailValidator{pattern: regexp.MustCompile(pattern)}
}

// Validate returns ErrInvalidEmail unless email matches.
func (v *EmailValidator) Validate(email string) error {
	if !v.pattern.MatchString(normalizeEmail(email)) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the password policy.
func ValidatePassword(password string) error {
	if len(password) < constants.MinPasswordLength ||
		!passwordLower.MatchString(password) ||
		!passwordUpper.MatchString(password) ||
		!passwordDigit.MatchString(password) ||
		!passwordSpecial.MatchString(password) {
		return ErrWeakPassword
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}
