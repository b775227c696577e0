package auth

import (
	"errors"
	"fmt"

	"github.com/go-rbac-admin/go-rbac-admin/internal/apperror"
)

var (
	// ErrInvalidOldPassword is returned when the provided old password does not match the user's current password.
	ErrInvalidOldPassword = fmt.Errorf("invalid old password: %w", apperror.ErrValidation)

	// ErrUserNameExists is returned when attempting to create a user with a username that already exists.
	ErrUserNameExists = fmt.Errorf("user with username already exists: %w", apperror.ErrConflict)

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = fmt.Errorf("user account is disabled: %w", apperror.ErrUnauthorized)

	// ErrUserAccountLocked is returned while an account is locked after too many failed logins.
	ErrUserAccountLocked = fmt.Errorf("user account is locked: %w", apperror.ErrUnauthorized)

	// ErrInvalidCredentials is returned for an unknown username or a wrong password.
	// Both cases share one error so callers cannot probe for usernames.
	ErrInvalidCredentials = fmt.Errorf("invalid username or password: %w", apperror.ErrUnauthorized)

	// ErrUserNotFound is returned when a user cannot be found in the database.
	ErrUserNotFound = fmt.Errorf("user not found: %w", apperror.ErrNotFound)

	// ErrUserRoleExists is returned when a role is already assigned to the user.
	ErrUserRoleExists = fmt.Errorf("role already assigned to user: %w", apperror.ErrConflict)

	// ErrUserRoleNotFound is returned when removing a role the user does not have.
	ErrUserRoleNotFound = fmt.Errorf("role not assigned to user: %w", apperror.ErrNotFound)

	// ErrInvalidToken is returned for a missing, malformed, expired or revoked token.
	ErrInvalidToken = fmt.Errorf("invalid token: %w", apperror.ErrUnauthorized)

	// ErrTOTPRequired is returned when the account has a second factor and no code was sent.
	ErrTOTPRequired = fmt.Errorf("totp code required: %w", apperror.ErrUnauthorized)

	// ErrInvalidTOTP is returned for a wrong second factor code.
	ErrInvalidTOTP = fmt.Errorf("invalid totp code: %w", apperror.ErrUnauthorized)

	// ErrTOTPNotEnrolled is returned when confirming a second factor that was never enrolled.
	ErrTOTPNotEnrolled = fmt.Errorf("totp not enrolled: %w", apperror.ErrValidation)

	// ErrNilRevocationStore is returned when a token issuer is created without a revocation store.
	ErrNilRevocationStore = errors.New("revocation store is nil")
)
