package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
)

// TOTPEnrollment is handed to the user to set up an authenticator app.
type TOTPEnrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// EnrollTOTP generates a new second factor secret for a user. The secret
// stays pending, and the current factor stays enforced, until ConfirmTOTP
// succeeds with a code of the new secret.
func (p *LocalProvider) EnrollTOTP(ctx context.Context, userID uint64) (*TOTPEnrollment, error) {
	user, err := p.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.totpIssuer,
		AccountName: user.Username,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp key: %w", err)
	}

	if err := p.db.WithContext(ctx).Model(&models.User{}).Where(whereID, userID).
		Update("totp_pending", key.Secret()).Error; err != nil {
		return nil, fmt.Errorf("failed to store totp secret: %w", err)
	}

	return &TOTPEnrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// ConfirmTOTP replaces the active secret with the pending one and enables
// the second factor once code matches the pending secret.
func (p *LocalProvider) ConfirmTOTP(ctx context.Context, userID uint64, code string) error {
	user, err := p.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.TOTPPending == "" {
		return ErrTOTPNotEnrolled
	}

	if !validTOTP(code, user.TOTPPending, p.now()) {
		return ErrInvalidTOTP
	}

	res := p.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND totp_pending = ?", userID, user.TOTPPending).
		Updates(map[string]any{
			"totp_secret":  user.TOTPPending,
			"totp_pending": "",
			"totp_enabled": true,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to enable totp: %w", res.Error)
	}

	// a newer enrollment replaced the secret the code was checked against
	if res.RowsAffected == 0 {
		return ErrInvalidTOTP
	}

	return nil
}

func verifyTOTP(user *models.User, code string, now time.Time) error {
	if !user.TOTPEnabled {
		return nil
	}

	if code == "" {
		return ErrTOTPRequired
	}

	if !validTOTP(code, user.TOTPSecret, now) {
		return ErrInvalidTOTP
	}

	return nil
}

func validTOTP(code, secret string, now time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, now.UTC(), totp.ValidateOpts{
		Period:    30, //nolint:mnd
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})

	return err == nil && ok
}
