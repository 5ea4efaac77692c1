package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/terraincognita07/daywindow/internal/models"
	"github.com/terraincognita07/daywindow/internal/security"
	"github.com/terraincognita07/daywindow/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const temporaryPasswordLength = 12

// ResetUserRepository is satisfied by db.UserRepository.
type ResetUserRepository interface {
	FindByNormalizedEmail(ctx context.Context, email string) (models.User, error)
	UpdatePassword(ctx context.Context, userID uint, passwordHash string, mustChangePassword bool) error
}

// RunResetPasswordCommand issues a temporary password and forces a change on
// the next login. The password is written to out.
func RunResetPasswordCommand(ctx context.Context, users ResetUserRepository, email string, out io.Writer) error {
	if email == "" {
		return errors.New("email is required")
	}
	normalizedEmail, err := services.NormalizeEmail(email)
	if err != nil {
		return fmt.Errorf("invalid email address %q", email)
	}

	user, err := users.FindByNormalizedEmail(ctx, normalizedEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %s not found", normalizedEmail)
		}
		return fmt.Errorf("load user: %w", err)
	}

	temporaryPassword, err := security.TemporaryPassword(temporaryPasswordLength)
	if err != nil {
		return fmt.Errorf("generate temporary password: %w", err)
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(temporaryPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash temporary password: %w", err)
	}
	if err := users.UpdatePassword(ctx, user.ID, string(passwordHash), true); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	fmt.Fprintln(out, "Password reset successful")
	fmt.Fprintf(out, "Temporary password: %s\n", temporaryPassword)
	fmt.Fprintln(out, "User must change password on next login.")
	return nil
}
