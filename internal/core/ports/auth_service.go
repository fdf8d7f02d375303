package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// SignupInput is the registration payload after boundary validation.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Roles    []string
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
	Signin(ctx context.Context, username, password string) (*domain.SigninResult, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID string, roles []string) (string, error)
}

// TokenVerifier validates access tokens and returns the embedded identity.
type TokenVerifier interface {
	Verify(token string) (*domain.Caller, error)
}

// SigninLimiter throttles repeated failed signins for one username.
type SigninLimiter interface {
	Allow(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}
