package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// AuthService implements signup and signin.
type AuthService struct {
	users   ports.UserRepository
	roles   *domain.RoleSet
	hasher  ports.PasswordHasher
	tokens  ports.TokenIssuer
	limiter ports.SigninLimiter // optional
	log     zerolog.Logger
}

// NewAuthService wires the service. limiter may be nil to disable signin
// throttling.
func NewAuthService(
	users ports.UserRepository,
	roles *domain.RoleSet,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	limiter ports.SigninLimiter,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		roles:   roles,
		hasher:  hasher,
		tokens:  tokens,
		limiter: limiter,
		log:     log,
	}
}

// Signup registers a new user. The duplicate lookup is a best-effort fast
// path: it is not atomic with the insert, so the store's unique indexes remain
// the authority and their violations surface from Create as
// *domain.ConflictError as well.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	existing, err := s.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("signup: duplicate check: %w", err)
	}
	if conflict := detectConflict(existing, in.Username, in.Email); conflict != nil {
		return nil, conflict
	}

	roleIDs, err := s.resolveRoles(in.Roles)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Roles:        roleIDs,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", created.ID).
		Str("username", created.Username).
		Strs("roles", s.roles.Names(created.Roles)).
		Msg("user registered")

	return created, nil
}

// Signin verifies credentials and issues an access token.
func (s *AuthService) Signin(ctx context.Context, username, password string) (*domain.SigninResult, error) {
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, username)
		if err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("signin limiter unavailable, continuing")
		} else if !allowed {
			return nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("signin: verify password: %w", err)
	}
	if !ok {
		s.recordFailure(ctx, username)
		return nil, domain.ErrInvalidPassword
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, username); err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("failed to reset signin attempts")
		}
	}

	roles := s.roles.Names(user.Roles)
	token, err := s.tokens.Issue(user.ID, roles)
	if err != nil {
		return nil, fmt.Errorf("signin: issue token: %w", err)
	}

	return &domain.SigninResult{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Roles:       roles,
		AccessToken: token,
	}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, username string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, username); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("failed to record signin attempt")
	}
}

// resolveRoles maps requested role names to identifiers in payload order.
// The first unknown name wins. No roles means the base user role.
func (s *AuthService) resolveRoles(names []string) ([]string, error) {
	if len(names) == 0 {
		names = []string{domain.RoleUser}
	}

	ids := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if !domain.IsKnown(name) {
			return nil, &domain.UnknownRoleError{Role: name}
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		role, ok := s.roles.ByName(name)
		if !ok {
			return nil, fmt.Errorf("signup: role %q has not been seeded", name)
		}
		ids = append(ids, role.ID)
	}
	return ids, nil
}

func detectConflict(existing []*domain.User, username, email string) *domain.ConflictError {
	var c domain.ConflictError
	for _, u := range existing {
		if u.Username == username {
			c.Username = true
		}
		if u.Email == email {
			c.Email = true
		}
	}
	if !c.Username && !c.Email {
		return nil
	}
	return &c
}
