package service

import (
	"context"
	"errors"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Runteryaa/RunStore/internal/hash"
	"github.com/Runteryaa/RunStore/internal/logging"
	"github.com/Runteryaa/RunStore/internal/models"
	"github.com/Runteryaa/RunStore/internal/repo"
	"github.com/Runteryaa/RunStore/internal/tokens"
)

type AuthService struct {
	Repo      *repo.GormRepo
	JWTSecret []byte
	TokenTTL  time.Duration
}

type AuthResult struct {
	Token string
	User  *models.User
}

func (s *AuthService) issueToken(u *models.User) (string, error) {
	return tokens.Create(s.JWTSecret, u.ID, u.Role, time.Now().Add(s.TokenTTL))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register creates an account with role "user" and issues a credential.
// Email uniqueness is checked at registration time only.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if !validEmail(email) {
		return nil, fieldErr("email", "must be a valid email address")
	}
	if utf8.RuneCountInString(password) < 6 {
		return nil, fieldErr("password", "must be at least 6 characters")
	}
	if utf8.RuneCountInString(name) < 2 {
		return nil, fieldErr("name", "must be at least 2 characters")
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: pwHash,
		Name:         name,
		Role:         models.RoleUser,
	}

	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
			return nil, ErrConflict
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}

	token, err := s.issueToken(user)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot sign token", "error", err)
		return nil, err
	}

	return &AuthResult{Token: token, User: user}, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password fail identically to avoid account enumeration.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "invalid credentials")
			return nil, ErrUnauthorized
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid credentials")
		return nil, ErrUnauthorized
	}

	token, err := s.issueToken(user)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign token", "error", err)
		return nil, err
	}

	return &AuthResult{Token: token, User: user}, nil
}

// Me resolves a verified caller id to the stored account. Users are never
// deleted, so a miss is defensive rather than expected.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}
