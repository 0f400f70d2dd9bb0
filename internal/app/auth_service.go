package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NaikDeepak/village-mandi-sub001/internal/auth"
	"github.com/NaikDeepak/village-mandi-sub001/internal/clock"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
)

const minPasswordLength = 8

type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByFirebaseUID(ctx context.Context, uid string) (domain.User, error)
}

type TokenIssuer interface {
	Issue(user domain.User) (string, time.Time, error)
}

type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (auth.FirebaseIdentity, error)
}

type AuthService struct {
	repo     UserRepository
	tokens   TokenIssuer
	firebase IdentityVerifier
	clock    clock.Clock
}

// NewAuthService wires sign-in. firebase may be nil, which disables
// Firebase sign-in.
func NewAuthService(repo UserRepository, tokens TokenIssuer, firebase IdentityVerifier, clk clock.Clock) *AuthService {
	return &AuthService{
		repo:     repo,
		tokens:   tokens,
		firebase: firebase,
		clock:    clk,
	}
}

// Session is a signed-in user and the token for the session cookie.
type Session struct {
	User      domain.User
	Token     string
	ExpiresAt time.Time
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return domain.User{}, domain.ErrEmailRequired
	}
	if len(in.Password) < minPasswordLength {
		return domain.User{}, domain.ErrPasswordTooShort
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.User{}, domain.ErrNameRequired
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:           newID(),
		Email:        email,
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         domain.RoleBuyer,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Login checks credentials. Every failure, including an unknown email,
// is reported as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return Session{}, domain.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return Session{}, domain.ErrInvalidCredentials
	}
	return s.newSession(user)
}

// LoginWithFirebase exchanges a Firebase ID token for a session, creating
// a buyer account the first time a Firebase user signs in.
func (s *AuthService) LoginWithFirebase(ctx context.Context, idToken string) (Session, error) {
	if s.firebase == nil {
		return Session{}, domain.ErrFirebaseDisabled
	}
	identity, err := s.firebase.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Session{}, domain.ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByFirebaseUID(ctx, identity.UID)
	if errors.Is(err, domain.ErrUserNotFound) {
		user = domain.User{
			ID:          newID(),
			Email:       normalizeEmail(identity.Email),
			Name:        strings.TrimSpace(identity.Name),
			Phone:       identity.Phone,
			FirebaseUID: identity.UID,
			Role:        domain.RoleBuyer,
			CreatedAt:   s.clock.Now(),
		}
		if user.Name == "" {
			user.Name = identity.Phone
		}
		err = s.repo.CreateUser(ctx, user)
	}
	if err != nil {
		return Session{}, err
	}
	return s.newSession(user)
}

func (s *AuthService) Me(ctx context.Context, userID string) (domain.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// EnsureAdmin creates the bootstrap admin if no user has that email yet.
// An existing account is left untouched.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, domain.ErrEmailRequired
	}
	if len(password) < minPasswordLength {
		return false, domain.ErrPasswordTooShort
	}
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	err = s.repo.CreateUser(ctx, domain.User{
		ID:           newID(),
		Email:        email,
		Name:         "Admin",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    s.clock.Now(),
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *AuthService) newSession(user domain.User) (Session, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
