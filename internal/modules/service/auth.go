package service

import (
	"context"
	"errors"
	"net/mail"
	"time"
	"unicode"

	"github.com/zapfix-io/zapfix/internal/modules/model"
	"github.com/zapfix-io/zapfix/internal/modules/repo"
	"github.com/zapfix-io/zapfix/internal/pkg/authtoken"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

type AuthService interface {
	// Register creates a User plus Profile atomically. Admin-only at the
	// transport layer; validation failures are FieldErrors.
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, in LoginInput) (*LoginOutput, error)
	// Logout revokes the given refresh token. Malformed or already-revoked
	// tokens are treated as logged out, not as an error.
	Logout(ctx context.Context, refreshToken string) error
	// Refresh mints a new access token from a valid, unrevoked refresh token.
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type authService struct {
	users     repo.UserRepo
	tokens    *authtoken.Manager
	blacklist *authtoken.Blacklist
	log       *zap.Logger
}

func NewAuthService(users repo.UserRepo, tokens *authtoken.Manager, blacklist *authtoken.Blacklist, log *zap.Logger) AuthService {
	return &authService{
		users:     users,
		tokens:    tokens,
		blacklist: blacklist,
		log:       log,
	}
}

type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	AdminID   *uint  `json:"admin_id"`
	IsActive  *bool  `json:"is_active"`
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	fe := FieldErrors{}

	if in.Username == "" {
		fe.Add("username", "This field is required.")
	} else if len(in.Username) > 150 {
		fe.Add("username", "Ensure this field has no more than 150 characters.")
	}
	if in.Email == "" {
		fe.Add("email", "This field is required.")
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		fe.Add("email", "Enter a valid email address.")
	}
	validatePassword(fe, in.Password)

	switch in.Role {
	case model.RoleAdmin, model.RoleUser:
	default:
		fe.Add("role", "Role must be 'admin' or 'user'.")
	}

	// Role/admin_id relationship invariant.
	if in.Role == model.RoleUser && in.AdminID == nil {
		fe.Add("admin_id", "Users must have an admin_id assigned.")
	}
	if in.Role == model.RoleAdmin && in.AdminID != nil {
		fe.Add("admin_id", "Admins cannot have an admin_id.")
	}
	if in.AdminID != nil {
		admin, err := s.users.GetByID(ctx, *in.AdminID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			fe.Add("admin_id", "Admin user with this ID does not exist.")
		case err != nil:
			return nil, err
		case admin.Profile == nil || !admin.Profile.IsAdmin():
			fe.Add("admin_id", "admin_id must reference a user with admin role.")
		}
	}

	if in.Username != "" {
		exists, err := s.users.UsernameExists(ctx, in.Username)
		if err != nil {
			return nil, err
		}
		if exists {
			fe.Add("username", "User with this username already exists.")
		}
	}
	if in.Email != "" {
		exists, err := s.users.EmailExists(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			fe.Add("email", "User with this email already exists.")
		}
	}

	if len(fe) > 0 {
		return nil, fe
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	u := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     active,
	}
	p := &model.Profile{
		Role:    in.Role,
		AdminID: in.AdminID,
	}
	if err := s.users.CreateWithProfile(ctx, u, p); err != nil {
		return nil, err
	}
	u.Profile = p

	s.log.Info("user registered",
		zap.Uint("user_id", u.ID),
		zap.String("username", u.Username),
		zap.String("role", p.Role))
	return u, nil
}

func validatePassword(fe FieldErrors, password string) {
	if password == "" {
		fe.Add("password", "This field is required.")
		return
	}
	if len(password) < minPasswordLen {
		fe.Add("password", "This password is too short. It must contain at least 8 characters.")
	}
	allDigits := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		fe.Add("password", "This password is entirely numeric.")
	}
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginOutput struct {
	AccessToken  string
	RefreshToken string
	User         *model.User
}

func (s *authService) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	u, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotExist
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, ErrInvalidPassword
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}
	if u.Profile == nil {
		// No lazy profile creation: an unmanaged default profile would
		// violate the admin_id invariant.
		s.log.Warn("login rejected, account has no profile", zap.Uint("user_id", u.ID))
		return nil, ErrNotProvisioned
	}

	now := time.Now().UTC()
	if err := s.users.StampLastLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLoginAt = &now

	access, err := s.tokens.MintAccess(u.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.MintRefresh(u.ID)
	if err != nil {
		return nil, err
	}

	return &LoginOutput{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         u,
	}, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.Parse(refreshToken, authtoken.TypeRefresh)
	if err != nil {
		// Malformed or expired token is treated as already logged out.
		return nil
	}
	return s.blacklist.Revoke(ctx, claims)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Parse(refreshToken, authtoken.TypeRefresh)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrInvalidRefreshToken
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", err
	}
	if !u.IsActive {
		return "", ErrInactiveAccount
	}
	return s.tokens.MintAccess(u.ID)
}
