// Package service contains application services between HTTP handlers and
// repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/mbastos/filegate/internal/crypto"
	"github.com/mbastos/filegate/internal/errs"
	"github.com/mbastos/filegate/internal/limiter"
	"github.com/mbastos/filegate/internal/mailer"
	"github.com/mbastos/filegate/internal/model"
	"github.com/mbastos/filegate/internal/repository"
)

// Actor is the authenticated identity performing a service call.
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}

const resetTokenTTL = time.Hour

// AuthService defines authentication operations.
type AuthService interface {
	// Register creates a user with the plain "user" role.
	Register(ctx context.Context, email, password, fullName string) (userID string, err error)
	// LoginWithIP applies rate-limiting and authenticates the user.
	LoginWithIP(ctx context.Context, email, password, ip string) (Tokens, model.User, model.Profile, error)
	// Validate reloads the account and confirms it is still active.
	Validate(ctx context.Context, userID uuid.UUID) (model.User, model.Profile, error)
	// ForgotPassword issues a reset token and mails it. It reveals nothing
	// about whether the email exists.
	ForgotPassword(ctx context.Context, email string) error
	// ResetPassword consumes a valid token and sets new credentials.
	ResetPassword(ctx context.Context, token, newPassword string) error
	// ParseAccessToken verifies a signed token and returns its subject.
	ParseAccessToken(token string) (uuid.UUID, error)
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	mail      mailer.Mailer
	log       *zap.Logger
	now       func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter, mail mailer.Mailer, log *zap.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:     users,
		signKey:   signKey,
		accessTTL: accessTTL,
		lim:       lim,
		mail:      mail,
		log:       log,
		now:       time.Now,
	}
}

// Register creates a new user record with a per-user salt and a default
// profile.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password, fullName string) (string, error) {
	if email == "" || password == "" {
		return "", fmt.Errorf("%w: empty email/password", errs.ErrValidation)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	saltAuth, err := pkgcrypto.RandBytes(16)
	if err != nil {
		return "", err
	}
	u := &model.User{
		ID:       uid,
		Email:    email,
		PwdHash:  pkgcrypto.HashPassword([]byte(password), saltAuth),
		SaltAuth: saltAuth,
	}
	p := &model.Profile{
		UserID:               uid,
		FullName:             fullName,
		Role:                 model.RoleUser,
		Active:               true,
		ReceiveNotifications: true,
	}
	if err := s.users.Create(ctx, u, p); err != nil {
		return "", err
	}
	return uid.String(), nil
}

// LoginWithIP authenticates with rate limiting by (email, ip). Wrong
// password, unknown email, and inactive account all surface as
// ErrUnauthorized so account existence is not revealed.
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (Tokens, model.User, model.Profile, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return Tokens{}, model.User{}, model.Profile{}, err
	}
	if !allowed {
		return Tokens{}, model.User{}, model.Profile{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return Tokens{}, model.User{}, model.Profile{}, errs.ErrRateLimited
		}
		return Tokens{}, model.User{}, model.Profile{}, errs.ErrUnauthorized
	}

	p, err := s.users.GetProfile(ctx, u.ID)
	if err != nil || !p.Active {
		return Tokens{}, model.User{}, model.Profile{}, errs.ErrUnauthorized
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, email, ipHash)

	tok, err := s.issueAccessToken(u.ID)
	if err != nil {
		return Tokens{}, model.User{}, model.Profile{}, err
	}
	return tok, *u, *p, nil
}

// Validate reloads user and profile; inactive accounts are unauthorized.
// Role changes take effect here, not at token issue time.
func (s *AuthServiceImpl) Validate(ctx context.Context, userID uuid.UUID) (model.User, model.Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, model.Profile{}, errs.ErrUnauthorized
	}
	p, err := s.users.GetProfile(ctx, userID)
	if err != nil || !p.Active {
		return model.User{}, model.Profile{}, errs.ErrUnauthorized
	}
	return *u, *p, nil
}

// ForgotPassword stores a reset token and mails it. Unknown emails return
// nil; mail failures are logged, not surfaced.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: empty email", errs.ErrValidation)
	}
	token, err := pkgcrypto.NewResetToken()
	if err != nil {
		return err
	}
	err = s.users.SetResetToken(ctx, email, token, s.now().Add(resetTokenTTL))
	if errors.Is(err, errs.ErrNotFound) {
		return nil // don't reveal
	}
	if err != nil {
		return err
	}

	name := ""
	if u, uerr := s.users.GetByEmail(ctx, email); uerr == nil {
		if p, perr := s.users.GetProfile(ctx, u.ID); perr == nil {
			name = p.FullName
		}
	}
	if merr := s.mail.SendPasswordReset(email, name, token); merr != nil {
		s.log.Error("password reset mail", zap.String("email", email), zap.Error(merr))
	}
	return nil
}

// ResetPassword consumes a non-expired token and replaces the credentials.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return fmt.Errorf("%w: empty token/password", errs.ErrValidation)
	}
	u, err := s.users.GetByResetToken(ctx, token, s.now())
	if err != nil {
		return errs.ErrUnauthorized
	}
	salt, err := pkgcrypto.RandBytes(16)
	if err != nil {
		return err
	}
	hash := pkgcrypto.HashPassword([]byte(newPassword), salt)
	return s.users.ResetPassword(ctx, u.ID, hash, salt)
}

// ParseAccessToken verifies signature and expiry and returns the subject id.
func (s *AuthServiceImpl) ParseAccessToken(token string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !parsed.Valid {
		return uuid.Nil, errs.ErrUnauthorized
	}
	uid, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return uid, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (Tokens, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}
