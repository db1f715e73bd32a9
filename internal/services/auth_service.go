package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldops/dcinstall-api/internal/audit"
	"github.com/fieldops/dcinstall-api/internal/config"
	"github.com/fieldops/dcinstall-api/internal/models"
	"github.com/fieldops/dcinstall-api/internal/repository"
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	cfg              *config.Config
	recorder         *audit.Recorder
	limiter          RateLimiter
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repository.UserRepository, rtRepo repository.RefreshTokenRepository, cfg *config.Config, recorder *audit.Recorder, limiter RateLimiter) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: rtRepo,
		cfg:              cfg,
		recorder:         recorder,
		limiter:          limiter,
	}
}

// LoginResult represents the result of a login attempt
type LoginResult struct {
	Token        string              `json:"token"`
	RefreshToken string              `json:"refresh_token"`
	User         models.UserResponse `json:"user"`
}

// Login authenticates a user and returns tokens. The caller passes the
// request IP and user agent explicitly so the audit entries carry them even
// though no session exists yet.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	if blocked, err := s.limiter.IsBlocked(ctx, email); err == nil && blocked {
		return nil, ErrTooManyAttempts
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.auditLoginFailed(ctx, email, ip, userAgent, "unknown email")
		s.limiter.RecordFailure(ctx, email)
		return nil, errors.New("invalid credentials")
	}

	if !user.IsActive() {
		s.auditLoginFailed(ctx, email, ip, userAgent, "inactive account")
		return nil, errors.New("account inactive or suspended")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.EncryptedPassword), []byte(password)); err != nil {
		s.auditLoginFailed(ctx, email, ip, userAgent, "wrong password")
		s.limiter.RecordFailure(ctx, email)
		return nil, errors.New("invalid credentials")
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	refreshToken, err := s.generateRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, errors.New("failed to generate refresh token")
	}

	s.limiter.Reset(ctx, email)

	// The actor context is not populated yet on the login route, so attach
	// the freshly authenticated identity before writing the entry.
	actorCtx := audit.WithActor(ctx, &audit.Actor{ID: user.ID, Name: user.FullName, Email: user.Email, Role: user.Role})
	s.recorder.CreateEntry(actorCtx, audit.Fields{
		Action:       audit.ActionLogin,
		ResourceType: "User",
		ResourceID:   user.Email,
		Severity:     audit.SeverityLow,
		Description:  fmt.Sprintf("User %s logged in", user.Email),
		IPAddress:    ip,
		UserAgent:    userAgent,
	})

	return &LoginResult{
		Token:        token,
		RefreshToken: refreshToken,
		User:         user.ToResponse(),
	}, nil
}

// RefreshToken validates a refresh token and returns new tokens
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*LoginResult, error) {
	rt, err := s.refreshTokenRepo.FindByToken(ctx, refreshToken)
	if err != nil {
		return nil, errors.New("invalid token")
	}

	if rt.IsExpired() {
		s.refreshTokenRepo.Delete(ctx, refreshToken)
		return nil, errors.New("token expired")
	}

	user, err := s.userRepo.FindByID(ctx, rt.UserID)
	if err != nil {
		return nil, errors.New("user not found")
	}

	if !user.IsActive() {
		return nil, errors.New("account inactive or suspended")
	}

	// Rotate the refresh token
	s.refreshTokenRepo.Delete(ctx, refreshToken)

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	newRefreshToken, err := s.generateRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, errors.New("failed to generate refresh token")
	}

	return &LoginResult{
		Token:        token,
		RefreshToken: newRefreshToken,
		User:         user.ToResponse(),
	}, nil
}

// Logout invalidates a refresh token. IP and user agent come from the
// caller because the session is being torn down as the entry is written.
func (s *AuthService) Logout(ctx context.Context, refreshToken, ip, userAgent string) error {
	if err := s.refreshTokenRepo.Delete(ctx, refreshToken); err != nil {
		return err
	}

	resourceID := ""
	if actor := audit.ActorFrom(ctx); actor != nil {
		resourceID = actor.Email
	}
	s.recorder.CreateEntry(ctx, audit.Fields{
		Action:       audit.ActionLogout,
		ResourceType: "User",
		ResourceID:   resourceID,
		Severity:     audit.SeverityLow,
		Description:  "User logged out",
		IPAddress:    ip,
		UserAgent:    userAgent,
	})
	return nil
}

// ConfirmPassword re-checks the current user's password before a sensitive
// operation and records the outcome.
func (s *AuthService) ConfirmPassword(ctx context.Context, userID uint, password string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return ErrNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.EncryptedPassword), []byte(password)); err != nil {
		s.recorder.CreateEntry(ctx, audit.Fields{
			Action:       audit.ActionPasswordConfirmFailed,
			ResourceType: "User",
			ResourceID:   user.Email,
			Severity:     audit.SeverityHigh,
			Description:  fmt.Sprintf("Password confirmation failed for %s", user.Email),
		})
		return ErrInvalidPassword
	}

	s.recorder.CreateEntry(ctx, audit.Fields{
		Action:       audit.ActionPasswordConfirmed,
		ResourceType: "User",
		ResourceID:   user.Email,
		Severity:     audit.SeverityLow,
		Description:  fmt.Sprintf("Password confirmed for %s", user.Email),
	})
	return nil
}

// auditLoginFailed writes a LOGIN_FAILED entry with no actor snapshot; the
// attempted email becomes the resource id.
func (s *AuthService) auditLoginFailed(ctx context.Context, email, ip, userAgent, reason string) {
	s.recorder.CreateEntry(ctx, audit.Fields{
		Action:       audit.ActionLoginFailed,
		ResourceType: "User",
		ResourceID:   email,
		Severity:     audit.SeverityMedium,
		Description:  fmt.Sprintf("Failed login attempt for %s (%s)", email, reason),
		IPAddress:    ip,
		UserAgent:    userAgent,
	})
}

// generateJWT creates a new JWT token for a user
func (s *AuthService) generateJWT(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":   user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
		"role":      user.Role,
		"exp":       time.Now().Add(time.Duration(s.cfg.JWTExpirationHours) * time.Hour).Unix(),
		"iat":       time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// generateRefreshToken creates a new refresh token
func (s *AuthService) generateRefreshToken(ctx context.Context, userID uint) (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(bytes)

	// 30 day expiration
	expiresAt := time.Now().Add(30 * 24 * time.Hour)

	rt := &models.RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: &expiresAt,
	}

	if err := s.refreshTokenRepo.Create(ctx, rt); err != nil {
		return "", err
	}

	return token, nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifyPassword compares a password with a hash
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
