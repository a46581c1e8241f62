package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/cinematch/cinematch/pkg/cache"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/mail"
	"github.com/cinematch/cinematch/pkg/queue"
	"golang.org/x/crypto/bcrypt"
)

const (
	activationKeyPrefix = "activation:"
	resetKeyPrefix      = "reset:"
	refreshKeyPrefix    = "refresh:"
	rememberKeySuffix   = ":remember"
)

// errInvalidToken covers missing, expired and tampered tokens alike.
var errInvalidToken = apperror.Forbidden("Invalid or expired token")

// TokenIssuer signs and verifies JWTs. It is implemented by
// middleware.JWTConfig.
type TokenIssuer interface {
	IssueAccess(userID int64, username string, remember bool) (string, error)
	IssueRefresh(userID int64, username string, remember bool) (string, error)
	VerifyRefresh(token string) (int64, string, error)
}

type AuthConfig struct {
	ActivationTTL time.Duration
	ResetTTL      time.Duration
	AccessTTL     time.Duration
	RememberTTL   time.Duration
}

type AuthService struct {
	users    UserStore
	follows  FollowStore
	cache    Cache
	tokens   TokenIssuer
	mailer   mail.Sender
	composer *mail.Composer
	events   EventPublisher
	config   AuthConfig
	logger   *logger.Logger
}

func NewAuthService(users UserStore, follows FollowStore, cache Cache, tokens TokenIssuer, mailer mail.Sender, composer *mail.Composer, events EventPublisher, config AuthConfig, logger *logger.Logger) *AuthService {
	return &AuthService{
		users:    users,
		follows:  follows,
		cache:    cache,
		tokens:   tokens,
		mailer:   mailer,
		composer: composer,
		events:   events,
		config:   config,
		logger:   logger,
	}
}

type SignupRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type LoginResult struct {
	Token        string             `json:"token"`
	RefreshToken string             `json:"refreshToken"`
	User         models.UserProfile `json:"user"`
}

// Signup creates an inactive user and mails an activation link.
func (s *AuthService) Signup(ctx context.Context, req *SignupRequest) (*models.User, error) {
	taken, err := s.users.Taken(ctx, req.Username, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, apperror.Conflict("Username or email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hash),
		IsActive: false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.storeToken(ctx, activationKeyPrefix, user.Username, s.config.ActivationTTL)
	if err != nil {
		// Without a token the account could never be activated.
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.WithError(delErr).WithField("user_id", user.ID).Error("Failed to roll back user after token failure")
		}
		return nil, err
	}
	if err := s.mailer.Send(ctx, s.composer.Activation(user.Email, token)); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("Failed to send activation mail")
	}

	publishEvent(ctx, s.events, s.logger, queue.EventUserCreated, user.ID, queue.UserEventData{
		UserID:   user.ID,
		Username: user.Username,
	})

	s.logger.WithField("user_id", user.ID).Info("User registered successfully")
	return user, nil
}

// Activate consumes an activation token. A second use of the same token
// fails because the key is deleted on read.
func (s *AuthService) Activate(ctx context.Context, token string) error {
	username, err := s.consumeToken(ctx, activationKeyPrefix, token)
	if err != nil {
		return err
	}

	found, err := s.users.Activate(ctx, username)
	if err != nil {
		return err
	}
	if !found {
		return apperror.NotFound("User not found")
	}

	s.logger.WithField("username", username).Info("User activated")
	return nil
}

// CheckUsername reports whether a username is still free.
func (s *AuthService) CheckUsername(ctx context.Context, username string) (bool, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return user == nil, nil
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}
	if !user.IsActive {
		return nil, apperror.BadRequest("User not activated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.BadRequest("Invalid password")
	}

	access, err := s.tokens.IssueAccess(user.ID, user.Username, req.RememberMe)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(user.ID, user.Username, req.RememberMe)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	if err := s.storeRefresh(ctx, refresh, user.Username, req.RememberMe); err != nil {
		return nil, err
	}

	followers, following, err := s.follows.Counts(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count follows: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User logged in successfully")
	return &LoginResult{
		Token:        access,
		RefreshToken: refresh,
		User: models.UserProfile{
			User:           *user,
			FollowersCount: followers,
			FollowingCount: following,
		},
	}, nil
}

// Refresh trades a stored refresh token for a new access token and extends
// the refresh token's lifetime.
func (s *AuthService) Refresh(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperror.Unauthorized("Missing token")
	}

	if _, err := s.cache.Get(ctx, refreshKeyPrefix+token); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return "", errInvalidToken
		}
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}

	_, username, err := s.tokens.VerifyRefresh(token)
	if err != nil {
		return "", apperror.Forbidden("Invalid or expired token").Wrap(err)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return "", apperror.BadRequest("User not activated")
	}

	remember := false
	if flag, err := s.cache.Get(ctx, refreshKeyPrefix+token+rememberKeySuffix); err == nil {
		remember = flag == "true"
	}

	access, err := s.tokens.IssueAccess(user.ID, user.Username, remember)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	if err := s.extendRefresh(ctx, token, remember); err != nil {
		return "", err
	}
	return access, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.cache.Delete(ctx, refreshKeyPrefix+token, refreshKeyPrefix+token+rememberKeySuffix); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return apperror.NotFound("User not found")
	}

	token, err := s.storeToken(ctx, resetKeyPrefix, user.Username, s.config.ResetTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, s.composer.PasswordReset(user.Email, token)); err != nil {
		return fmt.Errorf("failed to send reset mail: %w", err)
	}
	return nil
}

// ValidateResetToken checks a reset token without consuming it.
func (s *AuthService) ValidateResetToken(ctx context.Context, token string) error {
	n, err := s.cache.Exists(ctx, resetKeyPrefix+token)
	if err != nil {
		return fmt.Errorf("failed to read reset token: %w", err)
	}
	if n == 0 {
		return errInvalidToken
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	username, err := s.consumeToken(ctx, resetKeyPrefix, token)
	if err != nil {
		return err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return apperror.NotFound("User not found")
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return apperror.NotFound("User not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return apperror.BadRequest("Invalid password")
	}
	return s.setPassword(ctx, user.ID, req.NewPassword)
}

func (s *AuthService) setPassword(ctx context.Context, userID int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	s.logger.WithField("user_id", userID).Info("Password updated")
	return nil
}

func (s *AuthService) storeRefresh(ctx context.Context, token, username string, remember bool) error {
	ttl := s.config.AccessTTL
	if remember {
		ttl = s.config.RememberTTL
	}
	if err := s.cache.Set(ctx, refreshKeyPrefix+token, username, ttl); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	if remember {
		if err := s.cache.Set(ctx, refreshKeyPrefix+token+rememberKeySuffix, "true", ttl); err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
	}
	return nil
}

// extendRefresh restarts the lifetime of a stored refresh token and its
// remember flag.
func (s *AuthService) extendRefresh(ctx context.Context, token string, remember bool) error {
	ttl := s.config.AccessTTL
	if remember {
		ttl = s.config.RememberTTL
	}
	if err := s.cache.Expire(ctx, refreshKeyPrefix+token, ttl); err != nil {
		return fmt.Errorf("failed to extend refresh token: %w", err)
	}
	if remember {
		if err := s.cache.Expire(ctx, refreshKeyPrefix+token+rememberKeySuffix, ttl); err != nil {
			return fmt.Errorf("failed to extend refresh token: %w", err)
		}
	}
	return nil
}

// storeToken mints a random single-use token mapped to username.
func (s *AuthService) storeToken(ctx context.Context, prefix, username string, ttl time.Duration) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, prefix+token, username, ttl); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}

func (s *AuthService) consumeToken(ctx context.Context, prefix, token string) (string, error) {
	username, err := s.cache.GetDel(ctx, prefix+token)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return "", errInvalidToken
		}
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return username, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
