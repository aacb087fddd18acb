package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"farm-market/internal/models"
	"farm-market/internal/store"
	"farm-market/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmailTaken is returned when signup hits an already registered email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password; callers must not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrRoleMismatch is returned when the credentials are valid but the
	// caller asked for a different role than the account's.
	ErrRoleMismatch = errors.New("role mismatch for this user")
)

const bcryptCost = 10

// AuthService handles signup, login, and token issuance
type AuthService struct {
	store    *store.Store
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(store *store.Store, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		store:    store,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
		logger:   util.GetLogger(),
	}
}

// TokenClaims are the JWT claims carried by issued tokens
type TokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// LoginResult carries the authenticated identity and its token
type LoginResult struct {
	UserID int64  `json:"userId"`
	Role   string `json:"userType"`
	Token  string `json:"token"`
}

// Signup registers a new farmer or consumer
func (s *AuthService) Signup(ctx context.Context, name, email, password, role string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Signup")
	defer span.End()

	if role != models.RoleFarmer && role != models.RoleConsumer {
		return nil, fmt.Errorf("invalid role: %s", role)
	}

	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	util.SignupsTotal.WithLabelValues(role).Inc()
	s.logger.Info("User signed up",
		zap.Int64("user_id", user.ID),
		zap.String("role", role))

	return user, nil
}

// Login verifies credentials and issues a token. expectedRole is optional;
// when set, a valid login with a different role fails with ErrRoleMismatch.
func (s *AuthService) Login(ctx context.Context, email, password, expectedRole string) (*LoginResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if user == nil {
		util.LoginsFailedTotal.Inc()
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		util.LoginsFailedTotal.Inc()
		return nil, ErrInvalidCredentials
	}

	if expectedRole != "" && expectedRole != user.Role {
		util.LoginsFailedTotal.Inc()
		return nil, ErrRoleMismatch
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("User logged in", zap.Int64("user_id", user.ID))

	return &LoginResult{
		UserID: user.ID,
		Role:   user.Role,
		Token:  token,
	}, nil
}

// ValidateToken parses and verifies a bearer token
func (s *AuthService) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "farm-market",
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
