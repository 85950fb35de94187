package service

import (
	"context"
	"fmt"
	"time"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/auth"
	"commissioning-backend/internal/models"
	"commissioning-backend/internal/repository"
	"commissioning-backend/pkg/utils"

	"go.uber.org/zap"
)

type AuthService struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	tokens    *auth.TokenManager
	logger    *zap.Logger
}

func NewAuthService(repos repository.Repositories, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:  repos.Users,
		auditRepo: repos.Audit,
		tokens:    tokens,
		logger:    logger,
	}
}

// TokenResponse represents the response structure for token issuance
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueToken authenticates a user and returns a bearer token
func (s *AuthService) IssueToken(ctx context.Context, username, password string) (*TokenResponse, error) {
	// Find user by username
	user, err := s.userRepo.FindByUsername(ctx, username)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}
	if err != nil {
		return nil, err
	}

	// Compare password
	if !utils.ComparePassword(user.PasswordHash, password) {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}

	token, expires, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, apperr.Internal(err, "failed to generate token")
	}

	// Audit log
	recordAudit(ctx, s.auditRepo, s.logger, user.Username, "token_issue",
		fmt.Sprintf("User %s obtained a token", user.Username))

	return &TokenResponse{Token: token, ExpiresAt: expires}, nil
}

// SeedUser creates the configured user when it does not exist yet
func (s *AuthService) SeedUser(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}

	// Hash the password
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	user := &models.User{Username: username, PasswordHash: hash}
	if err := s.userRepo.Create(ctx, user); err != nil && !apperr.IsKind(err, apperr.KindConflict) {
		return err
	}

	s.logger.Info("seeded token user", zap.String("username", username))
	return nil
}
