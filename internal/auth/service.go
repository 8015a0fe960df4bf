// Package auth は大学メールアドレスによるサインアップ・ログインと
// セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/unicloset/internal/model"
	"github.com/hitoshi/unicloset/internal/repository"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 8

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	// AllowedEmailDomain はサインアップを許可するメールドメイン（例: "ucsc.edu"）。
	// 在学生のみが参加できるよう、大学発行のアドレスに限定する。
	AllowedEmailDomain string
	SessionMaxAge      int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// Signup は大学メールアドレスで新規ユーザーを登録し、セッションを発行する。
// usersレコードとidentitiesレコード（provider="password"）を同時に作成する。
// 許可ドメイン以外のアドレス、登録済みアドレス、短すぎるパスワードは拒否する。
func (s *Service) Signup(ctx context.Context, email, password, displayName string) (*model.User, *model.Session, error) {
	normalized, err := s.normalizeEmail(email)
	if err != nil {
		return nil, nil, err
	}

	if len(password) < MinPasswordLength {
		return nil, nil, model.NewWeakPasswordError(MinPasswordLength)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		// 表示名未指定の場合はメールのローカル部を使う
		displayName = normalized[:strings.Index(normalized, "@")]
	}

	existing, err := s.userRepo.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, nil, model.NewDuplicateEmailError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	newUser := &model.User{
		ID:          uuid.New().String(),
		Email:       normalized,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         newUser.ID,
		Provider:       model.ProviderPassword,
		ProviderUserID: normalized,
		PasswordHash:   string(hash),
		CreatedAt:      now,
	}

	if err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity); err != nil {
		return nil, nil, fmt.Errorf("failed to create user and identity: %w", err)
	}

	session, err := s.createSession(ctx, newUser.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("new user signed up",
		slog.String("user_id", newUser.ID),
		slog.String("email", normalized),
	)

	return newUser, session, nil
}

// Login はメールアドレスとパスワードでログインし、セッションを発行する。
// アドレス未登録とパスワード不一致は区別せず、同一のLOGIN_FAILEDを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || password == "" {
		return nil, nil, model.NewLoginFailedError()
	}

	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, model.ProviderPassword, normalized)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity == nil {
		return nil, nil, model.NewLoginFailedError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login failed: password mismatch", slog.String("user_id", identity.UserID))
		return nil, nil, model.NewLoginFailedError()
	}

	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewLoginFailedError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return user, session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// セッションが無効・期限切れの場合はUNAUTHORIZEDを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// normalizeEmail はメールアドレスを小文字化し、許可ドメインを検証する。
func (s *Service) normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	at := strings.LastIndex(normalized, "@")
	if at <= 0 || at == len(normalized)-1 {
		return "", model.NewInvalidEmailDomainError(s.config.AllowedEmailDomain)
	}
	domain := normalized[at+1:]
	if domain != strings.ToLower(s.config.AllowedEmailDomain) {
		return "", model.NewInvalidEmailDomainError(s.config.AllowedEmailDomain)
	}

	return normalized, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
