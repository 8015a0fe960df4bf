// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/unicloset/internal/model"
	"github.com/hitoshi/unicloset/internal/repository"
)

// ListingDeleter は出品の一括削除インターフェース。
type ListingDeleter interface {
	DeleteByOwnerID(ctx context.Context, ownerID string) error
}

// AvatarURLValidator はプロフィール画像URLの検証インターフェース。
type AvatarURLValidator interface {
	ValidateURL(rawURL string) error
}

// ProfileUpdate はプロフィール更新の入力を表す。
// nilのフィールドは未変更を意味する。
type ProfileUpdate struct {
	DisplayName   *string
	AvatarURL     *string
	College       *string
	StudentNumber *string
}

// Service はユーザー管理のサービス層。
// プロフィール更新と退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo       repository.UserRepository
	sessionRepo    repository.SessionRepository
	listingDeleter ListingDeleter
	avatarGuard    AvatarURLValidator
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	listingDeleter ListingDeleter,
	avatarGuard AvatarURLValidator,
) *Service {
	return &Service{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		listingDeleter: listingDeleter,
		avatarGuard:    avatarGuard,
	}
}

// UpdateProfile はユーザープロフィールを更新し、更新後のユーザーを返す。
// メールアドレスは変更できない（大学アドレスとの紐付けを保つため）。
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return nil, model.NewInvalidProfileError("display_name", "表示名は必須です")
		}
		user.DisplayName = name
	}
	if update.AvatarURL != nil {
		avatarURL := strings.TrimSpace(*update.AvatarURL)
		if avatarURL != "" && s.avatarGuard != nil {
			if err := s.avatarGuard.ValidateURL(avatarURL); err != nil {
				return nil, model.NewInvalidImageURLError(err.Error())
			}
		}
		user.AvatarURL = avatarURL
	}
	if update.College != nil {
		user.College = strings.TrimSpace(*update.College)
	}
	if update.StudentNumber != nil {
		user.StudentNumber = strings.TrimSpace(*update.StudentNumber)
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	slog.Info("プロフィールを更新しました",
		slog.String("user_id", userID),
	)

	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: 出品 → セッション → user（+ CASCADE: identities）
// 売約済みを含む本人の全出品が削除される。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. 出品を削除
	if s.listingDeleter != nil {
		if err := s.listingDeleter.DeleteByOwnerID(ctx, userID); err != nil {
			return fmt.Errorf("出品の削除に失敗しました: %w", err)
		}
	}

	// 2. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 3. ユーザーを削除（identitiesはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
