// Package listing は出品ライフサイクルのドメインロジックを提供する。
//
// 出品は 未売約 → 売約済み → 自動削除 の一方向に遷移する。
// 売約済みへの遷移と削除は所有者のみが実行でき、売約済み出品の
// ユーザー起点削除は拒否される（売約から24時間後にワーカーが削除する）。
package listing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/unicloset/internal/model"
	"github.com/hitoshi/unicloset/internal/repository"
)

// TextSanitizer は出品テキストのサニタイズインターフェース。
// security.TextSanitizerServiceの部分集合として定義する。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// ImageURLValidator は画像URLの事前検証インターフェース。
type ImageURLValidator interface {
	ValidateURL(rawURL string) error
}

// EventRecorder は出品ライフサイクルイベントのメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type EventRecorder interface {
	RecordListingCreated()
	RecordListingSold()
}

// Owner は出品作成時に刻印する出品者のスナップショット。
// 認証済みセッションから取得したユーザー情報を渡す。
type Owner struct {
	ID          string
	DisplayName string
	AvatarURL   string
}

// Draft は出品作成の入力を表す。
type Draft struct {
	Title       string
	Description string
	Price       float64
	Category    string
	Size        string
	Condition   string
	Images      []string
}

// Service は出品ライフサイクルのサービス層。
type Service struct {
	repo       repository.ListingRepository
	sanitizer  TextSanitizer
	imageGuard ImageURLValidator
	recorder   EventRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizer、imageGuard、recorderはnilを許容する（テスト用）。
func NewService(
	repo repository.ListingRepository,
	sanitizer TextSanitizer,
	imageGuard ImageURLValidator,
	recorder EventRecorder,
) *Service {
	return &Service{
		repo:       repo,
		sanitizer:  sanitizer,
		imageGuard: imageGuard,
		recorder:   recorder,
	}
}

// Create は新規出品を作成する。
// 検証順序: 認証 → タイトル → 価格 → カテゴリ/サイズ/状態 → 画像。
// タイトルと説明文はサニタイズしてから保存する。
func (s *Service) Create(ctx context.Context, owner Owner, draft Draft) (*model.Listing, error) {
	if owner.ID == "" {
		return nil, model.NewUnauthorizedError()
	}

	title := strings.TrimSpace(draft.Title)
	if s.sanitizer != nil {
		title = strings.TrimSpace(s.sanitizer.Sanitize(title))
	}
	if title == "" {
		return nil, model.NewInvalidListingError("title", "タイトルは必須です")
	}

	description := strings.TrimSpace(draft.Description)
	if s.sanitizer != nil {
		description = strings.TrimSpace(s.sanitizer.Sanitize(description))
	}

	if draft.Price <= 0 {
		return nil, model.NewInvalidListingError("price", "価格は0より大きい値を指定してください")
	}

	category := model.Category(draft.Category)
	if !category.IsValid() {
		return nil, model.NewInvalidListingError("category", fmt.Sprintf("未定義のカテゴリです: %s", draft.Category))
	}
	size := model.Size(draft.Size)
	if !size.IsValid() {
		return nil, model.NewInvalidListingError("size", fmt.Sprintf("未定義のサイズです: %s", draft.Size))
	}
	condition := model.Condition(draft.Condition)
	if !condition.IsValid() {
		return nil, model.NewInvalidListingError("condition", fmt.Sprintf("未定義の状態です: %s", draft.Condition))
	}

	if len(draft.Images) < model.MinListingImages || len(draft.Images) > model.MaxListingImages {
		return nil, model.NewInvalidListingError("images",
			fmt.Sprintf("画像は%d〜%d件で指定してください", model.MinListingImages, model.MaxListingImages))
	}
	for _, img := range draft.Images {
		if strings.TrimSpace(img) == "" {
			return nil, model.NewInvalidListingError("images", "空の画像参照は指定できません")
		}
		if s.imageGuard != nil {
			if err := s.imageGuard.ValidateURL(img); err != nil {
				return nil, model.NewInvalidImageURLError(err.Error())
			}
		}
	}

	now := time.Now()
	listing := &model.Listing{
		ID:               uuid.New().String(),
		Title:            title,
		Description:      description,
		Price:            draft.Price,
		Category:         category,
		Size:             size,
		Condition:        condition,
		Images:           draft.Images,
		OwnerID:          owner.ID,
		OwnerDisplayName: owner.DisplayName,
		OwnerAvatarURL:   owner.AvatarURL,
		IsSold:           false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("出品の保存に失敗しました: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordListingCreated()
	}
	slog.Info("出品を作成しました",
		slog.String("listing_id", listing.ID),
		slog.String("owner_id", owner.ID),
		slog.String("category", string(category)),
	)

	return listing, nil
}

// ListByOwner は指定ユーザーの全出品を新着順で返す。
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*model.Listing, error) {
	listings, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("出品一覧の取得に失敗しました: %w", err)
	}
	return listings, nil
}

// ListAvailable は販売中の出品を検索条件付きで新着順に返す。
// 売約済み出品は常に除外される。
func (s *Service) ListAvailable(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error) {
	listings, err := s.repo.ListAvailable(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("販売中出品の検索に失敗しました: %w", err)
	}
	return listings, nil
}

// GetByID は指定IDの出品を返す。見つからない場合はLISTING_NOT_FOUND。
func (s *Service) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("出品の取得に失敗しました: %w", err)
	}
	if listing == nil {
		return nil, model.NewListingNotFoundError(id)
	}
	return listing, nil
}

// MarkSold は出品を売約済みに遷移させる。
// 所有者以外の呼び出しはFORBIDDEN、売約済み出品への再実行は
// LISTING_ALREADY_SOLDで拒否する（冪等な成功にはしない）。
// 実際の状態遷移はリポジトリのcompare-and-swapで原子的に行われる。
func (s *Service) MarkSold(ctx context.Context, listingID, requesterID string) (*model.Listing, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("出品の取得に失敗しました: %w", err)
	}
	if listing == nil {
		return nil, model.NewListingNotFoundError(listingID)
	}
	if listing.OwnerID != requesterID {
		slog.Warn("所有者以外による売約操作を拒否しました",
			slog.String("listing_id", listingID),
			slog.String("owner_id", listing.OwnerID),
			slog.String("requester_id", requesterID),
		)
		return nil, model.NewForbiddenError()
	}
	if listing.IsSold {
		return nil, model.NewListingAlreadySoldError(listingID)
	}

	soldAt := time.Now()
	updated, err := s.repo.MarkSold(ctx, listingID, soldAt)
	if err != nil {
		return nil, fmt.Errorf("出品の売約更新に失敗しました: %w", err)
	}
	if !updated {
		// 取得と更新の間に並行リクエストが先に売約済みにした場合
		return nil, model.NewListingAlreadySoldError(listingID)
	}

	listing.IsSold = true
	listing.SoldAt = &soldAt
	listing.UpdatedAt = soldAt

	if s.recorder != nil {
		s.recorder.RecordListingSold()
	}
	slog.Info("出品を売約済みにしました",
		slog.String("listing_id", listingID),
		slog.String("owner_id", requesterID),
	)

	return listing, nil
}

// Delete は出品をユーザー起点で削除する。
// 所有者以外はFORBIDDEN、売約済み出品はSOLD_LISTING_NOT_DELETABLEで拒否する。
// 実際の削除はリポジトリのcompare-and-swapで原子的に行われ、
// 取得と削除の間に売約された出品も拒否される。
// 売約済み出品の削除は期限切れワーカーのみが行う。
func (s *Service) Delete(ctx context.Context, listingID, requesterID string) error {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		return fmt.Errorf("出品の取得に失敗しました: %w", err)
	}
	if listing == nil {
		return model.NewListingNotFoundError(listingID)
	}
	if listing.OwnerID != requesterID {
		slog.Warn("所有者以外による削除操作を拒否しました",
			slog.String("listing_id", listingID),
			slog.String("owner_id", listing.OwnerID),
			slog.String("requester_id", requesterID),
		)
		return model.NewForbiddenError()
	}
	if listing.IsSold {
		return model.NewSoldNotDeletableError()
	}

	deleted, err := s.repo.Delete(ctx, listingID)
	if err != nil {
		return fmt.Errorf("出品の削除に失敗しました: %w", err)
	}
	if !deleted {
		// 取得と削除の間に並行リクエストが状態を変えた場合。
		// 再取得して消えたのか売約されたのかを区別する。
		current, err := s.repo.FindByID(ctx, listingID)
		if err != nil {
			return fmt.Errorf("出品の取得に失敗しました: %w", err)
		}
		if current == nil {
			return model.NewListingNotFoundError(listingID)
		}
		return model.NewSoldNotDeletableError()
	}

	slog.Info("出品を削除しました",
		slog.String("listing_id", listingID),
		slog.String("owner_id", requesterID),
	)

	return nil
}
