// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/unicloset/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// メールアドレスは小文字正規化して照合される。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はユーザーの表示名・アバター・所属・学籍番号を更新する。
	UpdateProfile(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentitiesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は認証手段の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ListingRepository は出品データの永続化インターフェース。
// 出品ライフサイクル（作成 → 売約 → 自動削除）のCRUD操作を提供する。
type ListingRepository interface {
	// Create は出品を作成する。
	Create(ctx context.Context, listing *model.Listing) error

	// FindByID は指定IDの出品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Listing, error)

	// ListByOwner は指定ユーザーの全出品を新着順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Listing, error)

	// ListAvailable は販売中（未売約）の出品を検索条件付きで新着順に返す。
	// filter.Queryはタイトル・説明文への大文字小文字を区別しない部分一致、
	// filter.Categoryは完全一致（"all"または空の場合は全カテゴリ）。
	ListAvailable(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error)

	// MarkSold は未売約の出品を売約済みに更新する。
	// is_sold = false の行のみを原子的に更新するcompare-and-swapであり、
	// 更新できた場合はtrueを返す。すでに売約済みの場合はfalseを返す。
	MarkSold(ctx context.Context, id string, soldAt time.Time) (bool, error)

	// Delete は未売約の出品を削除する。ユーザー起点の削除経路で使用する。
	// is_sold = false の行のみを原子的に削除するcompare-and-swapであり、
	// 削除できた場合はtrueを返す。売約済みまたは存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteByOwnerID は指定ユーザーの全出品を削除する。退会処理で使用する。
	DeleteByOwnerID(ctx context.Context, ownerID string) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
