package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/unicloset/internal/model"
)

// listingColumns は出品取得クエリのSELECT句。全取得系クエリで共通に使用する。
const listingColumns = `id, title, description, price, category, size, condition, images,
	       owner_id, owner_display_name, owner_avatar_url,
	       is_sold, sold_at, created_at, updated_at`

// PostgresListingRepo はPostgreSQLを使用した出品リポジトリ。
type PostgresListingRepo struct {
	db *sql.DB
}

// NewPostgresListingRepo はPostgresListingRepoを生成する。
func NewPostgresListingRepo(db *sql.DB) *PostgresListingRepo {
	return &PostgresListingRepo{db: db}
}

// Create は出品を作成する。
func (r *PostgresListingRepo) Create(ctx context.Context, listing *model.Listing) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO listings (id, title, description, price, category, size, condition, images,
		                       owner_id, owner_display_name, owner_avatar_url,
		                       is_sold, sold_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		listing.ID, listing.Title, listing.Description, listing.Price,
		string(listing.Category), string(listing.Size), string(listing.Condition),
		pq.Array(listing.Images),
		listing.OwnerID, listing.OwnerDisplayName, nullString(listing.OwnerAvatarURL),
		listing.IsSold, listing.SoldAt, listing.CreatedAt, listing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("出品の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの出品を取得する。見つからない場合はnilを返す。
func (r *PostgresListingRepo) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`,
		id,
	)

	listing, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("出品の取得に失敗しました: %w", err)
	}
	return listing, nil
}

// ListByOwner は指定ユーザーの全出品を新着順で返す。
// 同時刻に作成された行の順序を安定させるためidを第2ソートキーにする。
func (r *PostgresListingRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+`
		 FROM listings
		 WHERE owner_id = $1
		 ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("出品一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// ListAvailable は販売中（未売約）の出品を検索条件付きで新着順に返す。
func (r *PostgresListingRepo) ListAvailable(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error) {
	query := `SELECT ` + listingColumns + `
		 FROM listings
		 WHERE is_sold = false`

	args := []interface{}{}
	argIndex := 1

	// 検索語: タイトルまたは説明文への大文字小文字を区別しない部分一致
	if filter.Query != "" {
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		argIndex++
	}

	// カテゴリ: 完全一致（"all"または未指定は全カテゴリ）
	if filter.Category != "" && filter.Category != model.CategoryFilterAll {
		query += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, filter.Category)
		argIndex++
	}

	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("販売中出品の検索に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// MarkSold は未売約の出品を売約済みに更新する。
// WHERE句のis_sold = falseによる原子的なcompare-and-swapで、
// 同一出品への並行した売約操作のうち1つだけが成功することを保証する。
func (r *PostgresListingRepo) MarkSold(ctx context.Context, id string, soldAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE listings SET is_sold = true, sold_at = $2, updated_at = $2
		 WHERE id = $1 AND is_sold = false`,
		id, soldAt,
	)
	if err != nil {
		return false, fmt.Errorf("出品の売約更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// Delete は未売約の出品を削除する。
// WHERE句のis_sold = falseによる原子的なcompare-and-swapで、
// 取得と削除の間に売約された出品をユーザー経路が消せないことを保証する。
// 売約済み出品の削除は期限切れワーカーのバッチSQLのみが行う。
func (r *PostgresListingRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM listings WHERE id = $1 AND is_sold = false`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("出品の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByOwnerID は指定ユーザーの全出品を削除する。
func (r *PostgresListingRepo) DeleteByOwnerID(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM listings WHERE owner_id = $1`,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("ユーザー出品の一括削除に失敗しました: %w", err)
	}
	return nil
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanListing は1行分の出品データをスキャンする。
func scanListing(row rowScanner) (*model.Listing, error) {
	listing := &model.Listing{}
	var category, size, condition string
	var ownerAvatarURL sql.NullString
	var soldAt sql.NullTime
	var images pq.StringArray

	err := row.Scan(
		&listing.ID, &listing.Title, &listing.Description, &listing.Price,
		&category, &size, &condition, &images,
		&listing.OwnerID, &listing.OwnerDisplayName, &ownerAvatarURL,
		&listing.IsSold, &soldAt, &listing.CreatedAt, &listing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	listing.Category = model.Category(category)
	listing.Size = model.Size(size)
	listing.Condition = model.Condition(condition)
	listing.Images = []string(images)
	listing.OwnerAvatarURL = nullStringValue(ownerAvatarURL)
	if soldAt.Valid {
		listing.SoldAt = &soldAt.Time
	}

	return listing, nil
}

// collectListings は複数行の出品データをスキャンして返す。
func collectListings(rows *sql.Rows) ([]*model.Listing, error) {
	var listings []*model.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("出品行の読み取りに失敗しました: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("出品一覧の走査に失敗しました: %w", err)
	}
	return listings, nil
}

// escapeLike はLIKE/ILIKEパターンのメタ文字をエスケープする。
// ユーザー入力の検索語をリテラルな部分一致として扱うため。
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// compile-time interface check
var _ ListingRepository = (*PostgresListingRepo)(nil)
