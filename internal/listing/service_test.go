package listing

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/unicloset/internal/model"
)

// --- モック ---

type mockListingRepo struct {
	createFn        func(ctx context.Context, listing *model.Listing) error
	findByIDFn      func(ctx context.Context, id string) (*model.Listing, error)
	listByOwnerFn   func(ctx context.Context, ownerID string) ([]*model.Listing, error)
	listAvailableFn func(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error)
	markSoldFn      func(ctx context.Context, id string, soldAt time.Time) (bool, error)
	deleteFn        func(ctx context.Context, id string) (bool, error)
}

func (m *mockListingRepo) Create(ctx context.Context, listing *model.Listing) error {
	if m.createFn != nil {
		return m.createFn(ctx, listing)
	}
	return nil
}
func (m *mockListingRepo) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockListingRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Listing, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID)
	}
	return nil, nil
}
func (m *mockListingRepo) ListAvailable(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error) {
	if m.listAvailableFn != nil {
		return m.listAvailableFn(ctx, filter)
	}
	return nil, nil
}
func (m *mockListingRepo) MarkSold(ctx context.Context, id string, soldAt time.Time) (bool, error) {
	if m.markSoldFn != nil {
		return m.markSoldFn(ctx, id, soldAt)
	}
	return true, nil
}
func (m *mockListingRepo) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}
func (m *mockListingRepo) DeleteByOwnerID(ctx context.Context, ownerID string) error {
	return nil
}

// validDraft はテスト用の有効な出品ドラフトを返す。
func validDraft() Draft {
	return Draft{
		Title:       "Slug Life Hoodie",
		Description: "霧の朝にちょうどいい大学パーカー",
		Price:       35,
		Category:    "hoodie",
		Size:        "M",
		Condition:   "gently-used",
		Images:      []string{"https://example.com/a.jpg"},
	}
}

func testOwner() Owner {
	return Owner{ID: "user-1", DisplayName: "samantha_sc", AvatarURL: "https://example.com/p.jpg"}
}

// assertAPIErrorCode はエラーが指定コードのAPIErrorであることを検証する。
func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected APIError with code %s, got nil", code)
	}
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %s, want %s", apiErr.Code, code)
	}
}

// --- Create ---

// 有効なドラフトから未売約の出品が作成されることを検証
func TestService_Create_Valid(t *testing.T) {
	var saved *model.Listing
	repo := &mockListingRepo{
		createFn: func(ctx context.Context, listing *model.Listing) error {
			saved = listing
			return nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	listing, err := svc.Create(context.Background(), testOwner(), validDraft())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if listing.ID == "" {
		t.Error("expected assigned listing ID")
	}
	if listing.IsSold {
		t.Error("new listing must not be sold")
	}
	if listing.SoldAt != nil {
		t.Error("new listing must not have sold_at")
	}
	if listing.OwnerID != "user-1" {
		t.Errorf("owner_id = %s, want user-1", listing.OwnerID)
	}
	if listing.OwnerDisplayName != "samantha_sc" {
		t.Errorf("owner_display_name = %s, want samantha_sc", listing.OwnerDisplayName)
	}
	if listing.CreatedAt.IsZero() {
		t.Error("created_at must be set")
	}
	if saved == nil || saved.ID != listing.ID {
		t.Error("listing was not persisted via repository")
	}
}

// 作成のたびに異なるIDが払い出されることを検証
func TestService_Create_UniqueIDs(t *testing.T) {
	svc := NewService(&mockListingRepo{}, nil, nil, nil)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		listing, err := svc.Create(context.Background(), testOwner(), validDraft())
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		if seen[listing.ID] {
			t.Fatalf("duplicate listing ID issued: %s", listing.ID)
		}
		seen[listing.ID] = true
	}
}

// 未認証（所有者ID空）の作成が拒否されることを検証
func TestService_Create_Unauthenticated(t *testing.T) {
	createCalled := false
	repo := &mockListingRepo{
		createFn: func(ctx context.Context, listing *model.Listing) error {
			createCalled = true
			return nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), Owner{}, validDraft())
	assertAPIErrorCode(t, err, model.ErrCodeUnauthorized)
	if createCalled {
		t.Error("repository must not be called for unauthenticated create")
	}
}

// 画像0件の作成が検証エラーになり、コレクションが変更されないことを検証
func TestService_Create_NoImages(t *testing.T) {
	createCalled := false
	repo := &mockListingRepo{
		createFn: func(ctx context.Context, listing *model.Listing) error {
			createCalled = true
			return nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	draft := validDraft()
	draft.Images = nil
	_, err := svc.Create(context.Background(), testOwner(), draft)
	assertAPIErrorCode(t, err, model.ErrCodeInvalidListing)
	if createCalled {
		t.Error("repository must not be called for invalid draft")
	}
}

// 画像5件以上の作成が検証エラーになることを検証
func TestService_Create_TooManyImages(t *testing.T) {
	svc := NewService(&mockListingRepo{}, nil, nil, nil)

	draft := validDraft()
	draft.Images = []string{
		"https://example.com/1.jpg", "https://example.com/2.jpg",
		"https://example.com/3.jpg", "https://example.com/4.jpg",
		"https://example.com/5.jpg",
	}
	_, err := svc.Create(context.Background(), testOwner(), draft)
	assertAPIErrorCode(t, err, model.ErrCodeInvalidListing)
}

// 価格0以下の作成が検証エラーになることを検証
func TestService_Create_NonPositivePrice(t *testing.T) {
	svc := NewService(&mockListingRepo{}, nil, nil, nil)

	for _, price := range []float64{0, -5} {
		draft := validDraft()
		draft.Price = price
		_, err := svc.Create(context.Background(), testOwner(), draft)
		assertAPIErrorCode(t, err, model.ErrCodeInvalidListing)
	}
}

// 定義外のカテゴリ/サイズ/状態が拒否されることを検証
func TestService_Create_InvalidEnums(t *testing.T) {
	svc := NewService(&mockListingRepo{}, nil, nil, nil)

	cases := []struct {
		name   string
		mutate func(*Draft)
	}{
		{"category", func(d *Draft) { d.Category = "hat" }},
		{"size", func(d *Draft) { d.Size = "XXXL" }},
		{"condition", func(d *Draft) { d.Condition = "destroyed" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft := validDraft()
			tc.mutate(&draft)
			_, err := svc.Create(context.Background(), testOwner(), draft)
			assertAPIErrorCode(t, err, model.ErrCodeInvalidListing)
		})
	}
}

// --- MarkSold ---

// 所有者による売約がsold_atを設定して成功することを検証
func TestService_MarkSold_Success(t *testing.T) {
	repo := &mockListingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Listing, error) {
			return &model.Listing{ID: id, OwnerID: "user-1", IsSold: false}, nil
		},
		markSoldFn: func(ctx context.Context, id string, soldAt time.Time) (bool, error) {
			return true, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	listing, err := svc.MarkSold(context.Background(), "listing-1", "user-1")
	if err != nil {
		t.Fatalf("MarkSold returned error: %v", err)
	}
	if !listing.IsSold {
		t.Error("listing must be sold")
	}
	if listing.SoldAt == nil {
		t.Error("sold_at must be set")
	}
}

// 所有者以外による売約が拒否され、状態が変更されないことを検証
func TestService_MarkSold_NonOwner(t *testing.T) {
	markSoldCalled := false
	repo := &mockListingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Listing, error) {
			return &model.Listing{ID: id, OwnerID: "user-a", IsSold: false}, nil
		},
		markSoldFn: func(ctx context.Context, id string, soldAt time.Time) (bool, error) {
			markSoldCalled = true
			return true, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.MarkSold(context.Background(), "listing-1", "user-b")
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
	if markSoldCalled {
		t.Error("repository MarkSold must not be called for non-owner")
	}
}

// 売約済み出品への再売約がエラーになることを検証（冪等な成功ではない）
func TestService_MarkSold_AlreadySold(t *testing.T) {
	soldAt := time.Now().Add(-time.Hour)
	repo := &mockListingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Listing, error) {
			return &model.Listing{ID: id, OwnerID: "user-1", IsSold: true, SoldAt: &soldAt}, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.MarkSold(context.Background(), "listing-1", "user-1")
	assertAPIErrorCode(t, err, model.ErrCodeListingAlreadySold)
}

// 取得と更新の間に並行リクエストが先に売約した場合もエラーになることを検証
func TestService_MarkSold_LostRace(t *testing.T) {
	repo := &mockListingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Listing, error) {
			return &model.Listing{ID: id, OwnerID: "user-1", IsSold: false}, nil
		},
		markSoldFn: func(ctx context.Context, id string, soldAt time.Time) (bool, error) {
			// compare-and-swap失敗（別リクエストが先に売約済みにした）
			return false, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.MarkSold(context.Background(), "listing-1", "user-1")
	assertAPIErrorCode(t, err, model.ErrCodeListingAlreadySold)
}

// 存在しない出品への売約がLISTING_NOT_FOUNDになることを検証
func TestService_MarkSold_NotFound(t *testing.T) {
	svc := NewService(&mockListingRepo{}, nil, nil, nil)

	_, err := svc.MarkSold(context.Background(), "nonexistent", "user-1")
	assertAPIErrorCode(t, err, model.ErrCodeListingNotFound)
}

// --- Delete ---

// 所有者による未売約出品の削除が成功することを検証
func TestService_Delete_Success(t *testing.T) {
	deleted := ""
	repo := &mockListingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Listing, error) {
			return &model.Listing{ID: id, OwnerID: "user-1", IsSold: false}, nil
		},
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			deleted = id
			return true, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	if err := svc.Delete(context.Background(), "listing-1", "user-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if deleted != "listing-1" {
		t.Errorf("deleted listing = %q, want listing-1", deleted)
	}
}

// 売約済み出品のユーザー起点削除が拒否されることを検証
func TestService_Delete_SoldRejected(t *testing.T) {
	soldAt := time.Now()
	deleteCalled := false
	repo := &mockListingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Listing, error) {
			return &model.Listing{ID: id, OwnerID: "user-1", IsSold: true, SoldAt: &soldAt}, nil
		},
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			deleteCalled = true
			return true, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), "listing-1", "user-1")
	assertAPIErrorCode(t, err, model.ErrCodeSoldNotDeletable)
	if deleteCalled {
		t.Error("repository Delete must not be called for sold listing")
	}
}

// 所有者以外による削除が拒否されることを検証
func TestService_Delete_NonOwner(t *testing.T) {
	repo := &mockListingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Listing, error) {
			return &model.Listing{ID: id, OwnerID: "user-a", IsSold: false}, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), "listing-1", "user-b")
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
}

// 存在しない出品の削除がLISTING_NOT_FOUNDになることを検証
func TestService_Delete_NotFound(t *testing.T) {
	svc := NewService(&mockListingRepo{}, nil, nil, nil)

	err := svc.Delete(context.Background(), "nonexistent", "user-1")
	assertAPIErrorCode(t, err, model.ErrCodeListingNotFound)
}

// 事前チェックと削除の間に売約された出品が削除されないことを検証。
// リポジトリのcompare-and-swap（is_sold = false行のみ削除）が0件を返し、
// SOLD_LISTING_NOT_DELETABLEにマッピングされること。
func TestService_Delete_SoldBetweenCheckAndDelete_Rejected(t *testing.T) {
	soldAt := time.Now()
	sold := false
	repo := &mockListingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Listing, error) {
			if sold {
				return &model.Listing{ID: id, OwnerID: "user-1", IsSold: true, SoldAt: &soldAt}, nil
			}
			// 事前チェック時点では未売約。直後に並行リクエストが売約済みにする。
			sold = true
			return &model.Listing{ID: id, OwnerID: "user-1", IsSold: false}, nil
		},
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			// is_sold = false の行が存在しないため削除0件
			return false, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), "listing-1", "user-1")
	assertAPIErrorCode(t, err, model.ErrCodeSoldNotDeletable)
}

// 事前チェックと削除の間に出品が消えた場合はLISTING_NOT_FOUNDになることを検証
func TestService_Delete_GoneBetweenCheckAndDelete_NotFound(t *testing.T) {
	first := true
	repo := &mockListingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Listing, error) {
			if first {
				first = false
				return &model.Listing{ID: id, OwnerID: "user-1", IsSold: false}, nil
			}
			return nil, nil
		},
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			return false, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), "listing-1", "user-1")
	assertAPIErrorCode(t, err, model.ErrCodeListingNotFound)
}

// --- 一覧 ---

// ListAvailableが売約済みを除外するリポジトリクエリへ委譲することを検証
func TestService_ListAvailable_PassesFilter(t *testing.T) {
	var gotFilter model.ListingFilter
	repo := &mockListingRepo{
		listAvailableFn: func(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error) {
			gotFilter = filter
			return []*model.Listing{{ID: "listing-1", IsSold: false}}, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	results, err := svc.ListAvailable(context.Background(), model.ListingFilter{Query: "hoodie", Category: "all"})
	if err != nil {
		t.Fatalf("ListAvailable returned error: %v", err)
	}
	if gotFilter.Query != "hoodie" || gotFilter.Category != "all" {
		t.Errorf("filter = %+v, want {hoodie all}", gotFilter)
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want 1", len(results))
	}
}

// 変更がなければListByOwnerが同一の並びを返すことを検証（冪等な読み取り）
func TestService_ListByOwner_Idempotent(t *testing.T) {
	fixed := []*model.Listing{{ID: "b"}, {ID: "a"}}
	repo := &mockListingRepo{
		listByOwnerFn: func(ctx context.Context, ownerID string) ([]*model.Listing, error) {
			return fixed, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	first, err := svc.ListByOwner(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByOwner returned error: %v", err)
	}
	second, err := svc.ListByOwner(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByOwner returned error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("result lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("order differs at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}
