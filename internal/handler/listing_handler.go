// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/unicloset/internal/listing"
	"github.com/hitoshi/unicloset/internal/middleware"
	"github.com/hitoshi/unicloset/internal/model"
)

// ListingServiceInterface は出品ハンドラーが必要とするサービスインターフェース。
type ListingServiceInterface interface {
	// Create は新規出品を作成する。
	Create(ctx context.Context, owner listing.Owner, draft listing.Draft) (*model.Listing, error)
	// GetByID は指定IDの出品を取得する。
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	// ListByOwner は指定ユーザーの全出品を新着順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Listing, error)
	// ListAvailable は販売中の出品を検索条件付きで新着順に返す。
	ListAvailable(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error)
	// MarkSold は出品を売約済みに遷移させる。
	MarkSold(ctx context.Context, listingID, requesterID string) (*model.Listing, error)
	// Delete は出品をユーザー起点で削除する。
	Delete(ctx context.Context, listingID, requesterID string) error
}

// OwnerResolver は認証済みユーザーIDから出品者スナップショットを解決する。
// 出品作成時に表示名とアバターを出品レコードへ刻印するために使用する。
type OwnerResolver interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// ListingHandler は出品管理のHTTPハンドラー。
type ListingHandler struct {
	service  ListingServiceInterface
	resolver OwnerResolver
}

// NewListingHandler はListingHandlerを生成する。
func NewListingHandler(service ListingServiceInterface, resolver OwnerResolver) *ListingHandler {
	return &ListingHandler{
		service:  service,
		resolver: resolver,
	}
}

// createListingRequest は出品作成リクエストのボディ。
type createListingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Size        string   `json:"size"`
	Condition   string   `json:"condition"`
	Images      []string `json:"images"`
}

// listingResponse は出品情報のAPIレスポンス。
type listingResponse struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Price            float64    `json:"price"`
	Category         string     `json:"category"`
	Size             string     `json:"size"`
	Condition        string     `json:"condition"`
	Images           []string   `json:"images"`
	OwnerID          string     `json:"owner_id"`
	OwnerDisplayName string     `json:"owner_display_name"`
	OwnerAvatarURL   string     `json:"owner_avatar_url,omitempty"`
	IsSold           bool       `json:"is_sold"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	SoldAt           *time.Time `json:"sold_at,omitempty"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Create は出品作成を処理する。
// POST /api/listings
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	// 出品者スナップショットの解決
	owner := listing.Owner{ID: userID}
	if h.resolver != nil {
		user, err := h.resolver.FindByID(r.Context(), userID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if user == nil {
			writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		owner.DisplayName = user.DisplayName
		owner.AvatarURL = user.AvatarURL
	}

	created, err := h.service.Create(r.Context(), owner, listing.Draft{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Size:        req.Size,
		Condition:   req.Condition,
		Images:      req.Images,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toListingResponse(created))
}

// ListAvailable は販売中の出品一覧を返す。
// GET /api/listings?q=xxx&category=yyy
func (h *ListingHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	filter := model.ListingFilter{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}

	listings, err := h.service.ListAvailable(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeListingsResponse(w, listings)
}

// ListMine はログインユーザー自身の全出品（売約済み含む）を返す。
// GET /api/listings/mine
func (h *ListingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	listings, err := h.service.ListByOwner(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeListingsResponse(w, listings)
}

// Get は出品詳細を取得する。
// GET /api/listings/:id
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "id")

	found, err := h.service.GetByID(r.Context(), listingID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toListingResponse(found))
}

// MarkSold は出品を売約済みに遷移させる。
// POST /api/listings/:id/sold
func (h *ListingHandler) MarkSold(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	listingID := chi.URLParam(r, "id")

	sold, err := h.service.MarkSold(r.Context(), listingID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toListingResponse(sold))
}

// Delete は出品をユーザー起点で削除する。
// DELETE /api/listings/:id
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	listingID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), listingID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toListingResponse はmodel.ListingからAPIレスポンスに変換する。
func toListingResponse(l *model.Listing) listingResponse {
	return listingResponse{
		ID:               l.ID,
		Title:            l.Title,
		Description:      l.Description,
		Price:            l.Price,
		Category:         string(l.Category),
		Size:             string(l.Size),
		Condition:        string(l.Condition),
		Images:           l.Images,
		OwnerID:          l.OwnerID,
		OwnerDisplayName: l.OwnerDisplayName,
		OwnerAvatarURL:   l.OwnerAvatarURL,
		IsSold:           l.IsSold,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
		SoldAt:           l.SoldAt,
	}
}

// writeListingsResponse は出品一覧をJSON配列で書き込む。
// 0件の場合もnullではなく空配列を返す。
func writeListingsResponse(w http.ResponseWriter, listings []*model.Listing) {
	results := make([]listingResponse, len(listings))
	for i, l := range listings {
		results[i] = toListingResponse(l)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// writeInvalidRequestBody はJSONボディの解析失敗エラーを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeListingNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidListing, model.ErrCodeInvalidProfile,
		model.ErrCodeInvalidEmailDomain, model.ErrCodeWeakPassword,
		model.ErrCodeInvalidImageURL:
		return http.StatusBadRequest
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeListingAlreadySold, model.ErrCodeSoldNotDeletable,
		model.ErrCodeDuplicateEmail:
		return http.StatusConflict
	case model.ErrCodeLoginFailed, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
