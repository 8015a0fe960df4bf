package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/unicloset/internal/middleware"
	"github.com/hitoshi/unicloset/internal/model"
	"github.com/hitoshi/unicloset/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// UpdateProfile はユーザープロフィールを更新する。
	UpdateProfile(ctx context.Context, userID string, update user.ProfileUpdate) (*model.User, error)
	// Withdraw はユーザーの退会処理を実行する。
	// 本人の全出品、セッション、user（+ CASCADE: identities）を一括削除する。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	config  AuthHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
// configは退会時のセッションCookieクリアに使用する。
func NewUserHandler(service UserServiceInterface, config AuthHandlerConfig) *UserHandler {
	return &UserHandler{
		service: service,
		config:  config,
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// 省略されたフィールドは未変更を意味する。
type updateProfileRequest struct {
	DisplayName   *string `json:"display_name"`
	AvatarURL     *string `json:"avatar_url"`
	College       *string `json:"college"`
	StudentNumber *string `json:"student_number"`
}

// UpdateProfile はプロフィール更新を処理する。
// PATCH /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), userID, user.ProfileUpdate{
		DisplayName:   req.DisplayName,
		AvatarURL:     req.AvatarURL,
		College:       req.College,
		StudentNumber: req.StudentNumber,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(updated))
}

// Withdraw はユーザーの退会処理を実行する。
// 退会後はセッションCookieもクリアする。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}
