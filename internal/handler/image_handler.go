package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/unicloset/internal/model"
	"github.com/hitoshi/unicloset/internal/security"
)

// ImageHandler は出品画像のプロキシ配信を行うHTTPハンドラー。
// フロントエンドが外部画像を直接参照すると出品者のIPがリークするため、
// SSRF防止機能付きクライアントでサーバー経由のフェッチに限定する。
type ImageHandler struct {
	guard        security.ImageGuardService
	fetchTimeout time.Duration
	maxSize      int64 // レスポンスボディの上限バイト数
}

// NewImageHandler はImageHandlerを生成する。
func NewImageHandler(guard security.ImageGuardService, fetchTimeout time.Duration, maxSize int64) *ImageHandler {
	return &ImageHandler{
		guard:        guard,
		fetchTimeout: fetchTimeout,
		maxSize:      maxSize,
	}
}

// Proxy は外部画像をSSRF防止機能付きクライアントで取得して返す。
// GET /api/images?url=https://...
func (h *ImageHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageURLError("urlパラメータが空です"))
		return
	}

	// 静的検証（スキーム・ホスト）。DNS再バインディングはクライアント側Dialerで防ぐ。
	if err := h.guard.ValidateURL(rawURL); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageURLError(err.Error()))
		return
	}

	client := h.guard.NewSafeClient(h.fetchTimeout)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageURLError(err.Error()))
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("画像の取得に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "IMAGE_FETCH_FAILED",
			Message:  "画像の取得に失敗しました。",
			Category: "system",
			Action:   "時間をおいて再度お試しください。",
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		writeAPIErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "IMAGE_FETCH_FAILED",
			Message:  "画像の取得に失敗しました。",
			Category: "system",
			Action:   "画像URLを確認してください。",
		})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeAPIErrorResponse(w, http.StatusUnsupportedMediaType, model.NewInvalidImageURLError(
			"画像以外のコンテンツは配信できません: "+contentType))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")

	// 上限バイト数で打ち切る。巨大レスポンスによるメモリ圧迫を防ぐ。
	if _, err := io.Copy(w, io.LimitReader(resp.Body, h.maxSize)); err != nil {
		slog.Warn("画像の転送に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
	}
}
