// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, listing, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeListingNotFound     = "LISTING_NOT_FOUND"
	ErrCodeInvalidListing      = "INVALID_LISTING"
	ErrCodeInvalidProfile      = "INVALID_PROFILE"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeListingAlreadySold  = "LISTING_ALREADY_SOLD"
	ErrCodeSoldNotDeletable    = "SOLD_LISTING_NOT_DELETABLE"
	ErrCodeInvalidEmailDomain  = "INVALID_EMAIL_DOMAIN"
	ErrCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	ErrCodeLoginFailed         = "LOGIN_FAILED"
	ErrCodeWeakPassword        = "WEAK_PASSWORD"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInvalidImageURL     = "INVALID_IMAGE_URL"
)

// NewListingNotFoundError は出品未検出エラーを生成する。
func NewListingNotFoundError(listingID string) *APIError {
	return &APIError{
		Code:     ErrCodeListingNotFound,
		Message:  fmt.Sprintf("指定された出品が見つかりません: %s", listingID),
		Category: "listing",
		Action:   "出品IDを確認してください。すでに削除されている可能性があります。",
	}
}

// NewInvalidListingError は出品内容の検証エラーを生成する。
// fieldには検証に失敗したフィールド名、reasonには失敗理由を指定する。
func NewInvalidListingError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidListing,
		Message:  fmt.Sprintf("出品内容が不正です（%s）: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidProfileError はプロフィール内容の検証エラーを生成する。
func NewInvalidProfileError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProfile,
		Message:  fmt.Sprintf("プロフィールの内容が不正です（%s）: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewForbiddenError は所有者以外による操作の拒否エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この出品を操作する権限がありません。",
		Category: "auth",
		Action:   "自分が出品したアイテムのみ操作できます。",
	}
}

// NewListingAlreadySoldError は売約済み出品への再売約エラーを生成する。
func NewListingAlreadySoldError(listingID string) *APIError {
	return &APIError{
		Code:     ErrCodeListingAlreadySold,
		Message:  fmt.Sprintf("この出品はすでに売約済みです: %s", listingID),
		Category: "listing",
		Action:   "売約済みの出品を再度売約済みにすることはできません。",
	}
}

// NewSoldNotDeletableError は売約済み出品の削除拒否エラーを生成する。
// 売約済み出品は24時間後に自動削除されるため、手動削除は許可しない。
func NewSoldNotDeletableError() *APIError {
	return &APIError{
		Code:     ErrCodeSoldNotDeletable,
		Message:  "売約済みの出品は削除できません。",
		Category: "listing",
		Action:   "売約済みの出品は売約から24時間後に自動的に削除されます。",
	}
}

// NewInvalidEmailDomainError は許可外メールドメインのエラーを生成する。
func NewInvalidEmailDomainError(domain string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmailDomain,
		Message:  fmt.Sprintf("このサービスは @%s のメールアドレスでのみ利用できます。", domain),
		Category: "validation",
		Action:   "大学発行のメールアドレスで登録してください。",
	}
}

// NewDuplicateEmailError は登録済みメールアドレスの重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスはすでに登録されています。",
		Category: "validation",
		Action:   "ログインするか、パスワードの再設定をお試しください。",
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
// 資格情報のどちらが誤っているかは漏らさない。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewWeakPasswordError はパスワード強度不足のエラーを生成する。
func NewWeakPasswordError(minLength int) *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  fmt.Sprintf("パスワードは%d文字以上で設定してください。", minLength),
		Category: "validation",
		Action:   "より長いパスワードを設定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUnauthorizedError は未認証リクエストのエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidImageURLError は画像URLの検証エラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("画像URLが不正です: %s", reason),
		Category: "validation",
		Action:   "https:// で始まる公開画像のURLを指定してください。",
	}
}
