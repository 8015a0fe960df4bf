// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザー（学生）を表す。
type User struct {
	ID            string
	Email         string
	DisplayName   string
	AvatarURL     string
	College       string
	StudentNumber string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identity はユーザーの認証手段を表す。
// 現状はprovider="password"のみだが、将来的に外部IdPへ拡張可能な構造。
// パスワード認証の場合、ProviderUserIDは小文字正規化したメールアドレス、
// PasswordHashはbcrypt化した資格情報を保持する。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	PasswordHash   string
	CreatedAt      time.Time
}

// ProviderPassword はメール/パスワード認証のプロバイダ識別子。
const ProviderPassword = "password"

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
