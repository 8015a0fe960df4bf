// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService は出品のタイトルと説明文からHTMLを除去し、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリのStrictPolicyにより、全てのタグと属性を
// 除去したプレーンテキストのみを通過させる。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は出品テキストのサニタイズ機能のインターフェースを定義する。
// 出品の作成時、タイトルと説明文の保存前に使用される。
type TextSanitizerService interface {
	// Sanitize はテキストから全てのHTMLタグと属性を除去して返す。
	// 出品テキストは装飾を持たないプレーンテキストとして扱うため、
	// scriptやiframeはもちろん、pやstrongなどの無害なタグも除去される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// bluemonday.StrictPolicy（全タグ除去）を使用する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はテキストから全てのHTMLタグと属性を除去して返す。
// bluemondayはタグ除去後のテキストをHTMLエスケープするため、
// html.UnescapeStringで元のプレーンテキスト表現に戻す。
// "<"などの文字はエスケープ表現ではなく文字そのものとして保存される。
func (s *textSanitizer) Sanitize(raw string) string {
	return html.UnescapeString(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
