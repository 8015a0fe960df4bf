// Package model はドメインモデルを定義する。
package model

import "time"

// MinListingImages は出品に必要な最小画像数。
const MinListingImages = 1

// MaxListingImages は出品に添付できる最大画像数。
const MaxListingImages = 4

// Listing は出品された衣類アイテムを表す。
// 出品者の表示名とアバターは作成時点のスナップショットを非正規化して保持し、
// 一覧表示時のJOINを不要にする。
type Listing struct {
	ID               string
	Title            string
	Description      string
	Price            float64
	Category         Category
	Size             Size
	Condition        Condition
	Images           []string // 画像URL（1〜4件）
	OwnerID          string
	OwnerDisplayName string
	OwnerAvatarURL   string
	IsSold           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	SoldAt           *time.Time // 売約時のみ設定される
}

// Category は衣類カテゴリを表す。
type Category string

const (
	CategoryHoodie      Category = "hoodie"
	CategoryShirt       Category = "shirt"
	CategoryPants       Category = "pants"
	CategoryDress       Category = "dress"
	CategoryJacket      Category = "jacket"
	CategoryShoes       Category = "shoes"
	CategoryAccessories Category = "accessories"
)

// Categories は有効な全カテゴリの一覧。
var Categories = []Category{
	CategoryHoodie, CategoryShirt, CategoryPants, CategoryDress,
	CategoryJacket, CategoryShoes, CategoryAccessories,
}

// IsValid はカテゴリが定義済みの集合に含まれるかを検証する。
func (c Category) IsValid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Size は衣類サイズを表す。
type Size string

const (
	SizeXS  Size = "XS"
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

// Sizes は有効な全サイズの一覧。
var Sizes = []Size{SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL}

// IsValid はサイズが定義済みの集合に含まれるかを検証する。
func (s Size) IsValid() bool {
	for _, v := range Sizes {
		if s == v {
			return true
		}
	}
	return false
}

// Condition は衣類の状態を表す。
type Condition string

const (
	ConditionNew        Condition = "new"
	ConditionGentlyUsed Condition = "gently-used"
	ConditionWorn       Condition = "worn"
)

// Conditions は有効な全状態の一覧。
var Conditions = []Condition{ConditionNew, ConditionGentlyUsed, ConditionWorn}

// IsValid は状態が定義済みの集合に含まれるかを検証する。
func (c Condition) IsValid() bool {
	for _, v := range Conditions {
		if c == v {
			return true
		}
	}
	return false
}

// CategoryFilterAll は全カテゴリを対象にする検索フィルタの値。
const CategoryFilterAll = "all"

// ListingFilter は販売中出品一覧の検索条件を表す。
// Queryはタイトルと説明文に対する大文字小文字を区別しない部分一致、
// Categoryは完全一致（CategoryFilterAllの場合は全カテゴリ）で適用される。
type ListingFilter struct {
	Query    string
	Category string
}
