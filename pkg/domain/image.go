package domain

import (
	"github.com/google/uuid"
)

const (
	// MinReferenceImages は1回のブレンド生成に必要な参照画像の最小枚数です。
	MinReferenceImages = 2
	// MaxReferenceImages は1回のブレンド生成に与えられる参照画像の最大枚数です。
	MaxReferenceImages = 4
)

// ReferenceImage はユーザーが与えた参照画像1枚を表します。
// ID はアップロードごとに一意で、削除操作のキーになります。
type ReferenceImage struct {
	ID       string
	MimeType string
	Data     []byte
}

// NewReferenceImage は一意なIDを払い出して ReferenceImage を作成します。
func NewReferenceImage(mimeType string, data []byte) ReferenceImage {
	return ReferenceImage{
		ID:       uuid.NewString(),
		MimeType: mimeType,
		Data:     data,
	}
}

// BlendRequest は複数の参照画像を1枚に合成する生成要求です。
// Seed は nil でランダム、値指定で固定。
type BlendRequest struct {
	References  []ReferenceImage
	AspectRatio AspectRatio
	Seed        *int64
}

// ValidReferenceCount は参照枚数が [2, 4] に収まっているかを返します。
func (r BlendRequest) ValidReferenceCount() bool {
	n := len(r.References)
	return n >= MinReferenceImages && n <= MaxReferenceImages
}

// ImageResponse は生成された画像データとそのメタデータです。
type ImageResponse struct {
	Data     []byte
	MimeType string
	UsedSeed int64 // 戻り値は情報欠落を防ぐため int64
}
