package generator

import (
	"context"

	"github.com/shouni/gemini-blend-kit/pkg/domain"
)

// ImageBlender はビジネスロジック層が利用する統合窓口です。
// 2〜4枚の参照画像を1枚の新しい画像にブレンドします。
type ImageBlender interface {
	Blend(ctx context.Context, req domain.BlendRequest) (*domain.ImageResponse, error)
}

// ReferenceFetcher は、URL や gs:// URI から参照画像を取得するためのインターフェースです。
type ReferenceFetcher interface {
	// FetchReference は、指定されたソースから参照画像を取得して検証済みの形で返します。
	FetchReference(ctx context.Context, rawURL string) (domain.ReferenceImage, error)
}
