package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/gemini-blend-kit/pkg/domain"
	"github.com/shouni/gemini-blend-kit/pkg/imgutil"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// GeminiBlendGenerator は参照画像のブレンド生成を担当するジェネレーターです。
// 通信クライアントは構築時に注入し、パッケージスコープのシングルトンは持ちません。
type GeminiBlendGenerator struct {
	aiClient gemini.GenerativeModel
	model    string
	compress bool
}

// NewGeminiBlendGenerator は GeminiBlendGenerator を初期化するのだ。
func NewGeminiBlendGenerator(aiClient gemini.GenerativeModel, model string) (*GeminiBlendGenerator, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient (gemini.GenerativeModel) is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	return &GeminiBlendGenerator{
		aiClient: aiClient,
		model:    model,
		compress: UseImageCompression,
	}, nil
}

// Blend は 2〜4 枚の参照画像を1枚の新しい画像にブレンドします。
// 枚数が範囲外の場合は外部サービスを呼ばずにバリデーションエラーを返します。
func (g *GeminiBlendGenerator) Blend(ctx context.Context, req domain.BlendRequest) (*domain.ImageResponse, error) {
	if !req.ValidReferenceCount() {
		return nil, domain.ErrReferenceCount
	}

	slog.InfoContext(ctx, "ブレンド生成リクエスト準備中",
		"model", g.model, "ref_count", len(req.References), "ratio", req.AspectRatio.Token())

	parts := g.buildParts(req)

	opts := gemini.GenerateOptions{
		AspectRatio: req.AspectRatio.Token(),
		Seed:        seedToPtrInt32(req.Seed),
	}

	resp, err := g.aiClient.GenerateWithParts(ctx, g.model, parts, opts)
	if err != nil {
		return nil, fmt.Errorf("Failed to generate image: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("Failed to generate image: unknown error")
	}

	return g.parseToResponse(resp, dereferenceSeed(req.Seed))
}

// buildParts は指示文パーツ1つと参照画像パーツを入力順のまま組み立てます。
func (g *GeminiBlendGenerator) buildParts(req domain.BlendRequest) []*genai.Part {
	parts := make([]*genai.Part, 0, len(req.References)+1)
	parts = append(parts, &genai.Part{
		Text: fmt.Sprintf(blendInstruction, req.AspectRatio.Token()),
	})

	for _, ref := range req.References {
		data := ref.Data
		mimeType := ref.MimeType
		if g.compress {
			if shrunk := imgutil.CompressIfOver(data, CompressionThresholdBytes, ImageCompressionQuality); len(shrunk) < len(data) {
				data = shrunk
				mimeType = "image/jpeg"
			}
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mimeType, Data: data},
		})
	}
	return parts
}

// parseToResponse はレスポンスを走査し、最初の画像パーツを返します。
// 画像が1つも無ければ生成拒否として扱うのだ。
func (g *GeminiBlendGenerator) parseToResponse(resp *gemini.Response, seed int64) (*domain.ImageResponse, error) {
	if resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 {
		return nil, fmt.Errorf("Failed to generate image: empty response")
	}

	candidate := resp.RawResponse.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if !strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				continue
			}
			return &domain.ImageResponse{
				Data:     part.InlineData.Data,
				MimeType: part.InlineData.MIMEType,
				UsedSeed: seed,
			}, nil
		}
	}

	// 安全フィルター等によるブロックの確認
	if candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
		return nil, fmt.Errorf("%w (FinishReason: %s)", domain.ErrNoImageGenerated, candidate.FinishReason)
	}

	return nil, domain.ErrNoImageGenerated
}
