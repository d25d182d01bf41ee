// Package session はブレンド生成のユーザー操作状態を管理します。
// 参照画像の追加・削除、アスペクト比の選択、生成の実行と結果の保持を行い、
// 生成中の多重実行は明示的なガードで防ぎます（UIの無効化には頼りません）。
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/shouni/gemini-blend-kit/pkg/domain"
	"github.com/shouni/gemini-blend-kit/pkg/generator"
)

// ImageInfo は参照画像のメタデータです。プレビュー用にデータ本体は持ちません。
type ImageInfo struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// Snapshot はセッションの現在状態のコピーです。
// Result と Error は同時に非空にはなりません。
type Snapshot struct {
	ID          string             `json:"id"`
	Images      []ImageInfo        `json:"images"`
	AspectRatio domain.AspectRatio `json:"aspect_ratio"`
	Loading     bool               `json:"loading"`
	HasResult   bool               `json:"has_result"`
	Error       string             `json:"error,omitempty"`
}

// BlendSession は1ユーザー分の作業セットです。
type BlendSession struct {
	mu sync.Mutex

	id      string
	blender generator.ImageBlender

	refs     []domain.ReferenceImage
	ratio    domain.AspectRatio
	inFlight bool
	result   *domain.ImageResponse
	errMsg   string

	lastActive time.Time
}

// NewBlendSession はジェネレーターを注入してセッションを作成します。
// アスペクト比は常にちょうど1つ選択されており、既定は square です。
func NewBlendSession(blender generator.ImageBlender) *BlendSession {
	return &BlendSession{
		id:         uuid.NewString(),
		blender:    blender,
		ratio:      domain.DefaultAspectRatio,
		lastActive: time.Now(),
	}
}

// ID はセッション識別子を返します。
func (s *BlendSession) ID() string {
	return s.id
}

// AddImages は参照画像をまとめて追加します。
// 合計が4枚を超える場合は1枚も追加せずに拒否します（部分追加なし）。
func (s *BlendSession) AddImages(images ...domain.ReferenceImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if len(s.refs)+len(images) > domain.MaxReferenceImages {
		return domain.ErrTooManyReferences
	}
	s.refs = append(s.refs, images...)
	return nil
}

// RemoveImage は指定IDの参照画像を外します。
// 残り枚数が2を切ったら、表示中の結果は破棄します。
func (s *BlendSession) RemoveImage(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	before := len(s.refs)
	s.refs = lo.Reject(s.refs, func(r domain.ReferenceImage, _ int) bool {
		return r.ID == id
	})
	removed := len(s.refs) < before

	if removed && len(s.refs) < domain.MinReferenceImages {
		s.result = nil
	}
	return removed
}

// SetAspectRatio は出力形状を切り替えます。
func (s *BlendSession) SetAspectRatio(ratio domain.AspectRatio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if !ratio.Valid() {
		return fmt.Errorf("unknown aspect ratio: %q", ratio)
	}
	s.ratio = ratio
	return nil
}

// Generate は現在の参照セットでブレンド生成を実行します。
// 実行中の再入は ErrGenerationInFlight で即時拒否します。
func (s *BlendSession) Generate(ctx context.Context) (*domain.ImageResponse, error) {
	s.mu.Lock()
	s.touch()

	if s.inFlight {
		s.mu.Unlock()
		return nil, domain.ErrGenerationInFlight
	}

	req := domain.BlendRequest{
		References:  append([]domain.ReferenceImage(nil), s.refs...),
		AspectRatio: s.ratio,
	}
	if !req.ValidReferenceCount() {
		s.errMsg = domain.ErrReferenceCount.Error()
		s.result = nil
		s.mu.Unlock()
		return nil, domain.ErrReferenceCount
	}

	// 新しい生成の開始時点で前回の結果とエラーをクリアする
	s.inFlight = true
	s.result = nil
	s.errMsg = ""
	s.mu.Unlock()

	resp, err := s.blender.Blend(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.touch()

	if err != nil {
		slog.WarnContext(ctx, "ブレンド生成に失敗しました", "session", s.id, "error", err)
		s.errMsg = err.Error()
		return nil, err
	}

	s.result = resp
	return resp, nil
}

// Result は表示中の生成結果を返します。無ければ nil です。
func (s *BlendSession) Result() *domain.ImageResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Snapshot は現在状態のコピーを返します。
func (s *BlendSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID: s.id,
		Images: lo.Map(s.refs, func(r domain.ReferenceImage, _ int) ImageInfo {
			return ImageInfo{ID: r.ID, MimeType: r.MimeType, Size: len(r.Data)}
		}),
		AspectRatio: s.ratio,
		Loading:     s.inFlight,
		HasResult:   s.result != nil,
		Error:       s.errMsg,
	}
}

// LastActive は最後に操作された時刻を返します。ストアの掃除に使います。
func (s *BlendSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *BlendSession) touch() {
	s.lastActive = time.Now()
}
