package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/gemini-blend-kit/pkg/domain"
	"github.com/shouni/gemini-blend-kit/pkg/imgutil"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// RemoteReferenceCore は http(s) / gs:// ソースからの参照画像取得を担当する基盤です。
// 取得したバイト列は内容を検証したうえでキャッシュします。
type RemoteReferenceCore struct {
	httpClient httpkit.ClientInterface
	reader     remoteio.InputReader
	cache      ImageCacher
	expiration time.Duration
}

// NewRemoteReferenceCore は依存関係を注入して RemoteReferenceCore を初期化します。
func NewRemoteReferenceCore(httpClient httpkit.ClientInterface, reader remoteio.InputReader, cache ImageCacher, cacheTTL time.Duration) (*RemoteReferenceCore, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	// cache は nil を許容（キャッシュなし動作）

	return &RemoteReferenceCore{
		httpClient: httpClient,
		reader:     reader,
		cache:      cache,
		expiration: cacheTTL,
	}, nil
}

// FetchReference は URL から参照画像を取得し、検証済みの ReferenceImage を返します。
func (c *RemoteReferenceCore) FetchReference(ctx context.Context, rawURL string) (domain.ReferenceImage, error) {
	if c.cache != nil {
		if val, ok := c.cache.Get(cacheKeyRemoteImage + rawURL); ok {
			if data, ok := val.([]byte); ok {
				return c.toReference(data)
			}
			slog.WarnContext(ctx, "キャッシュデータが不正な型です", "url", rawURL)
		}
	}

	data, err := c.fetchImageData(ctx, rawURL)
	if err != nil {
		return domain.ReferenceImage{}, err
	}

	ref, err := c.toReference(data)
	if err != nil {
		return domain.ReferenceImage{}, err
	}

	if c.cache != nil {
		c.cache.Set(cacheKeyRemoteImage+rawURL, data, c.expiration)
	}
	return ref, nil
}

// fetchImageData はスキームに応じて GCS かHTTPからバイト列を取得します。
func (c *RemoteReferenceCore) fetchImageData(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, "gs://") {
		rc, err := c.reader.Open(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	if safe, err := IsSafeURL(rawURL); err != nil || !safe {
		return nil, fmt.Errorf("安全ではないURLが指定されました: %w", err)
	}
	return c.httpClient.FetchBytes(ctx, rawURL)
}

// toReference はバイト列を検証して ReferenceImage に変換します。
// 中身が PNG / JPEG でなければエラーを返します。
func (c *RemoteReferenceCore) toReference(data []byte) (domain.ReferenceImage, error) {
	mimeType, err := imgutil.DetectImageMIME(data)
	if err != nil {
		return domain.ReferenceImage{}, err
	}
	return domain.NewReferenceImage(mimeType, data), nil
}
