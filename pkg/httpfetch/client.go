// Package httpfetch は httpkit.ClientInterface を満たすHTTPクライアント実装です。
// 参照画像のダウンロード向けに、上限付きの指数バックオフ再試行を行います。
// 再試行回数は構築時の明示的な設定であり、隠れた既定動作にはしません。
package httpfetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultTimeout = 30 * time.Second

// Client は再試行付きのHTTPクライアントです。
type Client struct {
	httpClient *http.Client
	maxRetries uint64
}

// New は Client を初期化します。maxRetries = 0 で再試行なしになります。
func New(timeout time.Duration, maxRetries uint64) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// FetchBytes は URL からバイト列を取得します。
// 5xx と通信エラーのみ再試行し、4xx は即時に失敗させます。
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	var result []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url))
		}

		result, err = io.ReadAll(resp.Body)
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, fmt.Errorf("fetch failed for %s: %w", url, err)
	}
	return result, nil
}

// DoRequest は組み立て済みのリクエストを実行し、ボディを返します。再試行はしません。
func (c *Client) DoRequest(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

// FetchAndDecodeJSON は URL からJSONを取得して v にデコードします。
func (c *Client) FetchAndDecodeJSON(ctx context.Context, url string, v any) error {
	body, err := c.FetchBytes(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("JSONデコードに失敗しました: %w", err)
	}
	return nil
}

// PostJSONAndFetchBytes は data をJSONで送信し、レスポンスボディを返します。
func (c *Client) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("JSONエンコードに失敗しました: %w", err)
	}
	return c.PostRawBodyAndFetchBytes(ctx, url, payload, "application/json")
}

// PostRawBodyAndFetchBytes は生のボディをPOSTし、レスポンスボディを返します。
func (c *Client) PostRawBodyAndFetchBytes(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.DoRequest(req)
}

// truncate はログやエラーメッセージ向けに長いボディを切り詰めます。
func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
