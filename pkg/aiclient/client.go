// Package aiclient は gemini.GenerativeModel の具象実装を提供します。
// google.golang.org/genai SDK を薄くラップし、画像のみの応答モダリティと
// アスペクト比設定をリクエストに反映させます。
package aiclient

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// defaultTimeout は1回の生成呼び出しに許す既定の上限時間です。
const defaultTimeout = 60 * time.Second

// Config は Client の構築パラメータです。
// APIキーは必ずここで受け取り、パッケージスコープには保持しません。
type Config struct {
	APIKey  string
	BaseURL string // 空なら既定のエンドポイント
	Timeout time.Duration
}

// Client は genai SDK を用いた gemini.GenerativeModel 実装です。
type Client struct {
	client  *genai.Client
	timeout time.Duration
}

// New は Client を初期化します。APIキーが無い場合はここで即時に失敗させます。
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required: set GEMINI_API_KEY")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("genaiクライアントの作成に失敗しました: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{client: client, timeout: timeout}, nil
}

// withTimeout は呼び出しごとの上限時間を設定します。無休止の待機を避けるためです。
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// GenerateContent はテキストのみのプロンプトで生成を実行します。
func (c *Client) GenerateContent(ctx context.Context, modelName string, prompt string) (*gemini.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), nil)
	if err != nil {
		return nil, err
	}
	return &gemini.Response{RawResponse: resp}, nil
}

// GenerateWithParts はテキストと画像の混在パーツで生成を実行します。
// 応答モダリティは画像のみを要求します。
func (c *Client) GenerateWithParts(ctx context.Context, modelName string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
		Seed:               opts.Seed,
	}
	if opts.AspectRatio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: opts.AspectRatio}
	}
	if opts.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(opts.SystemPrompt, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return nil, err
	}
	return &gemini.Response{RawResponse: resp}, nil
}

// UploadFile はバイト列を File API にアップロードし、URI と管理名を返します。
func (c *Client) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	file, err := c.client.Files.Upload(ctx, bytes.NewReader(data), &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return "", "", fmt.Errorf("File APIへのアップロードに失敗しました: %w", err)
	}
	return file.URI, file.Name, nil
}

// DeleteFile は File API 上のファイルを管理名（files/xxxx）で削除します。
func (c *Client) DeleteFile(ctx context.Context, fileName string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if _, err := c.client.Files.Delete(ctx, fileName, nil); err != nil {
		return fmt.Errorf("File APIからの削除に失敗しました: %w", err)
	}
	return nil
}

// GetFile は File API 上のファイルのメタデータを取得します。
func (c *Client) GetFile(ctx context.Context, fileName string) (*genai.File, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.client.Files.Get(ctx, fileName, nil)
}
