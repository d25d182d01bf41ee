// Package gcsio は remoteio.InputReader の GCS 実装を提供します。
// gs://bucket/object 形式の URI で参照画像を読み出します。
package gcsio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// Reader は Google Cloud Storage を読み出し元とする InputReader です。
type Reader struct {
	client *storage.Client
}

// NewReader は GCS クライアントを初期化して Reader を返します。
// 認証は Application Default Credentials に従います。
func NewReader(ctx context.Context) (*Reader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("GCSクライアントの作成に失敗しました: %w", err)
	}
	return &Reader{client: client}, nil
}

// Open は gs:// URI のオブジェクトを読み出すストリームを返します。
func (r *Reader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, object, err := parseGSURI(uri)
	if err != nil {
		return nil, err
	}
	if object == "" {
		return nil, fmt.Errorf("オブジェクト名がありません: %s", uri)
	}

	rc, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("GCSオブジェクトを開けませんでした (%s): %w", uri, err)
	}
	return rc, nil
}

// List は prefix 配下のオブジェクトURIをコールバックに渡します。
func (r *Reader) List(ctx context.Context, uri string, fn func(string) error) error {
	bucket, prefix, err := parseGSURI(uri)
	if err != nil {
		return err
	}

	it := r.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("GCSオブジェクト一覧の取得に失敗しました: %w", err)
		}
		if err := fn("gs://" + bucket + "/" + attrs.Name); err != nil {
			return err
		}
	}
}

// Close は内部のGCSクライアントを閉じます。
func (r *Reader) Close() error {
	return r.client.Close()
}

// parseGSURI は gs://bucket/object をバケット名とオブジェクト名に分解します。
func parseGSURI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("gs:// 形式ではありません: %s", uri)
	}

	bucket, object, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("バケット名がありません: %s", uri)
	}
	return bucket, object, nil
}
