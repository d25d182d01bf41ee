package imgutil

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeDataURI は画像バイト列を data URI（data:<mime>;base64,...）に変換します。
// プレビュー表示やJSONレスポンスへの埋め込みに使う転送エンコーディングです。
func EncodeDataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// DecodeDataURI は data URI を MIME タイプと元のバイト列に戻します。
// EncodeDataURI との往復でバイト列は完全に一致します。
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI: missing payload")
	}

	mimeType, encoded := strings.CutSuffix(meta, ";base64")
	if !encoded {
		return "", nil, fmt.Errorf("unsupported data URI encoding: %s", meta)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("base64デコードに失敗しました: %w", err)
	}
	return mimeType, data, nil
}
