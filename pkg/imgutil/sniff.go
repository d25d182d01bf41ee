package imgutil

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shouni/gemini-blend-kit/pkg/domain"
)

// DetectImageMIME は実際のバイト列から MIME タイプを判定します。
// ファイル名の拡張子は信用せず、中身が PNG / JPEG であることを要求します。
func DetectImageMIME(data []byte) (string, error) {
	mimeType := http.DetectContentType(data)
	switch mimeType {
	case "image/png", "image/jpeg":
		return mimeType, nil
	}
	if strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%w (detected: %s)", domain.ErrUnsupportedImage, mimeType)
	}
	return "", fmt.Errorf("%w (not an image: %s)", domain.ErrUnsupportedImage, mimeType)
}

// IsImageMIME は MIME タイプが画像系かどうかを返します。
func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
