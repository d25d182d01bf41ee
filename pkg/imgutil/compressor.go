package imgutil

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
)

// CompressToJPEG は画像データ（PNG, GIF, JPEG等）をJPEG形式に圧縮します。
// image.Decodeがサポートするフォーマットに対応しています。
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CompressIfOver は limit バイトを超える参照画像だけをJPEGに再圧縮します。
// limit 以下のデータ、または圧縮で縮まなかったデータはそのまま返します。
// 参照画像はインライン転送されるため、リクエストサイズの抑制が目的です。
func CompressIfOver(data []byte, limit int, quality int) []byte {
	if limit <= 0 || len(data) <= limit {
		return data
	}
	compressed, err := CompressToJPEG(data, quality)
	if err != nil || len(compressed) >= len(data) {
		return data
	}
	return compressed
}
