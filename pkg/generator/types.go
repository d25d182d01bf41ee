package generator

import (
	"time"
)

const (
	// UseImageCompression は参照画像の送信前JPEG再圧縮を行うかどうかです。
	UseImageCompression = true
	// ImageCompressionQuality は再圧縮時のJPEG品質です。
	ImageCompressionQuality = 75
	// CompressionThresholdBytes はこのサイズを超えた参照画像のみ再圧縮します。
	CompressionThresholdBytes = 1 << 20 // 1MiB

	cacheKeyRemoteImage = "remote_image:"
)

// blendInstruction は全参照画像を1枚にブレンドさせる固定指示文です。
// %s にはアスペクト比トークン（"1:1" 等）が入ります。
const blendInstruction = "Blend the visual characteristics (style, color palette, lighting, " +
	"pose, and composition) of all the supplied reference images into one new " +
	"photorealistic image. The output image must have an aspect ratio of %s. " +
	"Do not include any text, watermarks, or UI elements in the image."

// ImageCacher は、画像をキャッシュするためのインターフェースです。
type ImageCacher interface {
	// Get は、指定されたキーに紐づくアイテムを取得します。
	Get(key string) (any, bool)
	// Set は、指定されたキーと値、有効期限でアイテムを保存します。
	Set(key string, value any, d time.Duration)
}
