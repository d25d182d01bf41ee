package domain

import "errors"

// エラー種別のセンチネル。errors.Is で判別できるようにしています。
var (
	// ErrReferenceCount は参照枚数が [2, 4] を外れたときのバリデーションエラーです。
	// メッセージはそのままユーザーに表示されます。
	ErrReferenceCount = errors.New("Please provide 2 to 4 reference images.")

	// ErrTooManyReferences は追加操作で上限4枚を超えるときのエラーです。
	// 超過する追加は全体を拒否し、既存の参照セットは変更しません。
	ErrTooManyReferences = errors.New("adding these images would exceed the limit of 4 reference images")

	// ErrNoImageGenerated はレスポンスに画像パーツが1つも無かったときのエラーです。
	// モデルがポリシー上の理由で生成を拒否した場合もここに落ちます。
	ErrNoImageGenerated = errors.New("no image was generated; the model may have refused the request")

	// ErrGenerationInFlight は生成実行中に再度 Generate が呼ばれたときのエラーです。
	ErrGenerationInFlight = errors.New("a generation request is already in flight")

	// ErrUnsupportedImage はアップロードされたバイト列が PNG / JPEG でないときのエラーです。
	ErrUnsupportedImage = errors.New("unsupported image type; only PNG and JPEG are accepted")
)
