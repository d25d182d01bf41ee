package domain

import "fmt"

// AspectRatio は出力画像の形状を表す列挙値です。
// 外部サービスに渡す比率トークンへのマッピングを持ちます。
type AspectRatio string

const (
	AspectSquare    AspectRatio = "square"
	AspectPortrait  AspectRatio = "portrait"
	AspectLandscape AspectRatio = "landscape"

	// DefaultAspectRatio は未選択時の既定値です。
	DefaultAspectRatio = AspectSquare
)

// ratioTokens は列挙値と Gemini API が受け取る比率トークンの対応表です。
var ratioTokens = map[AspectRatio]string{
	AspectSquare:    "1:1",
	AspectPortrait:  "9:16",
	AspectLandscape: "16:9",
}

// Token は外部サービスに渡す比率トークン（"1:1" など）を返します。
func (a AspectRatio) Token() string {
	if tok, ok := ratioTokens[a]; ok {
		return tok
	}
	return ratioTokens[DefaultAspectRatio]
}

// Valid は既知の列挙値かどうかを返します。
func (a AspectRatio) Valid() bool {
	_, ok := ratioTokens[a]
	return ok
}

// ParseAspectRatio はユーザー入力文字列を AspectRatio に変換します。
// 空文字列は既定値（square）として扱います。
func ParseAspectRatio(s string) (AspectRatio, error) {
	if s == "" {
		return DefaultAspectRatio, nil
	}
	a := AspectRatio(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown aspect ratio: %q", s)
	}
	return a, nil
}
