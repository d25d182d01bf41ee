// blend-cli はコマンドラインから参照画像のブレンド生成を実行します。
// 入力はローカルファイル、http(s) URL、gs:// URI を混在して指定できます。
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shouni/gemini-blend-kit/pkg/aiclient"
	"github.com/shouni/gemini-blend-kit/pkg/cache"
	"github.com/shouni/gemini-blend-kit/pkg/config"
	"github.com/shouni/gemini-blend-kit/pkg/domain"
	"github.com/shouni/gemini-blend-kit/pkg/gcsio"
	"github.com/shouni/gemini-blend-kit/pkg/generator"
	"github.com/shouni/gemini-blend-kit/pkg/httpfetch"
	"github.com/shouni/gemini-blend-kit/pkg/imgutil"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	ratioFlag := flag.String("ratio", "square", "output aspect ratio: square, portrait or landscape")
	outFlag := flag.String("o", "result.png", "output file path")
	seedFlag := flag.Int64("seed", 0, "generation seed (0 means unset)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <image> <image> [image...]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Blends 2 to 4 reference images into a single new image.")
		fmt.Fprintln(flag.CommandLine.Output(), "Each <image> is a local file, an http(s) URL, or a gs:// URI.")
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ratio, err := domain.ParseAspectRatio(*ratioFlag)
	if err != nil {
		return err
	}

	refs, err := collectReferences(ctx, cfg, flag.Args())
	if err != nil {
		return err
	}

	aiClient, err := aiclient.New(ctx, aiclient.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return err
	}

	blender, err := generator.NewGeminiBlendGenerator(aiClient, cfg.Model)
	if err != nil {
		return err
	}

	req := domain.BlendRequest{References: refs, AspectRatio: ratio}
	if *seedFlag != 0 {
		req.Seed = seedFlag
	}

	resp, err := blender.Blend(ctx, req)
	if err != nil {
		return err
	}

	if err := os.WriteFile(*outFlag, resp.Data, 0o644); err != nil {
		return fmt.Errorf("結果の書き込みに失敗しました: %w", err)
	}

	slog.Info("生成が完了しました", "output", *outFlag, "mime_type", resp.MimeType, "bytes", len(resp.Data))
	return nil
}

// collectReferences は引数の各ソースを解決して参照画像セットを作ります。
// 枚数チェックは外部を呼ぶ前にここで済ませます。
func collectReferences(ctx context.Context, cfg *config.Config, sources []string) ([]domain.ReferenceImage, error) {
	if len(sources) < domain.MinReferenceImages || len(sources) > domain.MaxReferenceImages {
		return nil, domain.ErrReferenceCount
	}

	var core *generator.RemoteReferenceCore
	refs := make([]domain.ReferenceImage, 0, len(sources))
	for _, src := range sources {
		if !strings.Contains(src, "://") {
			ref, err := localReference(src)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
			continue
		}

		if core == nil {
			var err error
			core, err = newRemoteCore(ctx, cfg, sources)
			if err != nil {
				return nil, err
			}
		}
		ref, err := core.FetchReference(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("%s の取得に失敗しました: %w", src, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// localReference はローカルファイルを読み込み、中身を検証して参照画像にします。
func localReference(path string) (domain.ReferenceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ReferenceImage{}, err
	}
	mimeType, err := imgutil.DetectImageMIME(data)
	if err != nil {
		return domain.ReferenceImage{}, fmt.Errorf("%s: %w", path, err)
	}
	return domain.NewReferenceImage(mimeType, data), nil
}

// newRemoteCore はリモート取得用の基盤を組み立てます。
// GCSクライアントは gs:// ソースがあるときだけ初期化します。
func newRemoteCore(ctx context.Context, cfg *config.Config, sources []string) (*generator.RemoteReferenceCore, error) {
	var reader remoteio.InputReader = unsupportedGCSReader{}
	for _, src := range sources {
		if strings.HasPrefix(src, "gs://") {
			gcs, err := gcsio.NewReader(ctx)
			if err != nil {
				return nil, fmt.Errorf("GCSクライアントの初期化に失敗しました: %w", err)
			}
			reader = gcs
			break
		}
	}

	httpClient := httpfetch.New(cfg.RequestTimeout, cfg.FetchRetries)
	return generator.NewRemoteReferenceCore(httpClient, reader, cache.New(cfg.CacheTTL), cfg.CacheTTL)
}

// unsupportedGCSReader は gs:// ソースが無い実行で使うプレースホルダーです。
type unsupportedGCSReader struct{}

func (unsupportedGCSReader) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("gs:// URI には対応していません: %s", uri)
}

func (unsupportedGCSReader) List(_ context.Context, uri string, _ func(string) error) error {
	return fmt.Errorf("gs:// URI には対応していません: %s", uri)
}
