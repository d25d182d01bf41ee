// blend-server は参照画像ブレンド生成のWebサーバーです。
// 設定は環境変数から読み込み、GEMINI_API_KEY が無ければ起動せずに終了します。
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shouni/gemini-blend-kit/pkg/aiclient"
	"github.com/shouni/gemini-blend-kit/pkg/config"
	"github.com/shouni/gemini-blend-kit/pkg/generator"
	"github.com/shouni/gemini-blend-kit/pkg/session"
	"github.com/shouni/gemini-blend-kit/pkg/web"
)

const (
	janitorInterval = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(); err != nil {
		slog.Error("サーバーを終了します", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
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

	store := session.NewStore(blender, cfg.SessionTTL)
	store.StartJanitor(ctx, janitorInterval)

	srv, err := web.NewServer(store)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("サーバーを起動します", "addr", cfg.ListenAddr, "model", cfg.Model)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("シグナルを受信しました。シャットダウンします")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
