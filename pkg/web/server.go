// Package web はブレンド生成のWeb UIとJSON APIを提供します。
// 画面の状態はセッション（Cookie）単位でサーバー側に保持します。
package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/shouni/gemini-blend-kit/pkg/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookieName = "blend_session"

// Server はHTTPハンドラー群とセッションストアを束ねます。
type Server struct {
	store *session.Store
	mux   *http.ServeMux
	page  *template.Template
}

// NewServer は Server を初期化してルーティングを組み立てます。
func NewServer(store *session.Store) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	page, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("テンプレートの読み込みに失敗しました: %w", err)
	}

	s := &Server{
		store: store,
		mux:   http.NewServeMux(),
		page:  page,
	}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/images", s.handleAddImages)
	s.mux.HandleFunc("DELETE /api/images/{id}", s.handleRemoveImage)
	s.mux.HandleFunc("PUT /api/ratio", s.handleSetRatio)
	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("GET /api/result", s.handleResult)

	return s, nil
}

// Handler はロギングミドルウェアを適用したルートハンドラーを返します。
func (s *Server) Handler() http.Handler {
	return s.withLogging(s.mux)
}

// withLogging はリクエストごとの構造化ログを出します。
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// currentSession はCookieからセッションを引き、無ければ新規作成してCookieを発行します。
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) *session.BlendSession {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if sess, ok := s.store.Get(cookie.Value); ok {
			return sess
		}
	}

	sess := s.store.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}
