package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shouni/gemini-blend-kit/pkg/generator"
)

// Store はセッションIDと BlendSession の対応を保持するインメモリストアです。
// 一定時間操作のないセッションは掃除されます。
type Store struct {
	mu       sync.Mutex
	sessions map[string]*BlendSession

	blender generator.ImageBlender
	ttl     time.Duration
}

// NewStore はストアを初期化します。ttl <= 0 は掃除なしを意味します。
func NewStore(blender generator.ImageBlender, ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*BlendSession),
		blender:  blender,
		ttl:      ttl,
	}
}

// Create は新しいセッションを作成して登録します。
func (st *Store) Create() *BlendSession {
	s := NewBlendSession(st.blender)

	st.mu.Lock()
	st.sessions[s.ID()] = s
	st.mu.Unlock()
	return s
}

// Get は既存セッションを返します。
func (st *Store) Get(id string) (*BlendSession, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// GetOrCreate は既存セッションを返すか、無ければ新規作成します。
func (st *Store) GetOrCreate(id string) *BlendSession {
	if s, ok := st.Get(id); ok {
		return s
	}
	return st.Create()
}

// Sweep は TTL を超えて操作のないセッションを破棄します。
func (st *Store) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	deadline := time.Now().Add(-st.ttl)

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.LastActive().Before(deadline) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor は interval ごとに Sweep を回すゴルーチンを起動します。
// ctx のキャンセルで停止します。
func (st *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if st.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := st.Sweep(); n > 0 {
					slog.Debug("期限切れセッションを破棄しました", "count", n)
				}
			}
		}
	}()
}

// Len は現在のセッション数を返します。
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
