package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	t.Run("Create したセッションを Get で引けるのだ", func(t *testing.T) {
		st := NewStore(&mockBlender{}, time.Hour)
		s := st.Create()

		got, ok := st.Get(s.ID())
		assert.True(t, ok)
		assert.Same(t, s, got)
	})

	t.Run("GetOrCreate は未知のIDで新規作成するのだ", func(t *testing.T) {
		st := NewStore(&mockBlender{}, time.Hour)

		s := st.GetOrCreate("unknown-id")
		assert.NotNil(t, s)
		assert.Equal(t, 1, st.Len())

		again := st.GetOrCreate(s.ID())
		assert.Same(t, s, again)
		assert.Equal(t, 1, st.Len())
	})

	t.Run("Sweep は放置されたセッションだけを破棄するのだ", func(t *testing.T) {
		st := NewStore(&mockBlender{}, 10*time.Millisecond)
		stale := st.Create()
		time.Sleep(20 * time.Millisecond)
		fresh := st.Create()

		removed := st.Sweep()

		assert.Equal(t, 1, removed)
		_, ok := st.Get(stale.ID())
		assert.False(t, ok)
		_, ok = st.Get(fresh.ID())
		assert.True(t, ok)
	})

	t.Run("TTLなしのストアは掃除しないのだ", func(t *testing.T) {
		st := NewStore(&mockBlender{}, 0)
		st.Create()
		assert.Equal(t, 0, st.Sweep())
		assert.Equal(t, 1, st.Len())
	})
}
