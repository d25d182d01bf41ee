package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/gemini-blend-kit/pkg/domain"
	"github.com/shouni/gemini-blend-kit/pkg/session"
)

// mockBlender は generator.ImageBlender を実装します。
type mockBlender struct {
	blendFunc func(ctx context.Context, req domain.BlendRequest) (*domain.ImageResponse, error)
	called    int
}

func (m *mockBlender) Blend(ctx context.Context, req domain.BlendRequest) (*domain.ImageResponse, error) {
	m.called++
	if m.blendFunc != nil {
		return m.blendFunc(ctx, req)
	}
	return &domain.ImageResponse{Data: []byte("blended-bytes"), MimeType: "image/png"}, nil
}

// 最小の有効なPNGヘッダ。スニッフィングで image/png と判定されます。
var validPNG = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}

type testClient struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func newTestClient(t *testing.T, blender *mockBlender) *testClient {
	t.Helper()
	store := session.NewStore(blender, time.Hour)
	srv, err := NewServer(store)
	require.NoError(t, err)
	return &testClient{t: t, handler: srv.Handler()}
}

func (c *testClient) do(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	if len(rec.Result().Cookies()) > 0 {
		c.cookies = rec.Result().Cookies()
	}
	return rec
}

// uploadImages は multipart リクエストで画像を追加します。
func (c *testClient) uploadImages(files map[string][]byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := mw.CreateFormFile("images", name)
		require.NoError(c.t, err)
		_, err = part.Write(data)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *testClient) state() session.Snapshot {
	rec := c.do(httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(c.t, http.StatusOK, rec.Code)
	var snap session.Snapshot
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestServer_Index(t *testing.T) {
	t.Run("トップページはHTMLを返し、セッションCookieを発行するのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		rec := c.do(httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "Image Blend Studio")
		require.NotEmpty(t, c.cookies)
		assert.Equal(t, sessionCookieName, c.cookies[0].Name)
	})

	t.Run("同じCookieなら同じセッション状態が見えるのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		rec := c.uploadImages(map[string][]byte{"a.png": validPNG, "b.png": validPNG})
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Len(t, c.state().Images, 2)
	})
}

func TestServer_AddImages(t *testing.T) {
	t.Run("PNGとJPEG以外の拡張子は拒否されるのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		rec := c.uploadImages(map[string][]byte{"note.txt": []byte("hello")})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec), "note.txt")
	})

	t.Run("拡張子がPNGでも中身が画像でなければ拒否されるのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		rec := c.uploadImages(map[string][]byte{"fake.png": []byte("<html>not an image</html>")})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, c.state().Images, "invalid files must not be added")
	})

	t.Run("合計が4枚を超える追加は全体が拒否されるのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		rec := c.uploadImages(map[string][]byte{"a.png": validPNG, "b.png": validPNG, "c.png": validPNG})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = c.uploadImages(map[string][]byte{"d.png": validPNG, "e.png": validPNG})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Please provide 2 to 4 reference images.", decodeError(t, rec))
		assert.Len(t, c.state().Images, 3, "no partial add")
	})

	t.Run("ファイルなしのリクエストは400なのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		rec := c.uploadImages(map[string][]byte{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_RemoveImage(t *testing.T) {
	t.Run("削除すると一覧から消えるのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		rec := c.uploadImages(map[string][]byte{"a.png": validPNG, "b.png": validPNG})
		require.Equal(t, http.StatusOK, rec.Code)

		id := c.state().Images[0].ID
		rec = c.do(httptest.NewRequest(http.MethodDelete, "/api/images/"+id, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, c.state().Images, 1)
	})

	t.Run("未知のIDは404なのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		rec := c.do(httptest.NewRequest(http.MethodDelete, "/api/images/no-such-id", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_SetRatio(t *testing.T) {
	t.Run("アスペクト比を切り替えられるのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		req := httptest.NewRequest(http.MethodPut, "/api/ratio", strings.NewReader(`{"aspect_ratio":"portrait"}`))
		rec := c.do(req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.AspectPortrait, c.state().AspectRatio)
	})

	t.Run("未知の値は400なのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		req := httptest.NewRequest(http.MethodPut, "/api/ratio", strings.NewReader(`{"aspect_ratio":"panorama"}`))
		rec := c.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, domain.DefaultAspectRatio, c.state().AspectRatio)
	})
}

func TestServer_Generate(t *testing.T) {
	t.Run("2枚未満では外部を呼ばずに422なのだ", func(t *testing.T) {
		blender := &mockBlender{}
		c := newTestClient(t, blender)
		rec := c.uploadImages(map[string][]byte{"a.png": validPNG})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = c.do(httptest.NewRequest(http.MethodPost, "/api/generate", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Please provide 2 to 4 reference images.", decodeError(t, rec))
		assert.Equal(t, 0, blender.called)
	})

	t.Run("成功するとdata URIが返るのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		rec := c.uploadImages(map[string][]byte{"a.png": validPNG, "b.png": validPNG})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = c.do(httptest.NewRequest(http.MethodPost, "/api/generate", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Image string `json:"image"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, strings.HasPrefix(body.Image, "data:image/png;base64,"))
	})

	t.Run("生成の失敗は502でメッセージが返るのだ", func(t *testing.T) {
		blender := &mockBlender{
			blendFunc: func(ctx context.Context, req domain.BlendRequest) (*domain.ImageResponse, error) {
				return nil, errors.New("Failed to generate image: quota exceeded")
			},
		}
		c := newTestClient(t, blender)
		rec := c.uploadImages(map[string][]byte{"a.png": validPNG, "b.png": validPNG})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = c.do(httptest.NewRequest(http.MethodPost, "/api/generate", nil))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "Failed to generate image: quota exceeded", decodeError(t, rec))
	})
}

func TestServer_Result(t *testing.T) {
	t.Run("結果は result.png としてダウンロードされるのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		rec := c.uploadImages(map[string][]byte{"a.png": validPNG, "b.png": validPNG})
		require.Equal(t, http.StatusOK, rec.Code)
		rec = c.do(httptest.NewRequest(http.MethodPost, "/api/generate", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = c.do(httptest.NewRequest(http.MethodGet, "/api/result", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="result.png"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, []byte("blended-bytes"), rec.Body.Bytes())
	})

	t.Run("結果が無いうちは404なのだ", func(t *testing.T) {
		c := newTestClient(t, &mockBlender{})
		rec := c.do(httptest.NewRequest(http.MethodGet, "/api/result", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
