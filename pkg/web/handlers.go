package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/shouni/gemini-blend-kit/pkg/domain"
	"github.com/shouni/gemini-blend-kit/pkg/imgutil"
)

// maxUploadBytes はリクエスト全体のアップロード上限です。
const maxUploadBytes = 32 << 20

// allowedExtensions は受け付けるファイル拡張子です。
// 拡張子チェックの後、中身のスニッフィングでも検証します。
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, sess.Snapshot()); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(w, r)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// handleAddImages は multipart で届いた画像をまとめて追加します。
// 1枚でも不正なファイルがあれば、全体を追加せずに拒否します。
func (s *Server) handleAddImages(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "could not read the uploaded files")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no image files were uploaded")
		return
	}

	images := make([]domain.ReferenceImage, 0, len(files))
	for _, header := range files {
		img, err := referenceFromUpload(header)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		images = append(images, img)
	}

	if err := sess.AddImages(images...); err != nil {
		writeError(w, http.StatusUnprocessableEntity, domain.ErrReferenceCount.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// referenceFromUpload はアップロードされた1ファイルを検証して参照画像にします。
func referenceFromUpload(header *multipart.FileHeader) (domain.ReferenceImage, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return domain.ReferenceImage{}, fmt.Errorf("unsupported file type: %s (only PNG and JPEG are accepted)", header.Filename)
	}

	f, err := header.Open()
	if err != nil {
		return domain.ReferenceImage{}, fmt.Errorf("could not read %s", header.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.ReferenceImage{}, fmt.Errorf("could not read %s", header.Filename)
	}

	mimeType, err := imgutil.DetectImageMIME(data)
	if err != nil {
		return domain.ReferenceImage{}, fmt.Errorf("%s is not a valid PNG or JPEG image", header.Filename)
	}
	return domain.NewReferenceImage(mimeType, data), nil
}

func (s *Server) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(w, r)

	id := r.PathValue("id")
	if !sess.RemoveImage(id) {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSetRatio(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(w, r)

	var body struct {
		AspectRatio string `json:"aspect_ratio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ratio, err := domain.ParseAspectRatio(body.AspectRatio)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.SetAspectRatio(ratio); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// handleGenerate はブレンド生成を実行します。
// 実行中の二重リクエストは 409 で即時拒否します。
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(w, r)

	resp, err := sess.Generate(r.Context())
	switch {
	case errors.Is(err, domain.ErrGenerationInFlight):
		writeError(w, http.StatusConflict, "a generation is already in progress")
		return
	case errors.Is(err, domain.ErrReferenceCount):
		writeError(w, http.StatusUnprocessableEntity, domain.ErrReferenceCount.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Image string `json:"image"`
	}{
		Image: imgutil.EncodeDataURI(resp.MimeType, resp.Data),
	})
}

// handleResult は生成結果のバイナリを result.png としてダウンロードさせます。
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(w, r)

	result := sess.Result()
	if result == nil {
		writeError(w, http.StatusNotFound, "no generated image is available")
		return
	}

	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="result.png"`)
	_, _ = w.Write(result.Data)
}
