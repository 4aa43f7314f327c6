package handler

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUploadSize = 32 << 20

// Upload сохраняет файл из multipart-формы и возвращает путь до него.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	name := uuid.NewString() + filepath.Ext(header.Filename)
	dstPath := filepath.Join(h.uploadDir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		h.logger.Error("create upload file error", zap.Error(err), zap.String("path", dstPath))
		writeError(w, http.StatusInternalServerError, "file upload failed")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.logger.Error("write upload file error", zap.Error(err), zap.String("path", dstPath))
		writeError(w, http.StatusInternalServerError, "file upload failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"filePath": "/uploads/" + name,
	})
}
