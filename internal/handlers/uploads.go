package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// maxUploadBytes caps product image uploads.
const maxUploadBytes = 10 << 20 // 10 MB

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// UploadImage handles POST /api/uploads/images. Expects a multipart form
// with the file under "image".
func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromContext(r.Context())

	if h.uploader == nil {
		h.writeJSON(r, w, http.StatusNotImplemented, map[string]string{"error": "uploads are not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeJSON(r, w, http.StatusBadRequest, map[string]string{"error": "upload too large or malformed"})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.writeJSON(r, w, http.StatusBadRequest, map[string]string{"error": "image file is required"})
		return
	}
	defer file.Close()

	// Sniff the content type instead of trusting the client header.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		h.writeJSON(r, w, http.StatusBadRequest, map[string]string{"error": "could not read image file"})
		return
	}
	contentType := http.DetectContentType(head[:n])
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		h.writeJSON(r, w, http.StatusUnsupportedMediaType, map[string]string{"error": "only jpeg, png, and webp images are accepted"})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		logger.Error("failed to rewind upload", "error", err)
		h.writeJSON(r, w, http.StatusInternalServerError, map[string]string{"error": "upload failed"})
		return
	}

	key := fmt.Sprintf("products/%s%s", uuid.NewString(), ext)
	url, err := h.uploader.Upload(r.Context(), key, contentType, file)
	if err != nil {
		logger.Error("failed to upload image", "error", err, "key", key, "filename", sanitizeFilename(header.Filename))
		h.writeJSON(r, w, http.StatusBadGateway, map[string]string{"error": "upload failed"})
		return
	}

	logger.Info("image uploaded", "key", key, "content_type", contentType)
	h.writeJSON(r, w, http.StatusCreated, map[string]string{"url": url, "key": key})
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if len(name) > 128 {
		name = name[:128]
	}
	return name
}
