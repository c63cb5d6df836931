package api

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sfzman/indextts-server/internal/storage"
)

// ResultFiles opens stored synthesis results by file name.
type ResultFiles interface {
	Open(key string) (*os.File, error)
}

// ResultHandler serves synthesized audio files.
type ResultHandler struct {
	files ResultFiles
}

// NewResultHandler creates a new ResultHandler
func NewResultHandler(files ResultFiles) *ResultHandler {
	return &ResultHandler{files: files}
}

// Download handles GET /api/v1/results/{filename} requests
func (h *ResultHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if !strings.HasSuffix(name, storage.ResultExt) {
		HandleAPIError(w, r, fmt.Errorf("%w: %q", storage.ErrInvalidKey, name), "")
		return
	}

	f, err := h.files.Open(name)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read result")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read result")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(name)}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}
