package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/viewport/internal/engine"
	"github.com/inamate/viewport/internal/typeid"
)

const maxUploadSize = 10 << 20 // 10MB

var ErrNotFound = errors.New("asset not found")

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

// Handler serves asset upload and retrieval endpoints. Uploaded images are
// the content rooms fit their viewport against.
type Handler struct {
	dir string // directory to store asset files
}

// NewHandler creates a new asset handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

// Upload handles POST /assets/upload (multipart form with "file" field).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 10MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !supportedType(contentType) {
		http.Error(w, "only PNG, JPEG and GIF images are supported", http.StatusBadRequest)
		return
	}

	// Decode to get dimensions and re-encode everything as PNG
	img, _, err := image.Decode(file)
	if err != nil {
		http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		http.Error(w, "image has no pixels", http.StatusBadRequest)
		return
	}

	assetID := typeid.NewAssetID()
	filename := assetID + ".png"
	filePath := filepath.Join(h.dir, filename)

	out, err := os.Create(filePath)
	if err != nil {
		slog.Error("create asset file", "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		slog.Error("encode png", "error", err)
		os.Remove(filePath)
		http.Error(w, "failed to encode image", http.StatusInternalServerError)
		return
	}

	resp := UploadResponse{
		ID:     assetID,
		URL:    fmt.Sprintf("/assets/%s", filename),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Type:   "png",
		Name:   header.Filename,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// ContentSize reports the pixel size of a stored asset.
func (h *Handler) ContentSize(assetID string) (engine.Size, error) {
	if err := typeid.Validate(assetID, typeid.PrefixAsset); err != nil {
		return engine.Size{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	f, err := os.Open(filepath.Join(h.dir, assetID+".png"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return engine.Size{}, fmt.Errorf("%w: %s", ErrNotFound, assetID)
		}
		return engine.Size{}, err
	}
	defer f.Close()
	return Probe(f)
}

// Probe reads only the image header and returns its size.
func Probe(r io.Reader) (engine.Size, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return engine.Size{}, fmt.Errorf("probe image: %w", err)
	}
	return engine.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
}

// Remove handles DELETE /api/assets/{assetId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	assetID := mux.Vars(r)["assetId"]
	if err := h.Delete(assetID); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "asset not found", http.StatusNotFound)
			return
		}
		slog.Error("delete asset", "error", err, "asset", assetID)
		http.Error(w, "failed to delete asset", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func supportedType(contentType string) bool {
	for _, t := range []string{"image/png", "image/jpeg", "image/gif"} {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

// Delete removes an asset file from disk.
func (h *Handler) Delete(assetID string) error {
	if err := typeid.Validate(assetID, typeid.PrefixAsset); err != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err := os.Remove(filepath.Join(h.dir, assetID+".png")); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, assetID)
	}
	return nil
}
