package api

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/autostock/autostock-api/models"
	"github.com/autostock/autostock-api/services"
	"github.com/autostock/autostock-api/utils"
)

const maxUploadBytes = 25 << 20

// UploadProduct handles POST /products/upload: stores the uploaded image in
// the blob store and creates a product for it. The base64 copy kept in
// image_config is an in-flight payload for later description generation.
func (h *Handlers) UploadProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "error parsing form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	buf, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "error reading file")
		return
	}

	width, height := 0, 0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(buf)); err == nil {
		width, height = cfg.Width, cfg.Height
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	objectKey := fmt.Sprintf("library/%s%s", uuid.New().String(), strings.ToLower(ext))

	uploadedURL, err := h.blobs.Upload(r.Context(), bytes.NewReader(buf), objectKey, contentType)
	if err != nil {
		h.log.WithError(err).Error("blob upload failed")
		utils.RespondError(w, http.StatusBadGateway, "failed to store file")
		return
	}

	product, err := h.products.Create(r.Context(), userID, services.CreateProductInput{
		BatchID: r.FormValue("batch_id"),
		Stage:   models.StagePrompts,
		Status:  models.StatusDraft,
		OriginalImages: []models.Asset{{
			URL:      uploadedURL,
			Type:     models.AssetOriginal,
			MimeType: contentType,
			Size:     header.Size,
			Width:    width,
			Height:   height,
		}},
		ImageConfig: &models.ImageConfig{
			Base64Image:      base64.StdEncoding.EncodeToString(buf),
			OriginalImageURL: uploadedURL,
		},
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, product)
}
