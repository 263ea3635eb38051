package api

import (
	"encoding/json"
	"net/http"

	"github.com/autostock/autostock-api/models"
	"github.com/autostock/autostock-api/utils"
)

type addAssetRequest struct {
	Type        string `json:"type" validate:"required,oneof=original prompt generated enhanced"`
	URL         string `json:"url" validate:"required,url"`
	MimeType    string `json:"mime_type" validate:"required"`
	Size        int64  `json:"size"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
	ArtStyle    string `json:"art_style"`
	Quality     string `json:"quality" validate:"omitempty,oneof=low medium high"`
	Format      string `json:"format" validate:"omitempty,oneof=jpg png webp"`
}

// AddAsset handles POST /products/{id}/assets. Duplicate payloads produce
// duplicate entries; the list is append-only.
func (h *Handlers) AddAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if _, ok := h.fetchOwned(w, r, userID, id); !ok {
		return
	}

	var req addAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.checkStruct(w, &req) {
		return
	}

	asset := models.Asset{
		URL:         req.URL,
		MimeType:    req.MimeType,
		Size:        req.Size,
		Width:       req.Width,
		Height:      req.Height,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		ArtStyle:    req.ArtStyle,
		Quality:     req.Quality,
		Format:      req.Format,
	}

	product, err := h.products.AddAsset(r.Context(), id, asset, req.Type)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, product)
}

// ListAssets handles GET /products/{id}/assets with an optional ?type=
// filter.
func (h *Handlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	product, ok := h.fetchOwned(w, r, userID, r.PathValue("id"))
	if !ok {
		return
	}

	assets := product.Assets
	if assets == nil {
		assets = []models.Asset{}
	}

	if assetType := r.URL.Query().Get("type"); assetType != "" {
		filtered := make([]models.Asset, 0, len(assets))
		for _, a := range assets {
			if a.Type == assetType {
				filtered = append(filtered, a)
			}
		}
		assets = filtered
	}

	utils.RespondJSON(w, http.StatusOK, assets)
}
