package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/autostock/autostock-api/models"
	"github.com/autostock/autostock-api/services"
	"github.com/autostock/autostock-api/utils"
)

// requireUser pulls the authenticated user id out of the context, answering
// 401 itself when the middleware did not run.
func (h *Handlers) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

// fetchOwned loads a product and enforces that it belongs to the caller.
// Writes 404/403/5xx itself when it returns ok=false.
func (h *Handlers) fetchOwned(w http.ResponseWriter, r *http.Request, userID, id string) (*models.Product, bool) {
	product, err := h.products.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return nil, false
	}
	if product.UserID != userID {
		utils.RespondError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return product, true
}

// parseListQuery extracts pagination and workflow filters from a request URL.
func parseListQuery(r *http.Request) services.ListOptions {
	q := r.URL.Query()
	opts := services.ListOptions{
		Stage:   q.Get("stage"),
		Status:  q.Get("status"),
		BatchID: q.Get("batch_id"),
		Page:    1,
		Limit:   10,
	}
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		opts.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		opts.Limit = l
	}
	return opts
}

// ListProducts handles GET /products.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.products.FindByUser(r.Context(), userID, parseListQuery(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

type createProductRequest struct {
	Stage              string                     `json:"stage" validate:"required,oneof=prompts generate enhance metadata"`
	Status             string                     `json:"status" validate:"omitempty,oneof=draft processing completed failed"`
	BatchID            string                     `json:"batch_id"`
	BatchName          string                     `json:"batch_name"`
	Priority           int                        `json:"priority"`
	ImageConfig        *models.ImageConfig        `json:"image_config"`
	EnhancementOptions *models.EnhancementOptions `json:"enhancement_options"`
	Metadata           *models.StockMetadata      `json:"metadata"`
	OriginalImages     []models.Asset             `json:"original_images" validate:"omitempty,dive"`
}

// CreateProduct handles POST /products. When the request carries an in-flight
// base64 image, a description is generated before the product is stored; an
// upstream failure aborts creation.
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.checkStruct(w, &req) {
		return
	}

	var description string
	if req.ImageConfig != nil && req.ImageConfig.Base64Image != "" {
		var err error
		description, err = h.vision.GenerateImageDescription(r.Context(), req.ImageConfig.Base64Image)
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
	}

	originalImages := req.OriginalImages
	if len(originalImages) == 0 && req.ImageConfig != nil && req.ImageConfig.OriginalImageURL != "" {
		originalImages = []models.Asset{{
			URL:      req.ImageConfig.OriginalImageURL,
			Type:     models.AssetOriginal,
			MimeType: "image/jpeg",
		}}
	}

	status := req.Status
	if status == "" {
		status = models.StatusDraft
	}

	product, err := h.products.Create(r.Context(), userID, services.CreateProductInput{
		BatchID:            req.BatchID,
		BatchName:          req.BatchName,
		Stage:              req.Stage,
		Status:             status,
		Priority:           req.Priority,
		Description:        description,
		OriginalImages:     originalImages,
		ImageConfig:        req.ImageConfig,
		EnhancementOptions: req.EnhancementOptions,
		Metadata:           req.Metadata,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, product)
}

// GetProduct handles GET /products/{id}.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	product, ok := h.fetchOwned(w, r, userID, r.PathValue("id"))
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, product)
}

type updateProductRequest struct {
	BatchName          *string                    `json:"batch_name"`
	Description        *string                    `json:"description"`
	Stage              *string                    `json:"stage" validate:"omitempty,oneof=prompts generate enhance metadata"`
	Status             *string                    `json:"status" validate:"omitempty,oneof=draft processing completed failed"`
	Priority           *int                       `json:"priority"`
	ImageConfig        *models.ImageConfig        `json:"image_config"`
	EnhancementOptions *models.EnhancementOptions `json:"enhancement_options"`
	Metadata           *models.StockMetadata      `json:"metadata"`
}

// fields flattens the set fields into an update document. Nil pointers were
// absent from the request and stay untouched.
func (req *updateProductRequest) fields() bson.M {
	set := bson.M{}
	if req.BatchName != nil {
		set["batch_name"] = *req.BatchName
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Stage != nil {
		set["stage"] = *req.Stage
	}
	if req.Status != nil {
		set["status"] = *req.Status
	}
	if req.Priority != nil {
		set["priority"] = *req.Priority
	}
	if req.ImageConfig != nil {
		set["image_config"] = req.ImageConfig
	}
	if req.EnhancementOptions != nil {
		set["enhancement_options"] = req.EnhancementOptions
	}
	if req.Metadata != nil {
		set["metadata"] = req.Metadata
	}
	return set
}

// PatchProduct handles PATCH /products/{id}. Partial merge; updated_at is
// stamped even when no recognized field was supplied.
func (h *Handlers) PatchProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if _, ok := h.fetchOwned(w, r, userID, id); !ok {
		return
	}

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.checkStruct(w, &req) {
		return
	}

	product, err := h.products.Update(r.Context(), id, req.fields())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/{id}.
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if _, ok := h.fetchOwned(w, r, userID, id); !ok {
		return
	}

	if _, err := h.products.Delete(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
