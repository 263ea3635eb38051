package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"

	"github.com/autostock/autostock-api/models"
	"github.com/autostock/autostock-api/utils"
)

type generatePromptsRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1"`
}

type generatePromptsResponse struct {
	Message         string           `json:"message"`
	SuccessCount    int              `json:"success_count"`
	TotalCount      int              `json:"total_count"`
	UpdatedProducts []models.Product `json:"updated_products"`
}

// GeneratePrompts handles POST /products/generate-prompts: generates a
// description for every requested product that still carries an in-flight
// base64 image. Generation fans out concurrently; a failure on one product
// is recorded as a processing error on it and does not stop the rest.
func (h *Handlers) GeneratePrompts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req generatePromptsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.checkStruct(w, &req) {
		return
	}

	products, err := h.products.FindByIDs(r.Context(), req.ProductIDs)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	candidates := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.UserID != userID {
			continue
		}
		if p.ImageConfig == nil || p.ImageConfig.Base64Image == "" {
			continue
		}
		candidates = append(candidates, p)
	}

	if len(candidates) == 0 {
		utils.RespondError(w, http.StatusNotFound, "no products found with pending images")
		return
	}

	var (
		mu      sync.Mutex
		updated []models.Product
	)

	g, gctx := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for _, p := range candidates {
		product := p
		g.Go(func() error {
			id := product.ID.Hex()
			description, err := h.vision.GenerateImageDescription(gctx, product.ImageConfig.Base64Image)
			if err != nil {
				h.log.WithError(err).WithField("product_id", product.ProductID).Error("description generation failed")
				if _, recErr := h.products.AddProcessingError(gctx, id, models.StagePrompts, err.Error()); recErr != nil {
					h.log.WithError(recErr).WithField("product_id", product.ProductID).Error("failed to record processing error")
				}
				return nil
			}

			result, err := h.products.Update(gctx, id, bson.M{"description": description})
			if err != nil {
				h.log.WithError(err).WithField("product_id", product.ProductID).Error("failed to store description")
				return nil
			}

			mu.Lock()
			updated = append(updated, *result)
			mu.Unlock()
			return nil
		})
	}
	// Failures are handled per product above; Wait only surfaces context
	// cancellation.
	if err := g.Wait(); err != nil {
		h.respondServiceError(w, err)
		return
	}

	if len(updated) == 0 {
		utils.RespondError(w, http.StatusBadGateway, "failed to generate descriptions for any product")
		return
	}

	utils.RespondJSON(w, http.StatusOK, generatePromptsResponse{
		Message:         "description generation completed",
		SuccessCount:    len(updated),
		TotalCount:      len(candidates),
		UpdatedProducts: updated,
	})
}
