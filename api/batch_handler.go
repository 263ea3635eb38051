package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/autostock/autostock-api/models"
	"github.com/autostock/autostock-api/services"
	"github.com/autostock/autostock-api/utils"
)

// batchPageLimit bounds batch-wide operations; batches are created from a
// single upload session and stay well under this.
const batchPageLimit = 100

// NewBatch handles POST /batches/new: mints the next batch id for the caller
// without creating any product.
func (h *Handlers) NewBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	seq, err := h.counters.NextSequence(r.Context(), userID, models.CounterBatch)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"batch_id": fmt.Sprintf("b-%d", seq),
	})
}

func (h *Handlers) findBatch(w http.ResponseWriter, r *http.Request, userID, batchID string) (*services.PaginatedProducts, bool) {
	result, err := h.products.FindByUser(r.Context(), userID, services.ListOptions{
		BatchID: batchID,
		Page:    1,
		Limit:   batchPageLimit,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return nil, false
	}
	return result, true
}

// BatchProducts handles GET /products/batch?batch_id=.
func (h *Handlers) BatchProducts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	batchID := r.URL.Query().Get("batch_id")
	if batchID == "" {
		utils.RespondError(w, http.StatusBadRequest, "batch_id is required")
		return
	}

	result, ok := h.findBatch(w, r, userID, batchID)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

type batchUpdateRequest struct {
	BatchID string               `json:"batch_id" validate:"required"`
	Updates updateProductRequest `json:"updates"`
}

// BatchUpdate handles PATCH /products/batch: applies the same partial update
// to every product in the batch. Per-product updates fan out concurrently;
// the batch itself is not an entity, so there is no batch-level atomicity.
func (h *Handlers) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req batchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.checkStruct(w, &req) {
		return
	}

	result, ok := h.findBatch(w, r, userID, req.BatchID)
	if !ok {
		return
	}
	if len(result.Items) == 0 {
		utils.RespondError(w, http.StatusNotFound, "no products found for batch")
		return
	}

	fields := req.Updates.fields()

	g, gctx := errgroup.WithContext(r.Context())
	g.SetLimit(8)
	for _, product := range result.Items {
		id := product.ID.Hex()
		g.Go(func() error {
			_, err := h.products.Update(gctx, id, fields)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.respondServiceError(w, err)
		return
	}

	updated, ok := h.findBatch(w, r, userID, req.BatchID)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, updated)
}

type batchDeleteRequest struct {
	BatchID string `json:"batch_id" validate:"required"`
}

// BatchDelete handles DELETE /products/batch: deletes every product in the
// batch (each delete also pulls the user back-reference).
func (h *Handlers) BatchDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req batchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.checkStruct(w, &req) {
		return
	}

	result, ok := h.findBatch(w, r, userID, req.BatchID)
	if !ok {
		return
	}
	if len(result.Items) == 0 {
		utils.RespondError(w, http.StatusNotFound, "no products found for batch")
		return
	}

	g, gctx := errgroup.WithContext(r.Context())
	g.SetLimit(8)
	for _, product := range result.Items {
		id := product.ID.Hex()
		g.Go(func() error {
			_, err := h.products.Delete(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
