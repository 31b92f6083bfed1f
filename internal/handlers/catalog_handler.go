package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/catalog"
	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

// CatalogHandler covers the explicit catalog write paths: creating a product
// from a reviewed draft item, and backfilling embeddings after an import.
type CatalogHandler struct {
	creator    *catalog.Creator
	backfiller *catalog.Backfiller
	storage    interfaces.CatalogStorage
	logger     arbor.ILogger
}

func NewCatalogHandler(creator *catalog.Creator, backfiller *catalog.Backfiller, storage interfaces.CatalogStorage, logger arbor.ILogger) *CatalogHandler {
	return &CatalogHandler{
		creator:    creator,
		backfiller: backfiller,
		storage:    storage,
		logger:     logger,
	}
}

// ProductsHandler handles GET (list) and POST (create from item) on
// /api/catalog/products.
func (h *CatalogHandler) ProductsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 100
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	products, err := h.storage.ListProducts(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list products")
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *CatalogHandler) create(w http.ResponseWriter, r *http.Request) {
	var item models.DraftLineItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.creator.CreateFromItem(r.Context(), &item)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create product")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// BackfillHandler handles POST /api/catalog/backfill.
func (h *CatalogHandler) BackfillHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	embedded, skipped, err := h.backfiller.Run(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Embedding backfill failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":    err.Error(),
			"embedded": embedded,
			"skipped":  skipped,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"embedded": embedded,
		"skipped":  skipped,
	})
}
