package http

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/NaikDeepak/village-mandi-sub001/internal/app"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
)

// BatchAPI is the subset of the batch service the handlers need.
type BatchAPI interface {
	CreateBatch(ctx context.Context, in app.CreateBatchInput) (domain.Batch, error)
	UpdateBatch(ctx context.Context, in app.UpdateBatchInput) (domain.Batch, error)
	TransitionBatch(ctx context.Context, in app.TransitionBatchInput) (domain.Batch, error)
	UpsertBatchProduct(ctx context.Context, in app.UpsertBatchProductInput) (domain.BatchProduct, error)
	RemoveBatchProduct(ctx context.Context, batchID, productID string) error
	GetBatch(ctx context.Context, id string) (app.BatchView, error)
	ListBatches(ctx context.Context, status string) ([]app.BatchView, error)
	ListOpenBatches(ctx context.Context) ([]app.BatchView, error)
}

type BatchHandler struct {
	svc    BatchAPI
	logger *zap.Logger
}

func NewBatchHandler(svc BatchAPI, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{svc: svc, logger: logger}
}

type createBatchRequest struct {
	HubID        string    `json:"hubId"`
	Name         string    `json:"name"`
	CutoffAt     time.Time `json:"cutoffAt"`
	DeliveryDate time.Time `json:"deliveryDate"`
}

type updateBatchRequest struct {
	Name         *string    `json:"name"`
	CutoffAt     *time.Time `json:"cutoffAt"`
	DeliveryDate *time.Time `json:"deliveryDate"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

type upsertBatchProductRequest struct {
	ProductID           string          `json:"productId"`
	PricePerUnit        decimal.Decimal `json:"pricePerUnit"`
	FacilitationPercent decimal.Decimal `json:"facilitationPercent"`
	MinOrderQty         int             `json:"minOrderQty"`
	MaxOrderQty         int             `json:"maxOrderQty"`
}

// AdminBatches serves GET|POST /api/admin/batches.
func (h *BatchHandler) AdminBatches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		views, err := h.svc.ListBatches(r.Context(), r.URL.Query().Get("status"))
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toBatchResponses(views))
	case http.MethodPost:
		var req createBatchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.HubID == "" || req.CutoffAt.IsZero() || req.DeliveryDate.IsZero() {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "hubId, cutoffAt and deliveryDate are required")
			return
		}
		batch, err := h.svc.CreateBatch(r.Context(), app.CreateBatchInput{
			HubID:        req.HubID,
			Name:         req.Name,
			CutoffAt:     req.CutoffAt,
			DeliveryDate: req.DeliveryDate,
		})
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		h.writeBatch(w, r, batch.ID, http.StatusCreated)
	default:
		methodNotAllowed(w)
	}
}

// AdminBatch serves everything below /api/admin/batches/{id}.
func (h *BatchHandler) AdminBatch(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/api/admin/batches")
	switch {
	case len(parts) == 1:
		h.batch(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "status":
		h.transition(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "products":
		h.batchProducts(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "products":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if err := h.svc.RemoveBatchProduct(r.Context(), parts[0], parts[2]); err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	}
}

func (h *BatchHandler) batch(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		h.writeBatch(w, r, id, http.StatusOK)
	case http.MethodPut:
		var req updateBatchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		_, err := h.svc.UpdateBatch(r.Context(), app.UpdateBatchInput{
			ID:           id,
			Name:         req.Name,
			CutoffAt:     req.CutoffAt,
			DeliveryDate: req.DeliveryDate,
		})
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		h.writeBatch(w, r, id, http.StatusOK)
	default:
		methodNotAllowed(w)
	}
}

func (h *BatchHandler) transition(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req transitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	to, err := domain.ParseBatchStatus(req.Status)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if _, err := h.svc.TransitionBatch(r.Context(), app.TransitionBatchInput{ID: id, To: to}); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.writeBatch(w, r, id, http.StatusOK)
}

func (h *BatchHandler) batchProducts(w http.ResponseWriter, r *http.Request, batchID string) {
	switch r.Method {
	case http.MethodGet:
		view, err := h.svc.GetBatch(r.Context(), batchID)
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		resp := make([]batchProductResponse, 0, len(view.Products))
		for _, bp := range view.Products {
			resp = append(resp, toBatchProductResponse(bp))
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPut:
		var req upsertBatchProductRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.ProductID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "productId is required")
			return
		}
		bp, err := h.svc.UpsertBatchProduct(r.Context(), app.UpsertBatchProductInput{
			BatchID:             batchID,
			ProductID:           req.ProductID,
			PricePerUnit:        req.PricePerUnit,
			FacilitationPercent: req.FacilitationPercent,
			MinOrderQty:         req.MinOrderQty,
			MaxOrderQty:         req.MaxOrderQty,
		})
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toBatchProductResponse(bp))
	default:
		methodNotAllowed(w)
	}
}

// OpenBatches serves GET /api/batches: batches buyers can order from now.
func (h *BatchHandler) OpenBatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	views, err := h.svc.ListOpenBatches(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponses(views))
}

// Batch serves GET /api/batches/{id}. Draft batches are not visible to
// buyers.
func (h *BatchHandler) Batch(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/api/batches")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	view, err := h.svc.GetBatch(r.Context(), parts[0])
	if err == nil && view.Status == domain.BatchStatusDraft {
		err = domain.ErrBatchNotFound
	}
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(view))
}

func (h *BatchHandler) writeBatch(w http.ResponseWriter, r *http.Request, id string, status int) {
	view, err := h.svc.GetBatch(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, status, toBatchResponse(view))
}

func toBatchResponses(views []app.BatchView) []batchResponse {
	resp := make([]batchResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toBatchResponse(v))
	}
	return resp
}
