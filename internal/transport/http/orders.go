package http

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/NaikDeepak/village-mandi-sub001/internal/app"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// OrderAPI is the subset of the order service the handlers need.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, in app.PlaceOrderInput) (app.PlaceOrderResult, error)
	GetOrder(ctx context.Context, actor app.Actor, id string) (domain.Order, error)
	ListMyOrders(ctx context.Context, actor app.Actor) ([]domain.Order, error)
	ListBatchOrders(ctx context.Context, batchID string) ([]domain.Order, error)
	CancelOrder(ctx context.Context, actor app.Actor, id string) (domain.Order, error)
}

// PaymentRecorder records commitment and settlement payments.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, actor app.Actor, in app.RecordPaymentInput) (app.RecordPaymentResult, error)
}

type OrderHandler struct {
	orders   OrderAPI
	payments PaymentRecorder
	logger   *zap.Logger
}

func NewOrderHandler(orders OrderAPI, payments PaymentRecorder, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{orders: orders, payments: payments, logger: logger}
}

type placeOrderRequest struct {
	BatchID string             `json:"batchId"`
	Items   []orderLineRequest `json:"items"`
}

type orderLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type recordPaymentRequest struct {
	Stage     string           `json:"stage"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Reference string           `json:"reference"`
}

type recordPaymentResponse struct {
	Payment paymentResponse `json:"payment"`
	Order   orderResponse   `json:"order"`
}

// Orders serves GET|POST /api/orders. POST requires an Idempotency-Key
// header; a replay answers 200 with the original order.
func (h *OrderHandler) Orders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, domain.ErrUnauthenticated.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		orders, err := h.orders.ListMyOrders(r.Context(), actor)
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponses(orders))
	case http.MethodPost:
		key := r.Header.Get(idempotencyHeader)
		if key == "" {
			writeError(w, http.StatusBadRequest, codeIdempotencyRequired, domain.ErrIdempotencyKeyRequired.Error())
			return
		}
		var req placeOrderRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.BatchID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "batchId is required")
			return
		}
		lines := make([]domain.OrderLine, 0, len(req.Items))
		for _, it := range req.Items {
			lines = append(lines, domain.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}

		res, err := h.orders.PlaceOrder(r.Context(), app.PlaceOrderInput{
			BuyerID:        actor.UserID,
			BatchID:        req.BatchID,
			Items:          lines,
			IdempotencyKey: key,
		})
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, toOrderResponse(res.Order))
	default:
		methodNotAllowed(w)
	}
}

// Order serves /api/orders/{id}, /api/orders/{id}/cancel and
// /api/orders/{id}/payments.
func (h *OrderHandler) Order(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, domain.ErrUnauthenticated.Error())
		return
	}

	parts := pathSegments(r.URL.Path, "/api/orders")
	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		order, err := h.orders.GetOrder(r.Context(), actor, parts[0])
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(order))
	case len(parts) == 2 && parts[1] == "cancel":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		order, err := h.orders.CancelOrder(r.Context(), actor, parts[0])
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(order))
	case len(parts) == 2 && parts[1] == "payments":
		h.recordPayment(w, r, actor, parts[0])
	default:
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	}
}

// AdminOrders serves GET /api/admin/orders?batch_id=.
func (h *OrderHandler) AdminOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	batchID := r.URL.Query().Get("batch_id")
	if batchID == "" {
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, "batch_id is required")
		return
	}
	orders, err := h.orders.ListBatchOrders(r.Context(), batchID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// AdminOrder serves POST /api/admin/orders/{id}/payments.
func (h *OrderHandler) AdminOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, domain.ErrUnauthenticated.Error())
		return
	}
	parts := pathSegments(r.URL.Path, "/api/admin/orders")
	if len(parts) != 2 || parts[1] != "payments" {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}
	h.recordPayment(w, r, actor, parts[0])
}

func (h *OrderHandler) recordPayment(w http.ResponseWriter, r *http.Request, actor app.Actor, orderID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req recordPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	stage, err := domain.ParsePaymentStage(req.Stage)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	res, err := h.payments.RecordPayment(r.Context(), actor, app.RecordPaymentInput{
		OrderID:   orderID,
		Stage:     stage,
		Amount:    req.Amount,
		Reference: req.Reference,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, recordPaymentResponse{
		Payment: toPaymentResponse(res.Payment),
		Order:   toOrderResponse(res.Order),
	})
}
