package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/NaikDeepak/village-mandi-sub001/internal/app"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
)

// Money is rendered as a fixed two-decimal string.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type userResponse struct {
	ID    string      `json:"id"`
	Email string      `json:"email,omitempty"`
	Name  string      `json:"name"`
	Phone string      `json:"phone,omitempty"`
	Role  domain.Role `json:"role"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Phone: u.Phone, Role: u.Role}
}

type hubResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

func toHubResponse(h domain.Hub) hubResponse {
	return hubResponse{ID: h.ID, Name: h.Name, Location: h.Location, CreatedAt: h.CreatedAt}
}

type farmerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Village   string    `json:"village"`
	District  string    `json:"district"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toFarmerResponse(f domain.Farmer) farmerResponse {
	return farmerResponse{
		ID:        f.ID,
		Name:      f.Name,
		Phone:     f.Phone,
		Village:   f.Village,
		District:  f.District,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

type productResponse struct {
	ID        string    `json:"id"`
	FarmerID  string    `json:"farmerId"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Unit      string    `json:"unit"`
	BasePrice string    `json:"basePrice"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:        p.ID,
		FarmerID:  p.FarmerID,
		Name:      p.Name,
		Category:  p.Category,
		Unit:      p.Unit,
		BasePrice: money(p.BasePrice),
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type batchProductResponse struct {
	ProductID           string `json:"productId"`
	ProductName         string `json:"productName"`
	Unit                string `json:"unit"`
	PricePerUnit        string `json:"pricePerUnit"`
	FacilitationPercent string `json:"facilitationPercent"`
	BuyerPrice          string `json:"buyerPrice"`
	MinOrderQty         int    `json:"minOrderQty"`
	MaxOrderQty         int    `json:"maxOrderQty,omitempty"`
}

func toBatchProductResponse(bp domain.BatchProduct) batchProductResponse {
	return batchProductResponse{
		ProductID:           bp.ProductID,
		ProductName:         bp.ProductName,
		Unit:                bp.Unit,
		PricePerUnit:        money(bp.PricePerUnit),
		FacilitationPercent: bp.FacilitationPercent.String(),
		BuyerPrice:          money(bp.BuyerPrice()),
		MinOrderQty:         bp.MinOrderQty,
		MaxOrderQty:         bp.MaxOrderQty,
	}
}

type batchResponse struct {
	ID              string                 `json:"id"`
	HubID           string                 `json:"hubId"`
	Name            string                 `json:"name"`
	Status          domain.BatchStatus     `json:"status"`
	EffectiveStatus domain.BatchStatus     `json:"effectiveStatus"`
	CutoffAt        time.Time              `json:"cutoffAt"`
	DeliveryDate    time.Time              `json:"deliveryDate"`
	Products        []batchProductResponse `json:"products"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

func toBatchResponse(v app.BatchView) batchResponse {
	products := make([]batchProductResponse, 0, len(v.Products))
	for _, bp := range v.Products {
		products = append(products, toBatchProductResponse(bp))
	}
	return batchResponse{
		ID:              v.ID,
		HubID:           v.HubID,
		Name:            v.Name,
		Status:          v.Status,
		EffectiveStatus: v.EffectiveStatus,
		CutoffAt:        v.CutoffAt,
		DeliveryDate:    v.DeliveryDate,
		Products:        products,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

type orderItemResponse struct {
	ProductID          string `json:"productId"`
	Quantity           int    `json:"quantity"`
	UnitPrice          string `json:"unitPrice"`
	FarmerAmount       string `json:"farmerAmount"`
	FacilitationAmount string `json:"facilitationAmount"`
	LineTotal          string `json:"lineTotal"`
}

type paymentResponse struct {
	ID        string               `json:"id"`
	Stage     domain.PaymentStage  `json:"stage"`
	Amount    string               `json:"amount"`
	Status    domain.PaymentStatus `json:"status"`
	Reference string               `json:"reference,omitempty"`
	PaidAt    *time.Time           `json:"paidAt,omitempty"`
}

func toPaymentResponse(p domain.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		Stage:     p.Stage,
		Amount:    money(p.Amount),
		Status:    p.Status,
		Reference: p.Reference,
		PaidAt:    p.PaidAt,
	}
}

type orderResponse struct {
	ID                string              `json:"id"`
	BuyerID           string              `json:"buyerId"`
	BatchID           string              `json:"batchId"`
	Status            domain.OrderStatus  `json:"status"`
	Items             []orderItemResponse `json:"items"`
	Subtotal          string              `json:"subtotal"`
	FacilitationTotal string              `json:"facilitationTotal"`
	Total             string              `json:"total"`
	Payments          []paymentResponse   `json:"payments"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:          it.ProductID,
			Quantity:           it.Quantity,
			UnitPrice:          money(it.UnitPrice),
			FarmerAmount:       money(it.FarmerAmount),
			FacilitationAmount: money(it.FacilitationAmount),
			LineTotal:          money(it.LineTotal),
		})
	}
	payments := make([]paymentResponse, 0, len(o.Payments))
	for _, p := range o.Payments {
		payments = append(payments, toPaymentResponse(p))
	}
	return orderResponse{
		ID:                o.ID,
		BuyerID:           o.BuyerID,
		BatchID:           o.BatchID,
		Status:            o.Status,
		Items:             items,
		Subtotal:          money(o.Subtotal),
		FacilitationTotal: money(o.FacilitationTotal),
		Total:             money(o.Total),
		Payments:          payments,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	return resp
}
